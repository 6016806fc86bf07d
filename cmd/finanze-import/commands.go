package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"finanze/internal/cli"
	"finanze/internal/config"
	"finanze/internal/core"
	"finanze/internal/importer"
	applog "finanze/internal/log"
	"finanze/internal/ports"
	"finanze/internal/spreadsheet"
	"finanze/internal/storage"
)

var (
	errNotConfirmed = errors.New("an import replaces all existing data for the owner; rerun with --yes to proceed")
	errNoSource     = errors.New("give a spreadsheet file or --google-sheet")
	errTwoSources   = errors.New("a spreadsheet file and --google-sheet are mutually exclusive")
)

type rootOptions struct {
	cfg     *config.Config
	logger  *applog.Logger
	dbPath  string
	format  string
	sheetID string

	// publisher overrides the AMQP publisher built from cfg.
	publisher ports.EventPublisher
}

func newRootCommand(opts *rootOptions) *cobra.Command {
	cfg := opts.cfg

	rootCmd := &cobra.Command{
		Use:   "finanze-import",
		Short: "Preview and import household finance spreadsheets",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", cfg.SQLiteDBPath, "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&opts.format, "format", cfg.DefaultImportFormat, "spreadsheet layout: "+strings.Join(spreadsheet.FormatNames(), ", "))
	rootCmd.PersistentFlags().StringVar(&opts.sheetID, "google-sheet", "", "read a Google spreadsheet by id instead of a file")

	rootCmd.AddCommand(newPreviewCommand(opts))
	rootCmd.AddCommand(newImportCommand(opts))
	rootCmd.AddCommand(newStatsCommand(opts))
	return rootCmd
}

func newPreviewCommand(opts *rootOptions) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "preview [file.xlsx]",
		Short: "Parse a spreadsheet and show what an import would load",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.parse(cmd.Context(), args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printSummary(out, res)
			printWarnings(out, res.Warnings)

			if owner == "" {
				return nil
			}
			repo, err := storage.NewSQLiteRepository(opts.dbPath)
			if err != nil {
				return err
			}
			defer repo.Close()
			stats, err := repo.Stats(cmd.Context(), owner)
			if err != nil {
				return err
			}
			printExisting(out, owner, stats)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "also show the data currently stored for this owner")
	return cmd
}

func newImportCommand(opts *rootOptions) *cobra.Command {
	var (
		owner string
		yes   bool
	)

	cmd := &cobra.Command{
		Use:   "import [file.xlsx]",
		Short: "Replace all of an owner's data with a spreadsheet",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			res, err := opts.parse(ctx, args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printSummary(out, res)
			printWarnings(out, res.Warnings)

			repo, err := storage.NewSQLiteRepository(opts.dbPath)
			if err != nil {
				return err
			}
			defer repo.Close()

			stats, err := repo.Stats(ctx, owner)
			if err != nil {
				return err
			}
			printExisting(out, owner, stats)
			if !yes {
				return errNotConfirmed
			}

			publisher := opts.publisher
			if publisher == nil {
				var closePublisher func()
				publisher, closePublisher = cli.InitPublisher(opts.logger, opts.cfg)
				defer closePublisher()
			}

			result, err := importer.NewExecutor(repo, importer.WithPublisher(publisher)).Import(ctx, owner, res.Document)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\nImported for %s: %d categories, %d months, %d expenses, %d incomes\n",
				owner, result.CategoriesCreated, result.MonthsCreated, result.ExpensesCreated, result.IncomesCreated)
			printWarnings(out, result.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner whose data is replaced (required)")
	_ = cmd.MarkFlagRequired("owner")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm replacing all existing data")
	return cmd
}

func newStatsCommand(opts *rootOptions) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the rows stored for an owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := storage.NewSQLiteRepository(opts.dbPath)
			if err != nil {
				return err
			}
			defer repo.Close()
			stats, err := repo.Stats(cmd.Context(), owner)
			if err != nil {
				return err
			}
			printExisting(cmd.OutOrStdout(), owner, stats)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner to inspect (required)")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

// parse reads the spreadsheet named by args or --google-sheet.
func (o *rootOptions) parse(ctx context.Context, args []string) (*spreadsheet.Result, error) {
	format, err := spreadsheet.ParseFormat(o.format)
	if err != nil {
		return nil, err
	}

	switch {
	case len(args) > 0 && o.sheetID != "":
		return nil, errTwoSources
	case o.sheetID != "":
		src, err := cli.InitSheets(ctx, o.logger, o.cfg)
		if err != nil {
			return nil, err
		}
		if src == nil {
			return nil, errors.New("google sheets credentials are not configured (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
		}
		wb, err := src.Open(ctx, o.sheetID)
		if err != nil {
			return nil, err
		}
		return spreadsheet.ParseWorkbook(wb, format)
	case len(args) > 0:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", args[0], err)
		}
		return spreadsheet.Parse(data, format)
	default:
		return nil, errNoSource
	}
}

func printSummary(w io.Writer, res *spreadsheet.Result) {
	s := res.Summary
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Parsed spreadsheet:")
	fmt.Fprintf(tw, "  categories\t%d\n", s.CategoryCount)
	fmt.Fprintf(tw, "  months\t%d\n", s.MonthCount)
	fmt.Fprintf(tw, "  expenses\t%d\t%s\n", s.ExpenseCount, s.ExpenseTotal.StringFixed(2))
	fmt.Fprintf(tw, "  incomes\t%d\t%s\n", s.IncomeCount, s.IncomeTotal.StringFixed(2))
	fmt.Fprintf(tw, "  salaries\t\t%s\n", s.SalaryTotal.StringFixed(2))
	_ = tw.Flush()
}

func printWarnings(w io.Writer, warnings []core.Warning) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%d warning(s):\n", len(warnings))
	for _, wr := range warnings {
		fmt.Fprintf(w, "  - %s\n", wr)
	}
}

func printExisting(w io.Writer, owner string, s storage.OwnerStats) {
	if s.IsEmpty() {
		fmt.Fprintf(w, "\nNo data stored for %s.\n", owner)
		return
	}
	fmt.Fprintf(w, "\nCurrently stored for %s (will be deleted by an import):\n", owner)
	fmt.Fprintf(w, "  %d categories, %d months, %d expenses, %d incomes, %d recurring expenses\n",
		s.Categories, s.Months, s.Expenses, s.Incomes, s.RecurringExpenses)
}
