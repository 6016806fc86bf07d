// Package google reads a whole Google spreadsheet into a workbook the
// spreadsheet parser understands.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	applog "finanze/internal/log"
	"finanze/internal/spreadsheet"
)

// ErrNoCredentials is returned when neither inline JSON nor a key file is configured.
var ErrNoCredentials = errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")

// Source opens spreadsheets with read-only service account access.
type Source struct {
	svc *gsheet.Service
}

// LoadCredentials returns the inline JSON when set, else the contents of file.
func LoadCredentials(inlineJSON, file string) ([]byte, error) {
	inlineJSON = strings.TrimSpace(inlineJSON)
	file = strings.TrimSpace(file)
	switch {
	case inlineJSON != "":
		return []byte(inlineJSON), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, ErrNoCredentials
	}
}

// NewSource builds a Source from service account credentials.
func NewSource(ctx context.Context, credentialsJSON []byte) (*Source, error) {
	slog.InfoContext(ctx, "Creating Google Sheets service",
		applog.FieldComponent, applog.ComponentSheets,
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsReadonlyScope)

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Source{svc: svc}, nil
}

// NewSourceWithOptions builds a Source from raw client options, for
// alternative endpoints and authentication.
func NewSourceWithOptions(ctx context.Context, opts ...goption.ClientOption) (*Source, error) {
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Source{svc: svc}, nil
}

// Open fetches every sheet of the spreadsheet in a single batch. Numbers and
// dates come back unformatted so the parser sees date serials, not locale text.
func (s *Source) Open(ctx context.Context, spreadsheetID string) (spreadsheet.Workbook, error) {
	if s.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}

	meta, err := s.svc.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet %s: %w", spreadsheetID, err)
	}

	titles := make([]string, 0, len(meta.Sheets))
	ranges := make([]string, 0, len(meta.Sheets))
	for _, sh := range meta.Sheets {
		if sh.Properties == nil {
			continue
		}
		titles = append(titles, sh.Properties.Title)
		ranges = append(ranges, quoteSheet(sh.Properties.Title))
	}
	if len(titles) == 0 {
		return spreadsheet.NewMemoryWorkbook(), nil
	}

	resp, err := s.svc.Spreadsheets.Values.BatchGet(spreadsheetID).
		Ranges(ranges...).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read values of %s: %w", spreadsheetID, err)
	}

	slog.DebugContext(ctx, "Fetched Google spreadsheet",
		applog.FieldComponent, applog.ComponentSheets,
		applog.FieldSpreadsheetID, spreadsheetID,
		"sheets", len(titles))
	return toWorkbook(titles, resp.ValueRanges)
}

// toWorkbook pairs value ranges with sheet titles. The API answers a batch in
// request order.
func toWorkbook(titles []string, ranges []*gsheet.ValueRange) (*spreadsheet.MemoryWorkbook, error) {
	if len(ranges) != len(titles) {
		return nil, fmt.Errorf("expected %d value ranges, got %d", len(titles), len(ranges))
	}
	wb := spreadsheet.NewMemoryWorkbook()
	for i, title := range titles {
		var values [][]interface{}
		if ranges[i] != nil {
			values = ranges[i].Values
		}
		rows := make([][]string, len(values))
		for r, row := range values {
			rows[r] = toStrings(row)
		}
		wb.AddSheet(title, rows)
	}
	return wb, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = cellString(v)
	}
	return out
}

func cellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return strings.TrimSpace(x)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// quoteSheet turns a title into an A1 range covering the whole sheet.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
