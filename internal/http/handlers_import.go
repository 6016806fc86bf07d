package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"finanze/internal/core"
	"finanze/internal/importer"
	applog "finanze/internal/log"
	"finanze/internal/spreadsheet"
	"finanze/internal/storage"
)

type previewResponse struct {
	Token     string              `json:"token"`
	Format    spreadsheet.Format  `json:"format"`
	Summary   core.Summary        `json:"summary"`
	Warnings  []core.Warning      `json:"warnings"`
	Existing  *storage.OwnerStats `json:"existing,omitempty"`
	ExpiresAt time.Time           `json:"expiresAt"`
}

func previewKey(ownerID, token string) string {
	return ownerID + ":" + token
}

// handlePreview parses an uploaded workbook and stores the document under a
// fresh token until the owner confirms it.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := ownerFromRequest(r)
	if err != nil {
		rejectOwner(ctx, w, err)
		return
	}
	format, err := formatFromRequest(r, s.opts.DefaultFormat)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := readUpload(w, r, s.opts.MaxUploadBytes)
	switch {
	case errors.Is(err, errTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := spreadsheet.Parse(data, format)
	if err != nil {
		s.writeParseError(ctx, w, owner, err)
		return
	}
	s.storePreview(ctx, w, owner, format, result)
}

// handleGooglePreview reads a Google spreadsheet by id and previews it the
// same way as an upload.
func (s *Server) handleGooglePreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := ownerFromRequest(r)
	if err != nil {
		rejectOwner(ctx, w, err)
		return
	}
	if s.opts.Sheets == nil {
		writeError(w, http.StatusNotImplemented, "Google Sheets source is not configured")
		return
	}

	var req googlePreviewRequest
	if err := decodeJSON(w, r, 4<<10, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.SpreadsheetID = strings.TrimSpace(req.SpreadsheetID)
	if req.SpreadsheetID == "" {
		writeError(w, http.StatusBadRequest, "spreadsheetId is required")
		return
	}
	format := s.opts.DefaultFormat
	if req.Format != "" {
		if format, err = spreadsheet.ParseFormat(req.Format); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	wb, err := s.opts.Sheets.Open(ctx, req.SpreadsheetID)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to open Google spreadsheet",
			applog.FieldOwnerID, owner,
			applog.FieldSpreadsheetID, req.SpreadsheetID,
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeNetwork)
		writeError(w, http.StatusBadGateway, "could not read the Google spreadsheet")
		return
	}

	result, err := spreadsheet.ParseWorkbook(wb, format)
	if err != nil {
		s.writeParseError(ctx, w, owner, err)
		return
	}
	s.storePreview(ctx, w, owner, format, result)
}

func rejectOwner(ctx context.Context, w http.ResponseWriter, err error) {
	applog.FromContext(ctx).WarnContext(ctx, "Request without owner",
		applog.FieldError, err,
		applog.FieldErrorType, applog.ErrorTypeAuth)
	writeError(w, http.StatusUnauthorized, err.Error())
}

func (s *Server) writeParseError(ctx context.Context, w http.ResponseWriter, owner string, err error) {
	applog.NewStructuredLogger(applog.FromContext(ctx).WithComponent(applog.ComponentParser)).LogError(ctx, "Spreadsheet parse failed", err,
		applog.ErrorTypeValidation, applog.OpParse, applog.NewFields().WithOwner(owner))
	if errors.Is(err, spreadsheet.ErrUnknownFormat) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeError(w, http.StatusUnprocessableEntity, spreadsheet.ErrUnreadableDocument.Error())
}

func (s *Server) storePreview(ctx context.Context, w http.ResponseWriter, owner string, format spreadsheet.Format, result *spreadsheet.Result) {
	token := uuid.NewString()
	expiresAt := time.Now().Add(s.opts.PreviewTTL).UTC()
	s.previews.Set(previewKey(owner, token), preview{
		Document:  result.Document,
		Format:    format,
		ExpiresAt: expiresAt,
	})

	resp := previewResponse{
		Token:     token,
		Format:    format,
		Summary:   result.Summary,
		Warnings:  result.Warnings,
		ExpiresAt: expiresAt,
	}
	if s.opts.Stats != nil {
		stats, err := s.opts.Stats.Stats(ctx, owner)
		if err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Failed to read existing data counts",
				applog.FieldOwnerID, owner, applog.FieldError, err)
		} else {
			resp.Existing = &stats
		}
	}

	applog.NewStructuredLogger(applog.FromContext(ctx)).LogPreview(ctx, owner, string(format), token,
		result.Summary.MonthCount, result.Summary.ExpenseCount, result.Summary.IncomeCount, len(result.Warnings))
	writeJSON(w, http.StatusOK, resp)
}

// handleImport performs the confirmed, destructive import of either a stored
// preview or an inline document.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)
	owner, err := ownerFromRequest(r)
	if err != nil {
		rejectOwner(ctx, w, err)
		return
	}

	req, err := decodeImportRequest(w, r, s.opts.MaxUploadBytes)
	switch {
	case errors.Is(err, errTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc := req.Document
	key := ""
	if req.PreviewToken != "" {
		key = previewKey(owner, req.PreviewToken)
		p, ok := s.previews.Get(key)
		if !ok {
			logger.WarnContext(ctx, "Preview not found",
				applog.FieldOwnerID, owner,
				applog.FieldPreviewToken, req.PreviewToken,
				applog.FieldErrorType, applog.ErrorTypeNotFound)
			writeError(w, http.StatusNotFound, "preview not found or expired")
			return
		}
		doc = p.Document
	}

	result, err := s.importer.Import(ctx, owner, doc)
	if err != nil {
		var verr *core.ValidationError
		switch {
		case errors.As(err, &verr):
			logger.WarnContext(ctx, "Import rejected",
				applog.FieldOwnerID, owner,
				applog.FieldError, err,
				applog.FieldErrorType, applog.ErrorTypeValidation)
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: verr.Error(), Field: verr.Field})
		case errors.Is(err, importer.ErrMissingOwner):
			rejectOwner(ctx, w, err)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			logger.WarnContext(ctx, "Import abandoned by client", applog.FieldOwnerID, owner, applog.FieldError, err)
			writeError(w, http.StatusServiceUnavailable, "import cancelled, no data was changed")
		default:
			errorType := applog.ErrorTypeInternal
			if errors.Is(err, importer.ErrImportFailed) {
				errorType = applog.ErrorTypeDatabase
			}
			logger.ErrorContext(ctx, "Import failed",
				applog.FieldOwnerID, owner,
				applog.FieldError, err,
				applog.FieldErrorType, errorType)
			writeError(w, http.StatusInternalServerError, "import failed, no data was changed")
		}
		return
	}

	if key != "" {
		s.previews.Delete(key)
	}
	writeJSON(w, http.StatusOK, result)
}
