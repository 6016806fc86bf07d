package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"finanze/internal/core"
	"finanze/internal/spreadsheet"
)

// OwnerHeader carries the owner identity set by the upstream auth layer.
const OwnerHeader = "X-Owner-ID"

const uploadField = "file"

var (
	errMissingOwner  = errors.New("missing " + OwnerHeader + " header")
	errEmptyUpload   = errors.New("upload is empty")
	errTooLarge      = errors.New("upload exceeds size limit")
	errNotConfirmed  = errors.New("confirm must be true: an import replaces all existing data")
	errNoSource      = errors.New("either previewToken or document is required")
	errTwoSources    = errors.New("previewToken and document are mutually exclusive")
	errMalformedJSON = errors.New("malformed JSON body")
)

// ownerFromRequest returns the trimmed owner id or errMissingOwner.
func ownerFromRequest(r *http.Request) (string, error) {
	owner := strings.TrimSpace(r.Header.Get(OwnerHeader))
	if owner == "" {
		return "", errMissingOwner
	}
	return owner, nil
}

// formatFromRequest reads ?format=, falling back to def.
func formatFromRequest(r *http.Request, def spreadsheet.Format) (spreadsheet.Format, error) {
	token := strings.TrimSpace(r.URL.Query().Get("format"))
	if token == "" {
		return def, nil
	}
	return spreadsheet.ParseFormat(token)
}

// readUpload returns the spreadsheet bytes, either the raw body or the
// multipart field "file". Bodies larger than limit yield errTooLarge.
func readUpload(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var src io.Reader = r.Body
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		mr, err := r.MultipartReader()
		if err != nil {
			return nil, fmt.Errorf("read multipart body: %w", err)
		}
		for {
			part, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("multipart field %q not found", uploadField)
			}
			if err != nil {
				return nil, uploadError(err)
			}
			if part.FormName() == uploadField {
				src = part
				break
			}
			part.Close()
		}
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, uploadError(err)
	}
	if len(data) == 0 {
		return nil, errEmptyUpload
	}
	return data, nil
}

func uploadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return errTooLarge
	}
	return fmt.Errorf("read upload: %w", err)
}

// importRequest is the body of POST /api/imports.
type importRequest struct {
	PreviewToken string               `json:"previewToken"`
	Document     *core.ImportDocument `json:"document"`
	Confirm      bool                 `json:"confirm"`
}

// decodeJSON strictly decodes a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errTooLarge
		}
		return fmt.Errorf("%w: %v", errMalformedJSON, err)
	}
	return nil
}

func decodeImportRequest(w http.ResponseWriter, r *http.Request, limit int64) (importRequest, error) {
	var req importRequest
	if err := decodeJSON(w, r, limit, &req); err != nil {
		return req, err
	}

	req.PreviewToken = strings.TrimSpace(req.PreviewToken)
	switch {
	case !req.Confirm:
		return req, errNotConfirmed
	case req.PreviewToken == "" && req.Document == nil:
		return req, errNoSource
	case req.PreviewToken != "" && req.Document != nil:
		return req, errTwoSources
	}
	return req, nil
}

// googlePreviewRequest is the body of POST /api/imports/preview/google.
type googlePreviewRequest struct {
	SpreadsheetID string `json:"spreadsheetId"`
	Format        string `json:"format"`
}
