package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finanze/internal/spreadsheet"
)

func TestOwnerFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"present", "alice", "alice", false},
		{"trimmed", "  bob \t", "bob", false},
		{"missing", "", "", true},
		{"blank", "   ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set(OwnerHeader, tt.header)
			}
			got, err := ownerFromRequest(req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("owner=%q want %q", got, tt.want)
			}
		})
	}
}

func TestFormatFromRequest(t *testing.T) {
	tests := []struct {
		query   string
		want    spreadsheet.Format
		wantErr bool
	}{
		{"", spreadsheet.FormatDetailed, false},
		{"format=legacy", spreadsheet.FormatLegacy, false},
		{"format=%20STANDARD%20", spreadsheet.FormatStandard, false},
		{"format=csv", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/?"+tt.query, nil)
			got, err := formatFromRequest(req, spreadsheet.FormatDetailed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, spreadsheet.ErrUnknownFormat) {
				t.Errorf("err=%v, want ErrUnknownFormat", err)
			}
			if got != tt.want {
				t.Errorf("format=%q want %q", got, tt.want)
			}
		})
	}
}

func TestReadUpload(t *testing.T) {
	t.Run("raw body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("payload"))
		data, err := readUpload(httptest.NewRecorder(), req, 100)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != "payload" {
			t.Errorf("data=%q", data)
		}
	})

	t.Run("limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 101)))
		_, err := readUpload(httptest.NewRecorder(), req, 100)
		if !errors.Is(err, errTooLarge) {
			t.Errorf("err=%v, want errTooLarge", err)
		}
	})

	t.Run("multipart without file field", func(t *testing.T) {
		body := "--b\r\nContent-Disposition: form-data; name=\"other\"\r\n\r\nvalue\r\n--b--\r\n"
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=b")
		_, err := readUpload(httptest.NewRecorder(), req, 1024)
		if err == nil || !strings.Contains(err.Error(), `"file"`) {
			t.Errorf("err=%v, want missing file field", err)
		}
	})
}

func TestDecodeImportRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"token", `{"previewToken":" abc ","confirm":true}`, nil},
		{"document", `{"document":{"categories":["A"],"months":[]},"confirm":true}`, nil},
		{"unconfirmed", `{"previewToken":"abc","confirm":false}`, errNotConfirmed},
		{"no source", `{"confirm":true}`, errNoSource},
		{"both", `{"previewToken":"abc","document":{},"confirm":true}`, errTwoSources},
		{"blank token", `{"previewToken":"   ","confirm":true}`, errNoSource},
		{"garbage", `not json`, errMalformedJSON},
		{"too large", `{"previewToken":"` + strings.Repeat("a", 200) + `","confirm":true}`, errTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			got, err := decodeImportRequest(httptest.NewRecorder(), req, 128)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err=%v want %v", err, tt.wantErr)
			}
			if err == nil && got.PreviewToken != "" && got.PreviewToken != "abc" {
				t.Errorf("token not trimmed: %q", got.PreviewToken)
			}
		})
	}
}
