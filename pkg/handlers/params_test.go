package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestParsePathIDs(t *testing.T) {
	valid := uuid.New()

	tests := []struct {
		name      string
		param     string
		value     string
		parse     func(http.ResponseWriter, *http.Request, *zap.Logger) (uuid.UUID, bool)
		wantOK    bool
		wantError string
	}{
		{name: "project ok", param: "pid", value: valid.String(), parse: ParseProjectID, wantOK: true},
		{name: "project upper case", param: "pid", value: strings.ToUpper(valid.String()), parse: ParseProjectID, wantOK: true},
		{name: "project garbage", param: "pid", value: "not-a-uuid", parse: ParseProjectID, wantError: "invalid_project_id"},
		{name: "project empty", param: "pid", value: "", parse: ParseProjectID, wantError: "invalid_project_id"},
		{name: "content ok", param: "cid", value: valid.String(), parse: ParseContentID, wantOK: true},
		{name: "content garbage", param: "cid", value: "42", parse: ParseContentID, wantError: "invalid_content_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/content/projects", nil)
			req.SetPathValue(tt.param, tt.value)
			rec := httptest.NewRecorder()

			id, ok := tt.parse(rec, req, zap.NewNop())
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok {
				if id != valid {
					t.Errorf("id = %v, want %v", id, valid)
				}
				return
			}

			if id != uuid.Nil {
				t.Errorf("id = %v, want uuid.Nil", id)
			}
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			var resp map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp["error"] != tt.wantError {
				t.Errorf("error = %q, want %q", resp["error"], tt.wantError)
			}
		})
	}
}

func TestQueryInt(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name   string
		url    string
		want   int
		wantOK bool
	}{
		{name: "missing uses default", url: "/x", want: 20, wantOK: true},
		{name: "present", url: "/x?per_page=50", want: 50, wantOK: true},
		{name: "malformed", url: "/x?per_page=lots", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			rec := httptest.NewRecorder()

			got, ok := queryInt(rec, req, "per_page", 20, logger)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
			if !ok && rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}
