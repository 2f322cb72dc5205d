package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJSONErrorShape(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONError(rec, http.StatusBadRequest, "validation_failed", map[string]string{"name": "required"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	var out ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Error != "validation_failed" || out.Details == nil {
		t.Fatalf("unexpected body: %+v", out)
	}
}

func TestJSONNilPayload(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusOK, nil)
	if rec.Body.String() != "null" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestWantsJSON(t *testing.T) {
	cases := []struct {
		accept string
		want   bool
	}{
		{"application/json", true},
		{"application/json, text/plain", true},
		{"text/html,application/json", false},
		{"text/html", false},
		{"", false},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.accept != "" {
			r.Header.Set("Accept", tc.accept)
		}
		if got := WantsJSON(r); got != tc.want {
			t.Fatalf("accept %q: got %v, want %v", tc.accept, got, tc.want)
		}
	}
}
