package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestParseID(t *testing.T) {
	e := echo.New()
	tests := []struct {
		value   string
		want    int64
		wantErr bool
	}{
		{"12", 12, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.SetParamNames("id")
		c.SetParamValues(tt.value)
		got, err := ParseID(c, "id")
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseID(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseID(%q) = %d, want %d", tt.value, got, tt.want)
		}
	}
}

func TestQueryID(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?patient=9", nil), httptest.NewRecorder())
	if id, err := QueryID(c, "patient"); err != nil || id != 9 {
		t.Errorf("expected 9, got %d (%v)", id, err)
	}
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if _, err := QueryID(c, "patient"); err == nil {
		t.Error("expected error for missing query param")
	}
}

func TestBind_MalformedJSON(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"score": "ten"`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	var dst struct {
		Score int `json:"score"`
	}
	err := Bind(c, &dst)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestRequired(t *testing.T) {
	err := Required("full_name", "  ")
	if err == nil || err.Error() != "full_name is required" {
		t.Errorf("unexpected error: %v", err)
	}
	if !IsValidation(err) {
		t.Error("expected a validation error")
	}
	if err := Required("full_name", "Ana"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestError_Mapping(t *testing.T) {
	errGone := errors.New("thing not found")
	known := []Mapping{{Err: errGone, Status: http.StatusNotFound, Detail: "Thing not found"}}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{"sentinel", fmt.Errorf("get: %w", errGone), 404, "Thing not found"},
		{"validation", Invalidf("score must be between %d and %d", 0, 10), 400, "score must be between 0 and 10"},
		{"unknown", errors.New("connection reset"), 500, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			he := Error(tt.err, known...)
			if he.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, he.Code)
			}
			if he.Message != tt.wantDetail {
				t.Errorf("expected %q, got %v", tt.wantDetail, he.Message)
			}
			if he.Internal == nil {
				t.Error("expected internal error to be kept for logging")
			}
		})
	}
}
