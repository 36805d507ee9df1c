package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func contextFor(target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestFromContext_Defaults(t *testing.T) {
	c, _ := contextFor("/")
	p := FromContext(c)

	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected default offset 0, got %d", p.Offset)
	}
}

func TestFromContext_Aliases(t *testing.T) {
	tests := []struct {
		target     string
		wantLimit  int
		wantOffset int
	}{
		{"/?skip=10&limit=5", 5, 10},
		{"/?offset=7", DefaultLimit, 7},
		{"/?_offset=3&_count=2", 2, 3},
		{"/?limit=100000", MaxLimit, 0},
		{"/?limit=-1&skip=-4", DefaultLimit, 0},
		{"/?limit=abc&skip=xyz", DefaultLimit, 0},
	}
	for _, tt := range tests {
		c, _ := contextFor(tt.target)
		p := FromContext(c)
		if p.Limit != tt.wantLimit || p.Offset != tt.wantOffset {
			t.Errorf("%s: expected limit=%d offset=%d, got limit=%d offset=%d",
				tt.target, tt.wantLimit, tt.wantOffset, p.Limit, p.Offset)
		}
	}
}

func TestSetTotal(t *testing.T) {
	c, rec := contextFor("/")
	SetTotal(c, 42)
	if got := rec.Header().Get(TotalCountHeader); got != "42" {
		t.Errorf("expected X-Total-Count 42, got %q", got)
	}
}

func TestParams_Navigation(t *testing.T) {
	p := Params{Limit: 10, Offset: 5}
	if !p.HasNext(20) {
		t.Error("expected HasNext for total 20")
	}
	if p.HasNext(15) {
		t.Error("did not expect HasNext for total 15")
	}
	if !p.HasPrevious() {
		t.Error("expected HasPrevious")
	}
	if p.NextOffset() != 15 {
		t.Errorf("expected next offset 15, got %d", p.NextOffset())
	}
	if p.PreviousOffset() != 0 {
		t.Errorf("expected previous offset clamped to 0, got %d", p.PreviousOffset())
	}
}

func TestFHIRLinks(t *testing.T) {
	p := Params{Limit: 10, Offset: 10}
	links := p.FHIRLinks("/fhir/Observation", "patient=7", 35)
	if len(links) != 3 {
		t.Fatalf("expected self, next and previous links, got %d", len(links))
	}
	if links[0].URL != "/fhir/Observation?patient=7&_offset=10&_count=10" {
		t.Errorf("unexpected self link: %s", links[0].URL)
	}
	if links[1].Relation != "next" || links[1].URL != "/fhir/Observation?patient=7&_offset=20&_count=10" {
		t.Errorf("unexpected next link: %+v", links[1])
	}
	if links[2].Relation != "previous" || links[2].URL != "/fhir/Observation?patient=7&_offset=0&_count=10" {
		t.Errorf("unexpected previous link: %+v", links[2])
	}

	only := Params{Limit: 10}.FHIRLinks("/fhir/Observation", "", 3)
	if len(only) != 1 || only[0].URL != "/fhir/Observation?_offset=0&_count=10" {
		t.Errorf("expected lone self link, got %+v", only)
	}
}
