package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(target string) Params {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return FromContext(e.NewContext(req, httptest.NewRecorder()))
}

func TestFromContext_Defaults(t *testing.T) {
	p := paramsFor("/patients")
	if p.Limit != DefaultLimit || p.Offset != 0 {
		t.Errorf("unexpected defaults %+v", p)
	}
}

func TestFromContext_ClampsLimit(t *testing.T) {
	p := paramsFor("/patients?limit=5000&offset=40")
	if p.Limit != MaxLimit {
		t.Errorf("expected limit clamped to %d, got %d", MaxLimit, p.Limit)
	}
	if p.Offset != 40 {
		t.Errorf("expected offset 40, got %d", p.Offset)
	}
}

func TestFromContext_RejectsGarbage(t *testing.T) {
	p := paramsFor("/patients?limit=abc&offset=-3")
	if p.Limit != DefaultLimit || p.Offset != 0 {
		t.Errorf("unexpected params %+v", p)
	}
}

func TestNewResponse_HasMore(t *testing.T) {
	r := NewResponse(nil, 45, 20, 20)
	if !r.HasMore {
		t.Error("expected more pages at offset 20 of 45")
	}
	r = NewResponse(nil, 45, 20, 40)
	if r.HasMore {
		t.Error("expected last page at offset 40 of 45")
	}
}
