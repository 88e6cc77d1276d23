package common

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestWrappedErrorsMatchByCode(t *testing.T) {
	t.Parallel()

	cause := errors.New("open table.csv: no such file")
	err := fmt.Errorf("load: %w", Wrap(ErrDataUnavailable, cause))

	if !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("expected DataUnavailable to match")
	}
	if errors.Is(err, ErrNoMatch) {
		t.Fatalf("did not expect NoMatch to match")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable")
	}

	ce := AsCustomError(err)
	if ce.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", ce.Status)
	}
	if resp := ce.ToResponse(false); resp.Details != "" {
		t.Fatalf("expected no details outside debug, got %q", resp.Details)
	}
	if resp := ce.ToResponse(true); !strings.Contains(resp.Details, "no such file") {
		t.Fatalf("expected cause in debug details, got %q", resp.Details)
	}
}

func TestAsCustomErrorDefaultsToInternal(t *testing.T) {
	t.Parallel()

	ce := AsCustomError(errors.New("boom"))
	if ce.Code != ErrCodeInternalError || ce.Status != http.StatusInternalServerError {
		t.Fatalf("unexpected error %+v", ce)
	}
}

func TestRound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     float64
		places int
		want   float64
	}{
		{32.68549, 4, 32.6855},
		{-0.41249, 3, -0.412},
		{66.666, 1, 66.7},
		{2, 3, 2},
	}
	for _, tt := range tests {
		if got := Round(tt.in, tt.places); got != tt.want {
			t.Fatalf("Round(%v, %d) = %v, want %v", tt.in, tt.places, got, tt.want)
		}
	}
}

func TestDecodeJSONRejectsTrailingData(t *testing.T) {
	t.Parallel()

	var v map[string]int
	if err := DecodeJSON(strings.NewReader(`{"a":1}`), &v); err != nil || v["a"] != 1 {
		t.Fatalf("decode: %v %v", v, err)
	}
	if err := DecodeJSON(strings.NewReader(`{"a":1} {"b":2}`), &v); err == nil {
		t.Fatalf("expected trailing data error")
	}
}

func TestWriteJSONIndentKeepsNonASCII(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteJSONIndent(&buf, map[string]string{"name": "jalapeño & <chili>"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), "jalapeño & <chili>") {
		t.Fatalf("unexpected output %s", buf.String())
	}
}
