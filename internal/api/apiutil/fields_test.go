package apiutil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestParsePositiveInt64Field(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int64
		wantErr bool
	}{
		{"valid", "42", 42, false},
		{"trimmed", "  7 ", 7, false},
		{"empty", "", 0, true},
		{"zero", "0", 0, true},
		{"negative", "-3", 0, true},
		{"not a number", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePositiveInt64Field(tt.raw, "id")
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIDFromPath(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/teams/15", nil)
	req.SetPathValue("id", "15")

	got, err := IDFromPath(req, "id")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 15 {
		t.Fatalf("got %d, want 15", got)
	}
}

func TestParseDateField(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"rfc3339", "2026-09-04T19:30:00Z", time.Date(2026, 9, 4, 19, 30, 0, 0, time.UTC)},
		{"date only", "2026-09-04", time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC)},
		{"date and time", "2026-09-04T19:30", time.Date(2026, 9, 4, 19, 30, 0, 0, time.UTC)},
		{"with seconds", "2026-09-04T19:30:05", time.Date(2026, 9, 4, 19, 30, 5, 0, time.UTC)},
		{"space separator", "2026-09-04 19:30", time.Date(2026, 9, 4, 19, 30, 0, 0, time.UTC)},
		{"space separator with seconds", "2026-09-04 19:30:05", time.Date(2026, 9, 4, 19, 30, 5, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDateField(tt.raw, "date")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}

	for _, raw := range []string{"", "not-a-date", "04/09/2026"} {
		if _, err := ParseDateField(raw, "date"); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestFieldErrorsNameTheField(t *testing.T) {
	var fieldErr FieldError

	_, err := ParsePositiveInt64Field("", "teamId")
	if !errors.As(err, &fieldErr) || fieldErr.Field != "teamId" {
		t.Fatalf("expected field error for teamId, got %v", err)
	}

	_, err = ParseDateField("nope", "date")
	if !errors.As(err, &fieldErr) || fieldErr.Field != "date" {
		t.Fatalf("expected field error for date, got %v", err)
	}
}
