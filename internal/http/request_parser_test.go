package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"finanzas/internal/core"
)

var fixedNow = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

func TestParsePeriodParams(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    core.Period
		wantErr error
	}{
		{"defaults to current month", "", core.Period{Year: 2024, Month: 3}, nil},
		{"explicit", "month=1&year=2023", core.Period{Year: 2023, Month: 1}, nil},
		{"december", "month=12", core.Period{Year: 2024, Month: 12}, nil},
		{"whole year", "month=0&year=2022", core.Period{Year: 2022}, nil},
		{"all keyword", "month=all", core.Period{Year: 2024}, nil},
		{"month 13", "month=13", core.Period{}, core.ErrInvalidArgument},
		{"negative month", "month=-1", core.Period{}, core.ErrInvalidArgument},
		{"bad month", "month=marzo", core.Period{}, core.ErrInvalidArgument},
		{"bad year", "year=abc", core.Period{}, core.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got, err := ParsePeriodParams(q, fixedNow, time.UTC)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("got %+v, %v; want %+v", got, err, tt.want)
			}
		})
	}
}

func TestParsePeriodParamsUsesZone(t *testing.T) {
	// 23:30 UTC on March 31st is already April in Madrid.
	now := time.Date(2024, time.March, 31, 23, 30, 0, 0, time.UTC)
	madrid, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	got, err := ParsePeriodParams(url.Values{}, now, madrid)
	if err != nil || got.Month != 4 {
		t.Errorf("got %+v, %v", got, err)
	}
}

func TestParseYearParam(t *testing.T) {
	if y, err := ParseYearParam(url.Values{}, fixedNow, time.UTC); err != nil || y != 2024 {
		t.Errorf("default = %d, %v", y, err)
	}
	if y, err := ParseYearParam(url.Values{"year": {"2021"}}, fixedNow, time.UTC); err != nil || y != 2021 {
		t.Errorf("explicit = %d, %v", y, err)
	}
	if _, err := ParseYearParam(url.Values{"year": {"0"}}, fixedNow, time.UTC); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("zero year err = %v", err)
	}
}

func newBodyRequest(body, contentType string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("Content-Type", contentType)
	return r
}

func TestParseDraft(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		ctype   string
		want    core.Draft
		wantErr error
	}{
		{
			name:  "json",
			body:  `{"type":"expense","amount":"12,50","description":" pan ","date":"2024-03-10"}`,
			ctype: "application/json",
			want:  core.Draft{Kind: core.Expense, Amount: core.Money{Cents: 1250}, Description: "pan", Date: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)},
		},
		{
			name:  "json numeric amount",
			body:  `{"type":"income","amount":100.5,"date":"2024-02-01"}`,
			ctype: "application/json",
			want:  core.Draft{Kind: core.Income, Amount: core.Money{Cents: 10050}, Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		},
		{
			name:  "form with legacy label and default date",
			body:  "type=gasto&amount=3.999&description=caf%C3%A9",
			ctype: "application/x-www-form-urlencoded",
			want:  core.Draft{Kind: core.Expense, Amount: core.Money{Cents: 400}, Description: "café", Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		},
		{"bad type", "type=transfer&amount=1", "application/x-www-form-urlencoded", core.Draft{}, core.ErrValidation},
		{"negative amount", "type=income&amount=-5", "application/x-www-form-urlencoded", core.Draft{}, core.ErrValidation},
		{"bad date", "type=income&amount=5&date=15/03/2024", "application/x-www-form-urlencoded", core.Draft{}, core.ErrValidation},
		{"malformed json", `{"type":`, "application/json", core.Draft{}, core.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewRequestBodyParser(newBodyRequest(tt.body, tt.ctype)).ParseDraft(fixedNow, time.UTC)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got.Kind != tt.want.Kind || got.Amount != tt.want.Amount || got.Description != tt.want.Description || !got.Date.Equal(tt.want.Date) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSessionToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if sessionToken(r) != "" {
		t.Error("expected empty token")
	}
	r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "from-cookie"})
	if got := sessionToken(r); got != "from-cookie" {
		t.Errorf("cookie token = %q", got)
	}
	r.Header.Set("Authorization", "Bearer from-header")
	if got := sessionToken(r); got != "from-header" {
		t.Errorf("bearer token = %q", got)
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  a\x00b\tc\x07 "); got != "ab\tc" {
		t.Errorf("got %q", got)
	}
}
