package http

// Request parsing shared by the handlers: period query parameters, the
// transaction body (JSON or form encoded) and the session token.

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finanzas/internal/core"
)

const (
	maxBodyBytes = 64 << 10
	dateLayout   = "2006-01-02"
	// SessionCookie carries the session token for browser clients.
	SessionCookie = "finanzas_session"
)

// ParsePeriodParams reads ?month=&year= with the current month as default.
// month=0 or month=all selects the whole year.
func ParsePeriodParams(q url.Values, now time.Time, loc *time.Location) (core.Period, error) {
	month, year := core.CurrentPeriods(now, loc)
	p := month
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return core.Period{}, fmt.Errorf("%w: invalid year %q", core.ErrInvalidArgument, v)
		}
		p.Year = y
	} else {
		p.Year = year.Year
	}
	v := strings.TrimSpace(q.Get("month"))
	switch v {
	case "":
		return p, nil
	case "0", "all":
		return core.YearPeriod(p.Year), nil
	}
	m, err := strconv.Atoi(v)
	if err != nil {
		return core.Period{}, fmt.Errorf("%w: invalid month %q", core.ErrInvalidArgument, v)
	}
	return core.MonthPeriod(p.Year, m)
}

// ParseYearParam reads ?year=, defaulting to the current year.
func ParseYearParam(q url.Values, now time.Time, loc *time.Location) (int, error) {
	_, year := core.CurrentPeriods(now, loc)
	v := strings.TrimSpace(q.Get("year"))
	if v == "" {
		return year.Year, nil
	}
	y, err := strconv.Atoi(v)
	if err != nil || y < 1 || y > 9999 {
		return 0, fmt.Errorf("%w: invalid year %q", core.ErrInvalidArgument, v)
	}
	return y, nil
}

// RequestBodyParser reads a JSON or form encoded body once.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body. Bodies starting with '{' are read as JSON,
// anything else as a form.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}
	body := strings.TrimSpace(string(p.body))
	if body == "" {
		p.formData = url.Values{}
		return nil
	}
	if body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(body), &p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: malformed JSON body", core.ErrValidation)
		}
		return p.err
	}
	p.formData, p.err = url.ParseQuery(body)
	if p.err != nil {
		p.err = fmt.Errorf("%w: malformed form body", core.ErrValidation)
	}
	return p.err
}

// Get returns a sanitized field value from either encoding.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if v, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(v))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseDraft builds a transaction draft from the body fields type, amount,
// description and date. A missing date means today in loc.
func (p *RequestBodyParser) ParseDraft(now time.Time, loc *time.Location) (core.Draft, error) {
	if err := p.Parse(); err != nil {
		return core.Draft{}, err
	}
	kind, err := core.ParseKind(p.Get("type"))
	if err != nil {
		return core.Draft{}, err
	}
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.Draft{}, err
	}
	if loc == nil {
		loc = time.Local
	}
	date := now.In(loc)
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	if v := p.Get("date"); v != "" {
		date, err = time.ParseInLocation(dateLayout, v, loc)
		if err != nil {
			return core.Draft{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, v)
		}
	}
	return core.Draft{Kind: kind, Amount: amount, Description: p.Get("description"), Date: date}, nil
}

// sessionToken returns the bearer token, or the session cookie value.
func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, tok, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// sanitizeInput trims and drops control characters other than tab and newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
