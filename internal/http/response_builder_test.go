package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finanzas/internal/core"
)

func TestResponseBuilderJSONAndTriggers(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().
		Status(http.StatusCreated).
		TriggerTransactionCreated("tx-1", core.Period{Year: 2024, Month: 3}).
		Header("X-Custom", "value").
		JSON(map[string]int{"n": 1}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("content type = %q", ct)
	}
	if w.Header().Get("X-Custom") != "value" {
		t.Error("custom header missing")
	}
	var trig map[string]map[string]any
	if err := json.Unmarshal([]byte(w.Header().Get("HX-Trigger")), &trig); err != nil {
		t.Fatalf("HX-Trigger: %v", err)
	}
	ev := trig[EventTransactionCreated]
	if ev["id"] != "tx-1" || ev["year"] != float64(2024) || ev["month"] != float64(3) {
		t.Errorf("trigger = %v", ev)
	}
}

func TestResponseBuilderEmptyBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().Status(http.StatusNoContent).Write(w)
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Errorf("got %d %q", w.Code, w.Body.String())
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Error("no triggers expected")
	}
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		kind     string
		contains string
	}{
		{"validation", core.ErrInvalidAmount, http.StatusUnprocessableEntity, "validation_error", "invalid amount"},
		{"invalid argument", fmt.Errorf("%w: month 13", core.ErrInvalidArgument), http.StatusUnprocessableEntity, "invalid_argument", "month 13"},
		{"auth", fmt.Errorf("%w: session expired", core.ErrAuth), http.StatusUnauthorized, "auth_error", "session expired"},
		{"remote hides detail", fmt.Errorf("%w: dial tcp 10.0.0.1", core.ErrRemote), http.StatusBadGateway, "remote_error", "data store unavailable"},
		{"internal hides detail", errors.New("boom"), http.StatusInternalServerError, "internal_error", "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			FromError(tt.err).Write(w)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			var body errorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Kind != tt.kind || !strings.Contains(body.Error, tt.contains) {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	w := httptest.NewRecorder()
	MethodNotAllowed("POST").Write(w)
	if w.Code != http.StatusMethodNotAllowed || w.Header().Get("Allow") != "POST" {
		t.Errorf("got %d allow=%q", w.Code, w.Header().Get("Allow"))
	}
}
