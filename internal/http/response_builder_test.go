package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pocketmoney/internal/core"
	"pocketmoney/internal/services"
)

func TestResponseBuilder_JSON(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Status(http.StatusCreated).
		Header("X-Custom", "value").
		JSON(map[string]int{"n": 1}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := w.Header().Get("X-Custom"); got != "value" {
		t.Errorf("X-Custom = %q", got)
	}
	if strings.TrimSpace(w.Body.String()) != `{"n":1}` {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestResponseBuilder_NoBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().Status(http.StatusNoContent).Write(w)

	if w.Code != http.StatusNoContent {
		t.Errorf("Status code = %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Body = %q, want empty", w.Body.String())
	}
}

func TestErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()
	BadRequestError("nope").Write(w)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Status code = %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != `{"error":"nope"}` {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrUnknownAccount, http.StatusNotFound},
		{fmt.Errorf("goal %q: %w", "g", core.ErrUnknownGoal), http.StatusNotFound},
		{core.ErrUnknownMission, http.StatusNotFound},
		{core.ErrInvalidAmount, http.StatusBadRequest},
		{errors.Join(core.ErrInvalidTheme, core.ErrInvalidWeekday), http.StatusBadRequest},
		{fmt.Errorf("%w: empty body", errBadRequest), http.StatusBadRequest},
		{core.ErrInvalidTransition, http.StatusConflict},
		{services.ErrGuardianExists, http.StatusConflict},
		{core.ErrInsufficientFunds, http.StatusConflict},
		{core.ErrCardFrozen, http.StatusForbidden},
		{fmt.Errorf("%w: Games", core.ErrCategoryBlocked), http.StatusForbidden},
		{core.ErrDailyLimitExceeded, http.StatusForbidden},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := StatusFor(tt.err); got != tt.want {
				t.Errorf("StatusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}
