package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"budgetcal/internal/core"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto HTTP statuses: missing rows become 404,
// validation failures 422, everything else 500 with the detail kept out of
// the response body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidRecurrence),
		errors.Is(err, core.ErrEmptyName):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

func pathYearMonth(r *http.Request) (core.YearMonth, error) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		return core.YearMonth{}, fmt.Errorf("invalid year %q", r.PathValue("year"))
	}
	month, err := strconv.Atoi(r.PathValue("month"))
	if err != nil {
		return core.YearMonth{}, fmt.Errorf("invalid month %q", r.PathValue("month"))
	}
	ym := core.NewYearMonth(year, month)
	if err := ym.Validate(); err != nil {
		return core.YearMonth{}, err
	}
	return ym, nil
}

// parseSignedAmount parses a monetary value that may be zero or negative,
// still capped at two fraction digits.
func parseSignedAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", core.ErrInvalidAmount, s)
	}
	if !d.Equal(d.Round(2)) {
		return decimal.Zero, fmt.Errorf("%w: more than two fraction digits in %s", core.ErrInvalidAmount, d)
	}
	return d, nil
}

// recurrenceRequest is the wire shape of a recurrence: a kind plus the one
// parameter that kind needs.
type recurrenceRequest struct {
	Kind       string `json:"kind"`
	DayOfMonth int    `json:"day_of_month,omitempty"`
	Weekday    int    `json:"weekday,omitempty"`
	Anchor     string `json:"anchor,omitempty"`
}

func (req recurrenceRequest) toRecurrence() (core.Recurrence, error) {
	switch core.RecurrenceKind(req.Kind) {
	case core.RecurMonthly:
		return core.Monthly{DayOfMonth: req.DayOfMonth}, nil
	case core.RecurWeekly:
		return core.Weekly{Weekday: req.Weekday}, nil
	case core.RecurBiWeekly:
		anchor, err := core.ParseDate(req.Anchor)
		if err != nil {
			return nil, err
		}
		return core.BiWeekly{Anchor: anchor}, nil
	case core.RecurOneTime:
		return core.OneTime{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", core.ErrInvalidRecurrence, req.Kind)
	}
}

func recurrenceToRequest(rec core.Recurrence) recurrenceRequest {
	out := recurrenceRequest{Kind: string(rec.Kind())}
	switch v := rec.(type) {
	case core.Monthly:
		out.DayOfMonth = v.DayOfMonth
	case core.Weekly:
		out.Weekday = v.Weekday
	case core.BiWeekly:
		out.Anchor = v.Anchor.String()
	}
	return out
}

type occurrenceResponse struct {
	ID         int64  `json:"id"`
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	Amount     string `json:"amount"`
	Date       string `json:"date"`
	Year       int    `json:"year"`
	Month      int    `json:"month"`
	TemplateID *int64 `json:"template_id,omitempty"`
}

func toOccurrenceResponse(o *core.Occurrence) occurrenceResponse {
	return occurrenceResponse{
		ID:         o.ID,
		Kind:       string(o.Kind),
		Name:       o.Name,
		Amount:     o.Amount.StringFixed(2),
		Date:       o.Date.String(),
		Year:       o.Year,
		Month:      o.Month,
		TemplateID: o.TemplateID,
	}
}

func toOccurrenceResponses(occurrences []*core.Occurrence) []occurrenceResponse {
	out := make([]occurrenceResponse, 0, len(occurrences))
	for _, o := range occurrences {
		out = append(out, toOccurrenceResponse(o))
	}
	return out
}

type templateResponse struct {
	ID         int64             `json:"id"`
	Name       string            `json:"name"`
	Amount     string            `json:"amount"`
	Recurrence recurrenceRequest `json:"recurrence"`
	Active     bool              `json:"active"`
}

func toTemplateResponse(t *core.Template) templateResponse {
	return templateResponse{
		ID:         t.ID,
		Name:       t.Name,
		Amount:     t.Amount.StringFixed(2),
		Recurrence: recurrenceToRequest(t.Recurrence),
		Active:     t.Active,
	}
}

type dailyBalanceResponse struct {
	Date    string `json:"date"`
	Balance string `json:"balance"`
}

func toDailyBalanceResponses(balances []core.DailyBalance) []dailyBalanceResponse {
	out := make([]dailyBalanceResponse, 0, len(balances))
	for _, b := range balances {
		out = append(out, dailyBalanceResponse{Date: b.Date.String(), Balance: b.Balance.StringFixed(2)})
	}
	return out
}

type accountResponse struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	StartingBalance string `json:"starting_balance"`
}

func toAccountResponse(a *core.Account) accountResponse {
	return accountResponse{
		ID:              a.ID,
		Name:            a.Name,
		StartingBalance: a.StartingBalance.StringFixed(2),
	}
}
