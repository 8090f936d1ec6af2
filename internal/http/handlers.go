package http

import (
	"net/http"

	"budgetcal/internal/cache"
	"budgetcal/internal/core"
	"budgetcal/internal/services"
)

type monthViewResponse struct {
	Year          int                    `json:"year"`
	Month         int                    `json:"month"`
	Expenses      []occurrenceResponse   `json:"expenses"`
	Income        []occurrenceResponse   `json:"income"`
	DailyBalances []dailyBalanceResponse `json:"daily_balances"`
}

func toMonthViewResponse(ym core.YearMonth, view *services.MonthView) monthViewResponse {
	return monthViewResponse{
		Year:          ym.Year,
		Month:         ym.Month,
		Expenses:      toOccurrenceResponses(view.Expenses),
		Income:        toOccurrenceResponses(view.Income),
		DailyBalances: toDailyBalanceResponses(view.DailyBalances),
	}
}

// handleGetCalendar materializes the month's recurring entries and returns
// the full view. Responses are cached per (owner, month) until a mutation
// drops the owner's entries.
func (s *Server) handleGetCalendar(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerFrom(r.Context())
	ym, err := pathYearMonth(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	key := cache.MonthKey(ownerID, ym)
	if view, ok := s.monthCache.Get(key); ok {
		writeJSON(w, http.StatusOK, toMonthViewResponse(ym, view))
		return
	}

	view, err := s.budget.MaterializeAndListMonth(r.Context(), ownerID, ym)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.monthCache.Set(key, view)
	writeJSON(w, http.StatusOK, toMonthViewResponse(ym, view))
}

func (s *Server) handleGetBalances(w http.ResponseWriter, r *http.Request) {
	ym, err := pathYearMonth(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	balances, err := s.budget.DailyBalances(r.Context(), ownerFrom(r.Context()), ym)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDailyBalanceResponses(balances))
}

type createOccurrenceRequest struct {
	Kind   string `json:"kind"`
	Name   string `json:"name"`
	Amount string `json:"amount"`
	Date   string `json:"date"`
}

func (s *Server) handleCreateOccurrence(w http.ResponseWriter, r *http.Request) {
	var req createOccurrenceRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ownerID := ownerFrom(r.Context())
	occ, err := s.occurrences.CreateOccurrence(r.Context(), ownerID, core.OccurrenceKind(req.Kind), req.Name, amount, date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateOwner(ownerID)
	writeJSON(w, http.StatusCreated, toOccurrenceResponse(occ))
}

func (s *Server) handleGetOccurrence(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	occ, err := s.occurrences.GetOccurrence(r.Context(), ownerFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOccurrenceResponse(occ))
}

type updateOccurrenceRequest struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
	Date   string `json:"date"`
}

func (s *Server) handleUpdateOccurrence(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	var req updateOccurrenceRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ownerID := ownerFrom(r.Context())
	occ, err := s.occurrences.UpdateOccurrence(r.Context(), ownerID, id, req.Name, amount, date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateOwner(ownerID)
	writeJSON(w, http.StatusOK, toOccurrenceResponse(occ))
}

type updateAmountRequest struct {
	Amount string `json:"amount"`
}

// handleUpdateOccurrenceAmount is the quick-edit path: adjust how much one
// instance costs without touching its name or date.
func (s *Server) handleUpdateOccurrenceAmount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	var req updateAmountRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ownerID := ownerFrom(r.Context())
	occ, err := s.occurrences.UpdateAmount(r.Context(), ownerID, id, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateOwner(ownerID)
	writeJSON(w, http.StatusOK, toOccurrenceResponse(occ))
}

type moveOccurrenceRequest struct {
	Date string `json:"date"`
}

func (s *Server) handleMoveOccurrence(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	var req moveOccurrenceRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ownerID := ownerFrom(r.Context())
	occ, err := s.budget.MoveOccurrence(r.Context(), ownerID, id, date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateOwner(ownerID)
	writeJSON(w, http.StatusOK, toOccurrenceResponse(occ))
}

func (s *Server) handleDeleteOccurrence(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	ownerID := ownerFrom(r.Context())
	if err := s.occurrences.DeleteOccurrence(r.Context(), ownerID, id); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateOwner(ownerID)
	w.WriteHeader(http.StatusNoContent)
}

type templateRequest struct {
	Name       string            `json:"name"`
	Amount     string            `json:"amount"`
	Recurrence recurrenceRequest `json:"recurrence"`
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	recurrence, err := req.Recurrence.toRecurrence()
	if err != nil {
		writeError(w, r, err)
		return
	}

	tmpl, err := s.templates.CreateTemplate(r.Context(), ownerFrom(r.Context()), &core.Template{
		Name:       req.Name,
		Amount:     amount,
		Recurrence: recurrence,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTemplateResponse(tmpl))
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.templates.ListActiveTemplates(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]templateResponse, 0, len(templates))
	for _, t := range templates {
		out = append(out, toTemplateResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	tmpl, err := s.templates.GetTemplate(r.Context(), ownerFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateResponse(tmpl))
}

// handleUpdateTemplate edits a template. With ?retroactive=true the edit
// also rewrites the template's already-materialized occurrences dated today
// or later; the past stays untouched.
func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	var req templateRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	recurrence, err := req.Recurrence.toRecurrence()
	if err != nil {
		writeError(w, r, err)
		return
	}

	retroactive := r.URL.Query().Get("retroactive") == "true"
	ownerID := ownerFrom(r.Context())
	tmpl, err := s.templates.UpdateTemplate(r.Context(), ownerID, id, services.TemplateUpdate{
		Name:       req.Name,
		Amount:     amount,
		Recurrence: recurrence,
	}, retroactive)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateOwner(ownerID)
	writeJSON(w, http.StatusOK, toTemplateResponse(tmpl))
}

type deactivateTemplateRequest struct {
	DeleteFutureInstances bool `json:"delete_future_instances"`
}

func (s *Server) handleDeactivateTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var req deactivateTemplateRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			writeBadRequest(w, err.Error())
			return
		}
	}

	ownerID := ownerFrom(r.Context())
	if err := s.templates.DeactivateTemplate(r.Context(), ownerID, id, req.DeleteFutureInstances); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateOwner(ownerID)
	w.WriteHeader(http.StatusNoContent)
}

type instantiateTemplateRequest struct {
	Date string `json:"date"`
}

// handleInstantiateTemplate drops one extra instance of a template onto an
// arbitrary date.
func (s *Server) handleInstantiateTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	var req instantiateTemplateRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ownerID := ownerFrom(r.Context())
	occ, err := s.budget.CreateOccurrenceFromTemplate(r.Context(), ownerID, id, date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateOwner(ownerID)
	writeJSON(w, http.StatusCreated, toOccurrenceResponse(occ))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.accounts.GetPrimaryAccount(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

type updateBalanceRequest struct {
	StartingBalance string `json:"starting_balance"`
}

func (s *Server) handleUpdateAccountBalance(w http.ResponseWriter, r *http.Request) {
	var req updateBalanceRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	// Parsed directly, not through ParseAmount: a starting balance may be
	// zero or negative.
	balance, err := parseSignedAmount(req.StartingBalance)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ownerID := ownerFrom(r.Context())
	account, err := s.accounts.UpdateStartingBalance(r.Context(), ownerID, balance)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateOwner(ownerID)
	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

type updateAccountNameRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleUpdateAccountName(w http.ResponseWriter, r *http.Request) {
	var req updateAccountNameRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	account, err := s.accounts.UpdateName(r.Context(), ownerFrom(r.Context()), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}
