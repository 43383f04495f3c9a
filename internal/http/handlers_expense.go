package http

import (
	"net/http"
	"time"

	"spendlog/internal/core"
)

// timestampLayout matches the millisecond ISO 8601 form the web client and
// API consumers expect, e.g. 2024-01-15T09:30:00.000Z.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

type expenseJSON struct {
	ID          string  `json:"id"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

func newExpenseJSON(e core.Expense) expenseJSON {
	return expenseJSON{
		ID:          e.ID,
		Amount:      e.Amount.Float64(),
		Category:    e.Category,
		Description: e.Description,
		Date:        e.Date.UTC().Format(timestampLayout),
		CreatedAt:   e.CreatedAt.UTC().Format(timestampLayout),
		UpdatedAt:   e.UpdatedAt.UTC().Format(timestampLayout),
	}
}

// listPayload keeps expenses non-null so an empty result serializes as [].
type listPayload struct {
	Expenses []expenseJSON `json:"expenses"`
	Total    float64       `json:"total"`
	Count    int           `json:"count"`
}

func newListPayload(expenses []core.Expense) listPayload {
	out := make([]expenseJSON, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, newExpenseJSON(e))
	}
	return listPayload{
		Expenses: out,
		Total:    core.TotalAmount(expenses).Float64(),
		Count:    len(out),
	}
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeBodyFields(r)
	if err != nil {
		writeBodyError(w, err)
		return
	}
	draft, fieldErrs := core.ValidateCreate(fields, time.Now())
	if len(fieldErrs) > 0 {
		writeError(w, http.StatusBadRequest, "Validation error", fieldErrs)
		return
	}
	expense, err := s.service.Create(r.Context(), draft)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Expense created successfully", newExpenseJSON(expense))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	query, fieldErrs := core.ValidateQuery(r.URL.Query())
	if len(fieldErrs) > 0 {
		writeError(w, http.StatusBadRequest, "Validation error", fieldErrs)
		return
	}
	expenses, err := s.service.List(r.Context(), query)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Expenses retrieved successfully", newListPayload(expenses))
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	expense, err := s.service.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Expense retrieved successfully", newExpenseJSON(expense))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeBodyFields(r)
	if err != nil {
		writeBodyError(w, err)
		return
	}
	patch, fieldErrs := core.ValidateUpdate(fields, time.Now())
	if len(fieldErrs) > 0 {
		writeError(w, http.StatusBadRequest, "Validation error", fieldErrs)
		return
	}
	expense, err := s.service.UpdateByID(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Expense updated successfully", newExpenseJSON(expense))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if _, err := s.service.DeleteByID(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Expense deleted successfully", nil)
}
