package http

import (
	"net/http"

	"budgetcare/internal/log"
)

func (s *Server) handleRecordBill(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	var req billRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}

	saved, err := s.deps.Expenses.RecordBill(r.Context(), uid, req.toService())
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"receipt_id": saved[0].ReceiptID,
		"items":      newExpenseList(saved),
	})
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	items, err := s.deps.Expenses.List(r.Context(), uid)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": newExpenseList(items)})
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	var req itemUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}

	e, err := s.deps.Expenses.Update(r.Context(), uid, r.PathValue("id"), req.toService())
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, newExpenseResponse(e))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.deps.Expenses.Delete(r.Context(), uid, r.PathValue("id")); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
