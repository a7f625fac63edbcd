package http

import (
	"net/http"

	"fundbook/internal/core"
)

type createWithdrawalRequest struct {
	Name    string     `json:"name"`
	Amount  core.Money `json:"amount"`
	Purpose string     `json:"purpose"`
}

type addEntryRequest struct {
	Amount  core.Money `json:"amount"`
	Purpose string     `json:"purpose"`
}

type addUsageRequest struct {
	EntryID string     `json:"entryId"`
	Amount  core.Money `json:"amount"`
	Purpose string     `json:"purpose"`
}

func (s *Server) handleListWithdrawals(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.withdrawals.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	dtos := make([]withdrawalAccountDTO, 0, len(accounts))
	for i := range accounts {
		dtos = append(dtos, toWithdrawalAccountDTO(&accounts[i]))
	}
	grandTotal := core.GrandTotalWithdrawn(accounts)
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: dtos, GrandTotal: &grandTotal})
}

func (s *Server) handleCreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req createWithdrawalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := s.withdrawals.Create(r.Context(), req.Name, req.Amount, req.Purpose)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrRejection("create_withdrawal")
		}
		writeServiceError(w, r, err)
		return
	}

	if s.metrics != nil {
		s.metrics.IncrMutation("create_withdrawal")
	}
	s.invalidateSummary()
	writeSuccess(w, http.StatusCreated, toWithdrawalAccountDTO(a))
}

func (s *Server) handleGetWithdrawal(w http.ResponseWriter, r *http.Request) {
	a, err := s.withdrawals.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toWithdrawalAccountDTO(a))
}

func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	var req addEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := s.withdrawals.AddEntry(r.Context(), r.PathValue("id"), req.Amount, req.Purpose)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrRejection("add_withdrawal_entry")
		}
		writeServiceError(w, r, err)
		return
	}

	if s.metrics != nil {
		s.metrics.IncrMutation("add_withdrawal_entry")
	}
	s.invalidateSummary()
	writeSuccess(w, http.StatusOK, toWithdrawalAccountDTO(a))
}

func (s *Server) handleAddUsage(w http.ResponseWriter, r *http.Request) {
	var req addUsageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := s.withdrawals.AddUsage(r.Context(), r.PathValue("id"), req.EntryID, req.Amount, req.Purpose)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrRejection("add_usage")
		}
		writeServiceError(w, r, err)
		return
	}

	if s.metrics != nil {
		s.metrics.IncrMutation("add_usage")
	}
	s.invalidateSummary()
	writeSuccess(w, http.StatusOK, toWithdrawalAccountDTO(a))
}
