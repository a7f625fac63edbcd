package http

import (
	"net/http"

	"fundbook/internal/core"
)

type createContributionRequest struct {
	Name           string     `json:"name"`
	PromisedAmount core.Money `json:"promisedAmount"`
	InitialPayment core.Money `json:"initialPayment"`
}

type installmentRequest struct {
	Amount core.Money `json:"amount"`
}

func (s *Server) handleListContributions(w http.ResponseWriter, r *http.Request) {
	contributions, err := s.contributions.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	dtos := make([]contributionDTO, 0, len(contributions))
	for i := range contributions {
		dtos = append(dtos, toContributionDTO(&contributions[i]))
	}
	writeSuccess(w, http.StatusOK, dtos)
}

func (s *Server) handleCreateContribution(w http.ResponseWriter, r *http.Request) {
	var req createContributionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := s.contributions.Create(r.Context(), req.Name, req.PromisedAmount, req.InitialPayment)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrRejection("create_collection")
		}
		writeServiceError(w, r, err)
		return
	}

	if s.metrics != nil {
		s.metrics.IncrMutation("create_collection")
	}
	s.invalidateSummary()
	writeSuccess(w, http.StatusCreated, toContributionDTO(c))
}

func (s *Server) handleGetContribution(w http.ResponseWriter, r *http.Request) {
	c, err := s.contributions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toContributionDTO(c))
}

func (s *Server) handleAddInstallment(w http.ResponseWriter, r *http.Request) {
	var req installmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := s.contributions.AddInstallment(r.Context(), r.PathValue("id"), req.Amount)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrRejection("add_installment")
		}
		writeServiceError(w, r, err)
		return
	}

	if s.metrics != nil {
		s.metrics.IncrMutation("add_installment")
	}
	s.invalidateSummary()
	writeSuccess(w, http.StatusOK, toContributionDTO(c))
}
