package services

import (
	"context"

	"fundbook/internal/core"
	"fundbook/internal/storage"
)

// SummaryService computes fund-wide aggregates over both ledgers.
type SummaryService struct {
	storage *storage.Repository
}

func NewSummaryService(storage *storage.Repository) *SummaryService {
	return &SummaryService{storage: storage}
}

func (s *SummaryService) Overview(ctx context.Context) (core.FundOverview, error) {
	contributions, err := s.storage.ListContributions(ctx)
	if err != nil {
		return core.FundOverview{}, err
	}
	accounts, err := s.storage.ListWithdrawalAccounts(ctx)
	if err != nil {
		return core.FundOverview{}, err
	}
	return core.Overview(contributions, accounts), nil
}
