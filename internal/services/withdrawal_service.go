package services

import (
	"context"
	"log/slog"

	"fundbook/internal/core"
	"fundbook/internal/storage"
)

// WithdrawalService orchestrates withdrawal account operations across
// SQLite and AMQP.
type WithdrawalService struct {
	storage   *storage.Repository
	publisher SyncPublisher
}

func NewWithdrawalService(storage *storage.Repository, publisher SyncPublisher) *WithdrawalService {
	return &WithdrawalService{
		storage:   storage,
		publisher: publisher,
	}
}

func (s *WithdrawalService) Create(ctx context.Context, name string, amount core.Money, purpose string) (*core.WithdrawalAccount, error) {
	a, err := s.storage.CreateWithdrawalAccount(ctx, name, amount, purpose)
	if err != nil {
		return nil, err
	}
	s.publishSync(ctx, a.ID, a.Version)
	return a, nil
}

func (s *WithdrawalService) Get(ctx context.Context, id string) (*core.WithdrawalAccount, error) {
	return s.storage.GetWithdrawalAccount(ctx, id)
}

func (s *WithdrawalService) List(ctx context.Context) ([]core.WithdrawalAccount, error) {
	return s.storage.ListWithdrawalAccounts(ctx)
}

func (s *WithdrawalService) AddEntry(ctx context.Context, id string, amount core.Money, purpose string) (*core.WithdrawalAccount, error) {
	a, err := s.storage.AddEntry(ctx, id, amount, purpose)
	if err != nil {
		return nil, err
	}
	s.publishSync(ctx, a.ID, a.Version)
	return a, nil
}

func (s *WithdrawalService) AddUsage(ctx context.Context, id, entryID string, amount core.Money, purpose string) (*core.WithdrawalAccount, error) {
	a, err := s.storage.AddUsage(ctx, id, entryID, amount, purpose)
	if err != nil {
		return nil, err
	}
	s.publishSync(ctx, a.ID, a.Version)
	return a, nil
}

// GrandTotal sums withdrawals across every account.
func (s *WithdrawalService) GrandTotal(ctx context.Context) (core.Money, error) {
	accounts, err := s.storage.ListWithdrawalAccounts(ctx)
	if err != nil {
		return core.Money{}, err
	}
	return core.GrandTotalWithdrawn(accounts), nil
}

func (s *WithdrawalService) publishSync(ctx context.Context, id string, version int64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerSync(ctx, storage.KindWithdrawal, id, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"kind", storage.KindWithdrawal,
			"id", id,
			"error", err)
	}
}
