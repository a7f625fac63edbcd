package services

import (
	"context"
	"log/slog"

	"fundbook/internal/core"
	"fundbook/internal/storage"
)

// SyncPublisher notifies the export worker about changed aggregates.
// Satisfied by the AMQP client; nil disables publishing.
type SyncPublisher interface {
	PublishLedgerSync(ctx context.Context, kind, id string, version int64) error
}

// ContributionService orchestrates contribution operations across SQLite
// and AMQP. Publish failures never fail the request: the ledger write is
// the source of truth and the worker's sweep catches up later.
type ContributionService struct {
	storage   *storage.Repository
	publisher SyncPublisher
}

func NewContributionService(storage *storage.Repository, publisher SyncPublisher) *ContributionService {
	return &ContributionService{
		storage:   storage,
		publisher: publisher,
	}
}

func (s *ContributionService) Create(ctx context.Context, name string, promised, initial core.Money) (*core.Contribution, error) {
	c, err := s.storage.CreateContribution(ctx, name, promised, initial)
	if err != nil {
		return nil, err
	}
	s.publishSync(ctx, c.ID, c.Version)
	return c, nil
}

func (s *ContributionService) Get(ctx context.Context, id string) (*core.Contribution, error) {
	return s.storage.GetContribution(ctx, id)
}

func (s *ContributionService) List(ctx context.Context) ([]core.Contribution, error) {
	return s.storage.ListContributions(ctx)
}

func (s *ContributionService) AddInstallment(ctx context.Context, id string, amount core.Money) (*core.Contribution, error) {
	c, err := s.storage.AddInstallment(ctx, id, amount)
	if err != nil {
		return nil, err
	}
	s.publishSync(ctx, c.ID, c.Version)
	return c, nil
}

func (s *ContributionService) publishSync(ctx context.Context, id string, version int64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerSync(ctx, storage.KindContribution, id, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"kind", storage.KindContribution,
			"id", id,
			"error", err)
	}
}
