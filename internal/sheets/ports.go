package sheets

import (
	"context"

	"fundbook/internal/core"
)

// Ports for outbound adapters.
type (
	// SnapshotWriter mirrors ledger aggregates into the committee
	// spreadsheet. Writes are upserts keyed by aggregate id, so replaying
	// a sync message is harmless.
	SnapshotWriter interface {
		WriteContribution(ctx context.Context, c *core.Contribution) (rowRef string, err error)
		WriteWithdrawalAccount(ctx context.Context, a *core.WithdrawalAccount) (rowRef string, err error)
	}
)
