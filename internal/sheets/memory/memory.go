// Package memory holds an in-memory SnapshotWriter used by tests and by
// local runs without spreadsheet credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"fundbook/internal/core"
	ports "fundbook/internal/sheets"
)

type Store struct {
	mu            sync.Mutex
	contributions map[string]core.Contribution
	accounts      map[string]core.WithdrawalAccount
	writes        int
	failWith      error
	onWrite       func()
}

var _ ports.SnapshotWriter = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		contributions: make(map[string]core.Contribution),
		accounts:      make(map[string]core.WithdrawalAccount),
	}
}

// FailWith makes every subsequent write return err. Pass nil to recover.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// OnWrite installs a callback that runs during each write, before it is
// recorded. Tests use it to interleave work with an in-flight export.
func (s *Store) OnWrite(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onWrite = fn
}

func (s *Store) WriteContribution(ctx context.Context, c *core.Contribution) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return "", s.failWith
	}
	if s.onWrite != nil {
		s.onWrite()
	}
	s.contributions[c.ID] = *c
	s.writes++
	return fmt.Sprintf("memory:contribution:%s", c.ID), nil
}

func (s *Store) WriteWithdrawalAccount(ctx context.Context, a *core.WithdrawalAccount) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return "", s.failWith
	}
	if s.onWrite != nil {
		s.onWrite()
	}
	s.accounts[a.ID] = *a
	s.writes++
	return fmt.Sprintf("memory:withdrawal:%s", a.ID), nil
}

func (s *Store) Contribution(id string) (core.Contribution, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contributions[id]
	return c, ok
}

func (s *Store) Account(id string) (core.WithdrawalAccount, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	return a, ok
}

func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
