package testhelpers

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
)

// FakeTx records Commit/Rollback for unit tests of services whose repositories are mocked.
// Every other pgx.Tx method panics through the nil embedded interface.
type FakeTx struct {
	pgx.Tx

	mu         sync.Mutex
	CommitErr  error
	committed  bool
	rolledBack bool
}

func (f *FakeTx) Commit(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CommitErr != nil {
		return f.CommitErr
	}
	f.committed = true
	return nil
}

func (f *FakeTx) Rollback(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.committed {
		f.rolledBack = true
	}
	return nil
}

// Committed reports whether Commit succeeded.
func (f *FakeTx) Committed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.committed
}

// RolledBack reports whether the transaction ended without a commit.
func (f *FakeTx) RolledBack() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rolledBack
}

// FakeTxManager hands out FakeTx values and keeps them for inspection.
type FakeTxManager struct {
	mu       sync.Mutex
	BeginErr error
	Txs      []*FakeTx
}

func (m *FakeTxManager) BeginTx(_ context.Context) (pgx.Tx, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BeginErr != nil {
		return nil, m.BeginErr
	}
	tx := &FakeTx{}
	m.Txs = append(m.Txs, tx)
	return tx, nil
}

// Last returns the most recently opened transaction.
func (m *FakeTxManager) Last() *FakeTx {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Txs) == 0 {
		return nil
	}
	return m.Txs[len(m.Txs)-1]
}
