package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
)

type stubTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (s *stubTx) Commit(ctx context.Context) error {
	s.committed = true
	return nil
}

func (s *stubTx) Rollback(ctx context.Context) error {
	if s.committed {
		return pgx.ErrTxClosed
	}
	s.rolledBack = true
	return nil
}

type stubBeginner struct {
	tx  *stubTx
	err error
}

func (s stubBeginner) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.tx, nil
}

func TestWithTxCommits(t *testing.T) {
	tx := &stubTx{}
	if err := WithTx(context.Background(), stubBeginner{tx: tx}, func(ctx context.Context, tx pgx.Tx) error {
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tx.committed || tx.rolledBack {
		t.Fatalf("expected commit only got committed=%v rolledBack=%v", tx.committed, tx.rolledBack)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	tx := &stubTx{}
	want := errors.New("falhou")
	err := WithTx(context.Background(), stubBeginner{tx: tx}, func(ctx context.Context, tx pgx.Tx) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected %v got %v", want, err)
	}
	if tx.committed || !tx.rolledBack {
		t.Fatalf("expected rollback only")
	}
}

func TestWithTxBeginError(t *testing.T) {
	called := false
	err := WithTx(context.Background(), stubBeginner{err: errors.New("pool fechado")}, func(ctx context.Context, tx pgx.Tx) error {
		called = true
		return nil
	})
	if err == nil || called {
		t.Fatalf("expected begin error without calling fn")
	}
}
