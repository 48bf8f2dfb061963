package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	commitErr  error
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return f.commitErr
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolledBack = true
	return nil
}

type fakeBeginner struct {
	tx   *fakeTx
	opts pgx.TxOptions
	err  error
}

func (f *fakeBeginner) BeginTx(_ context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.tx, nil
}

func TestWithTxCommits(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	require.NoError(t, WithTx(context.Background(), b, opts, func(pgx.Tx) error { return nil }))
	assert.True(t, b.tx.committed)
	assert.Equal(t, opts, b.opts)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	boom := errors.New("boom")
	err := WithTx(context.Background(), b, pgx.TxOptions{}, func(pgx.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, b.tx.committed)
	assert.True(t, b.tx.rolledBack)
}

func TestWithTxReportsBeginAndCommitFailures(t *testing.T) {
	err := WithTx(context.Background(), &fakeBeginner{err: errors.New("no conn")}, pgx.TxOptions{}, func(pgx.Tx) error {
		t.Fatal("fn must not run")
		return nil
	})
	assert.ErrorContains(t, err, "begin tx")

	b := &fakeBeginner{tx: &fakeTx{commitErr: errors.New("serialization failure")}}
	err = WithTx(context.Background(), b, pgx.TxOptions{}, func(pgx.Tx) error { return nil })
	assert.ErrorContains(t, err, "commit tx")
}
