// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dberr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/shiftsphere/internal/platform/dberr"
)

func TestUniqueViolation(t *testing.T) {
	wrapped := fmt.Errorf("insert: %w", &pgconn.PgError{
		Code:           pgerrcode.UniqueViolation,
		ConstraintName: "account_email_key",
	})

	constraint, ok := dberr.UniqueViolation(wrapped)
	assert.True(t, ok)
	assert.Equal(t, "account_email_key", constraint)

	_, ok = dberr.UniqueViolation(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation})
	assert.False(t, ok)

	_, ok = dberr.UniqueViolation(errors.New("boom"))
	assert.False(t, ok)
}

func TestIsNoRows(t *testing.T) {
	assert.True(t, dberr.IsNoRows(fmt.Errorf("find: %w", pgx.ErrNoRows)))
	assert.False(t, dberr.IsNoRows(errors.New("boom")))
}

func TestForeignKeyViolation(t *testing.T) {
	assert.True(t, dberr.ForeignKeyViolation(fmt.Errorf("add: %w", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation})))
	assert.False(t, dberr.ForeignKeyViolation(&pgconn.PgError{Code: pgerrcode.UniqueViolation}))
}
