// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/shiftsphere/internal/platform/database/schema"
	"github.com/taibuivan/shiftsphere/internal/platform/dberr"
	"github.com/taibuivan/shiftsphere/internal/platform/postgres"
	"github.com/taibuivan/shiftsphere/internal/platform/sec"
	"github.com/taibuivan/shiftsphere/pkg/pointer"
	"github.com/taibuivan/shiftsphere/pkg/uuid"
)

// # Query Fragments

var (
	accountTable = schema.UserAccount
	sessionTable = schema.UserSession

	accountColumns = strings.Join(accountTable.Columns(), ", ")
	selectAccount  = fmt.Sprintf("SELECT %s FROM %s", accountColumns, accountTable.Table)
)

// oneTimeColumns maps a purpose to its digest and expiry columns.
var oneTimeColumns = map[Purpose][2]string{
	PurposeVerifyEmail:   {accountTable.VerifyTokenDigest, accountTable.VerifyTokenExpiresAt},
	PurposeResetPassword: {accountTable.ResetTokenDigest, accountTable.ResetTokenExpiresAt},
}

// constraintFields maps unique constraint names to the field they guard.
var constraintFields = map[string]string{
	accountTable.EmailKey:            FieldEmail,
	accountTable.NationalIDNumberKey: FieldNationalIDNumber,
	accountTable.ExternalIDKey:       FieldExternalID,
}

// # Account Repository

// PostgresAccountStore implements [AccountStore] on top of pgx.
type PostgresAccountStore struct {
	pool *pgxpool.Pool
}

// NewPostgresAccountStore creates a PostgreSQL implementation of [AccountStore].
func NewPostgresAccountStore(pool *pgxpool.Pool) *PostgresAccountStore {
	return &PostgresAccountStore{pool: pool}
}

/*
FindByID retrieves an account by its primary key.

Description: Non-UUID input cannot match a row and short-circuits to
ErrAccountNotFound instead of surfacing a cast error.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *Account: Hydrated account entity
  - error: ErrAccountNotFound or database errors
*/
func (store *PostgresAccountStore) FindByID(context context.Context, id string) (*Account, error) {
	if !uuid.Valid(id) {
		return nil, ErrAccountNotFound
	}
	return store.findOne(context, "find_by_id", fmt.Sprintf("%s WHERE %s = $1", selectAccount, accountTable.ID), id)
}

// FindByEmail retrieves an account by its normalized email.
func (store *PostgresAccountStore) FindByEmail(context context.Context, email string) (*Account, error) {
	return store.findOne(context, "find_by_email", fmt.Sprintf("%s WHERE %s = $1", selectAccount, accountTable.Email), email)
}

// FindByExternalID retrieves an account by its linked Google subject.
func (store *PostgresAccountStore) FindByExternalID(context context.Context, externalID string) (*Account, error) {
	if externalID == "" {
		return nil, ErrAccountNotFound
	}
	return store.findOne(context, "find_by_external_id", fmt.Sprintf("%s WHERE %s = $1", selectAccount, accountTable.ExternalID), externalID)
}

/*
FindByEmailOrExternalID retrieves the account matching either key.

Description: Rows matching the external id sort first, so a linked identity
wins over an email match on a different record.
*/
func (store *PostgresAccountStore) FindByEmailOrExternalID(context context.Context, email, externalID string) (*Account, error) {
	query := fmt.Sprintf(
		"%s WHERE %s = $1 OR (%s = $2 AND $2 <> '') ORDER BY (%s = $2) DESC NULLS LAST LIMIT 1",
		selectAccount, accountTable.Email, accountTable.ExternalID, accountTable.ExternalID,
	)
	return store.findOne(context, "find_by_email_or_external_id", query, email, externalID)
}

// FindByNationalID retrieves an account by national ID number.
func (store *PostgresAccountStore) FindByNationalID(context context.Context, nationalID string) (*Account, error) {
	if nationalID == "" {
		return nil, ErrAccountNotFound
	}
	return store.findOne(context, "find_by_national_id", fmt.Sprintf("%s WHERE %s = $1", selectAccount, accountTable.NationalIDNumber), nationalID)
}

func (store *PostgresAccountStore) findOne(context context.Context, op, query string, args ...any) (*Account, error) {
	found, err := scanAccount(store.pool.QueryRow(context, query, args...))
	if err != nil {
		if dberr.IsNoRows(err) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("postgres_account_store_%s_failed: %w", op, err)
	}
	return found, nil
}

/*
Create persists a new account into the users.account table.

Description: Assigns a UUIDv7 and timestamps when not provided. Unique
constraint violations are reported as *DuplicateKeyError.

Parameters:
  - context: context.Context
  - account: *Account (Entity to persist)

Returns:
  - error: *DuplicateKeyError or connectivity errors
*/
func (store *PostgresAccountStore) Create(context context.Context, entity *Account) error {
	if entity.ID == "" {
		entity.ID = uuid.New()
	}
	now := time.Now().UTC()
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = now
	}
	entity.UpdatedAt = now

	placeholders := make([]string, len(accountTable.Columns()))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", accountTable.Table, accountColumns, strings.Join(placeholders, ", "))

	_, err := store.pool.Exec(context, query, accountValues(entity)...)
	if err != nil {
		return translateWriteError("create", err)
	}
	return nil
}

/*
Save replaces the profile and credential columns of an existing account.

Description: blockedat, createdat, the one-time token columns and the
session table are left untouched. emailverified only ever turns true.

Returns:
  - error: ErrAccountNotFound, *DuplicateKeyError or database errors
*/
func (store *PostgresAccountStore) Save(context context.Context, entity *Account) error {
	entity.UpdatedAt = time.Now().UTC()

	query := fmt.Sprintf(`
		UPDATE %s SET
			%s = $2, %s = $3, %s = $4, %s = $5, %s = $6, %s = $7, %s = $8,
			%s = $9, %s = $10, %s = %s OR $11, %s = $12
		WHERE %s = $1`,
		accountTable.Table,
		accountTable.Email, accountTable.Password, accountTable.Name, accountTable.NationalIDNumber, accountTable.Phone, accountTable.Role, accountTable.Avatar,
		accountTable.ExternalID, accountTable.Provider, accountTable.EmailVerified, accountTable.EmailVerified,
		accountTable.UpdatedAt,
		accountTable.ID,
	)

	result, err := store.pool.Exec(context, query,
		entity.ID,
		entity.Email,
		pointer.NilIfZero(entity.PasswordHash),
		entity.Name,
		pointer.NilIfZero(entity.NationalIDNumber),
		entity.Phone,
		entity.Role,
		entity.Avatar,
		pointer.NilIfZero(entity.ExternalID),
		entity.Provider,
		entity.EmailVerified,
		entity.UpdatedAt,
	)
	if err != nil {
		return translateWriteError("save", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// SetOneTimeToken writes (or clears, when token is nil) the columns of purpose.
func (store *PostgresAccountStore) SetOneTimeToken(context context.Context, accountID string, purpose Purpose, token *OneTimeToken) error {
	columns, ok := oneTimeColumns[purpose]
	if !ok {
		return fmt.Errorf("postgres_account_store_unknown_purpose: %s", purpose)
	}
	if !uuid.Valid(accountID) {
		return ErrAccountNotFound
	}

	query := fmt.Sprintf("UPDATE %s SET %s = $2, %s = $3, %s = $4 WHERE %s = $1",
		accountTable.Table, columns[0], columns[1], accountTable.UpdatedAt, accountTable.ID)

	digest, expiresAt := oneTimeValues(token)
	result, err := store.pool.Exec(context, query, accountID, digest, expiresAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("postgres_account_store_set_token_failed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

/*
ConsumeOneTimeToken clears a matching, unexpired digest in a single UPDATE.

Description: The WHERE clause carries the match and expiry check, so two
concurrent consumers of the same digest cannot both see a row.
*/
func (store *PostgresAccountStore) ConsumeOneTimeToken(context context.Context, purpose Purpose, digest string, now time.Time) (*Account, error) {
	columns, ok := oneTimeColumns[purpose]
	if !ok {
		return nil, fmt.Errorf("postgres_account_store_unknown_purpose: %s", purpose)
	}

	query := fmt.Sprintf(
		"UPDATE %s SET %s = NULL, %s = NULL, %s = $3 WHERE %s = $1 AND %s > $2 RETURNING %s",
		accountTable.Table, columns[0], columns[1], accountTable.UpdatedAt, columns[0], columns[1], accountColumns,
	)

	found, err := scanAccount(store.pool.QueryRow(context, query, digest, now, now))
	if err != nil {
		if dberr.IsNoRows(err) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("postgres_account_store_consume_token_failed: %w", err)
	}
	return found, nil
}

// # Session Set

/*
AddSession inserts a refresh-token digest for the account.

Description: The account row is locked first so the insert is ordered
against a concurrent block.

Returns:
  - error: ErrAccountNotFound when the account row does not exist
*/
func (store *PostgresAccountStore) AddSession(context context.Context, accountID, digest string, issuedAt time.Time) error {
	if !uuid.Valid(accountID) {
		return ErrAccountNotFound
	}

	query := fmt.Sprintf("INSERT INTO %s (%s, %s, %s) VALUES ($1, $2, $3)",
		sessionTable.Table, sessionTable.TokenDigest, sessionTable.AccountID, sessionTable.IssuedAt)

	err := postgres.WithTx(context, store.pool, func(transaction pgx.Tx) error {
		if err := lockAccount(context, transaction, accountID); err != nil {
			return err
		}
		_, err := transaction.Exec(context, query, digest, accountID, issuedAt)
		return err
	})
	if err == nil || errors.Is(err, ErrAccountNotFound) {
		return err
	}
	if dberr.ForeignKeyViolation(err) {
		return ErrAccountNotFound
	}
	return fmt.Errorf("postgres_account_store_add_session_failed: %w", err)
}

/*
RotateSession swaps oldDigest for newDigest inside one transaction.

Description: The account row is locked first, which serializes rotation
against SetBlocked and concurrent rotations of the same account. The DELETE
is the membership test. Zero affected rows means the digest was already
consumed, so the transaction is rolled back and ErrSessionNotFound is
returned.

Parameters:
  - context: context.Context
  - accountID: string
  - oldDigest: string (Presented refresh token digest)
  - newDigest: string (Replacement digest)
  - issuedAt: time.Time

Returns:
  - error: ErrSessionNotFound or database errors
*/
func (store *PostgresAccountStore) RotateSession(context context.Context, accountID, oldDigest, newDigest string, issuedAt time.Time) error {
	if !uuid.Valid(accountID) {
		return ErrSessionNotFound
	}

	deleteQuery := fmt.Sprintf("DELETE FROM %s WHERE %s = $1 AND %s = $2",
		sessionTable.Table, sessionTable.AccountID, sessionTable.TokenDigest)
	insertQuery := fmt.Sprintf("INSERT INTO %s (%s, %s, %s) VALUES ($1, $2, $3)",
		sessionTable.Table, sessionTable.TokenDigest, sessionTable.AccountID, sessionTable.IssuedAt)

	err := postgres.WithTx(context, store.pool, func(transaction pgx.Tx) error {
		if err := lockAccount(context, transaction, accountID); err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				return ErrSessionNotFound
			}
			return err
		}

		result, err := transaction.Exec(context, deleteQuery, accountID, oldDigest)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return ErrSessionNotFound
		}

		_, err = transaction.Exec(context, insertQuery, newDigest, accountID, issuedAt)
		return err
	})
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return fmt.Errorf("postgres_account_store_rotate_session_failed: %w", err)
	}
	return err
}

// RemoveSession deletes one digest. Deleting nothing is not an error.
func (store *PostgresAccountStore) RemoveSession(context context.Context, accountID, digest string) error {
	if !uuid.Valid(accountID) {
		return nil
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1 AND %s = $2", sessionTable.Table, sessionTable.AccountID, sessionTable.TokenDigest)
	if _, err := store.pool.Exec(context, query, accountID, digest); err != nil {
		return fmt.Errorf("postgres_account_store_remove_session_failed: %w", err)
	}
	return nil
}

// ClearSessions deletes every session row for the account.
func (store *PostgresAccountStore) ClearSessions(context context.Context, accountID string) error {
	if !uuid.Valid(accountID) {
		return nil
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", sessionTable.Table, sessionTable.AccountID)
	if _, err := store.pool.Exec(context, query, accountID); err != nil {
		return fmt.Errorf("postgres_account_store_clear_sessions_failed: %w", err)
	}
	return nil
}

// CountSessions returns the number of outstanding refresh tokens.
func (store *PostgresAccountStore) CountSessions(context context.Context, accountID string) (int, error) {
	if !uuid.Valid(accountID) {
		return 0, nil
	}

	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = $1", sessionTable.Table, sessionTable.AccountID)
	if err := store.pool.QueryRow(context, query, accountID).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres_account_store_count_sessions_failed: %w", err)
	}
	return count, nil
}

// PruneSessions deletes session rows issued before cutoff.
func (store *PostgresAccountStore) PruneSessions(context context.Context, cutoff time.Time) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s < $1", sessionTable.Table, sessionTable.IssuedAt)
	if _, err := store.pool.Exec(context, query, cutoff); err != nil {
		return fmt.Errorf("postgres_account_store_prune_sessions_failed: %w", err)
	}
	return nil
}

// # Administration

/*
SetBlocked sets or clears blockedat.

Description: The account row is locked first, so a rotation either commits
before the block and is cleared by it, or runs after and finds its digest
gone. When blocking, the session rows are deleted in the same transaction as
the timestamp update.
*/
func (store *PostgresAccountStore) SetBlocked(context context.Context, accountID string, at *time.Time) error {
	if !uuid.Valid(accountID) {
		return ErrAccountNotFound
	}

	updateQuery := fmt.Sprintf("UPDATE %s SET %s = $2, %s = NOW() WHERE %s = $1",
		accountTable.Table, accountTable.BlockedAt, accountTable.UpdatedAt, accountTable.ID)
	clearQuery := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", sessionTable.Table, sessionTable.AccountID)

	err := postgres.WithTx(context, store.pool, func(transaction pgx.Tx) error {
		if err := lockAccount(context, transaction, accountID); err != nil {
			return err
		}

		result, err := transaction.Exec(context, updateQuery, accountID, at)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return ErrAccountNotFound
		}

		if at == nil {
			return nil
		}
		_, err = transaction.Exec(context, clearQuery, accountID)
		return err
	})
	if err != nil && !errors.Is(err, ErrAccountNotFound) {
		return fmt.Errorf("postgres_account_store_set_blocked_failed: %w", err)
	}
	return err
}

// CountByRole aggregates accounts per role.
func (store *PostgresAccountStore) CountByRole(context context.Context) (map[sec.Role]int, error) {
	query := fmt.Sprintf("SELECT %s, COUNT(*) FROM %s GROUP BY %s", accountTable.Role, accountTable.Table, accountTable.Role)

	rows, err := store.pool.Query(context, query)
	if err != nil {
		return nil, fmt.Errorf("postgres_account_store_count_by_role_failed: %w", err)
	}
	defer rows.Close()

	counts := make(map[sec.Role]int)
	for rows.Next() {
		var role sec.Role
		var count int
		if err := rows.Scan(&role, &count); err != nil {
			return nil, fmt.Errorf("postgres_account_store_count_by_role_scan_failed: %w", err)
		}
		counts[role] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_account_store_count_by_role_failed: %w", err)
	}
	return counts, nil
}

// # Row Mapping

// scanAccount reads one row in [schema.UserAccountTable.Columns] order.
func scanAccount(row pgx.Row) (*Account, error) {
	var (
		entity                    Account
		password, nationalID      *string
		externalID                *string
		verifyDigest, resetDigest *string
		verifyExpiry, resetExpiry *time.Time
	)

	err := row.Scan(
		&entity.ID,
		&entity.Email,
		&password,
		&entity.Name,
		&nationalID,
		&entity.Phone,
		&entity.Role,
		&entity.Avatar,
		&externalID,
		&entity.Provider,
		&entity.EmailVerified,
		&verifyDigest, &verifyExpiry,
		&resetDigest, &resetExpiry,
		&entity.BlockedAt,
		&entity.CreatedAt,
		&entity.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	entity.PasswordHash = pointer.Val(password)
	entity.NationalIDNumber = pointer.Val(nationalID)
	entity.ExternalID = pointer.Val(externalID)
	entity.VerifyToken = oneTimeFromColumns(verifyDigest, verifyExpiry)
	entity.ResetToken = oneTimeFromColumns(resetDigest, resetExpiry)
	return &entity, nil
}

// accountValues returns insert arguments in [schema.UserAccountTable.Columns] order.
func accountValues(entity *Account) []any {
	verifyDigest, verifyExpiry := oneTimeValues(entity.VerifyToken)
	resetDigest, resetExpiry := oneTimeValues(entity.ResetToken)

	return []any{
		entity.ID,
		entity.Email,
		pointer.NilIfZero(entity.PasswordHash),
		entity.Name,
		pointer.NilIfZero(entity.NationalIDNumber),
		entity.Phone,
		entity.Role,
		entity.Avatar,
		pointer.NilIfZero(entity.ExternalID),
		entity.Provider,
		entity.EmailVerified,
		verifyDigest, verifyExpiry,
		resetDigest, resetExpiry,
		entity.BlockedAt,
		entity.CreatedAt,
		entity.UpdatedAt,
	}
}

func translateWriteError(op string, err error) error {
	if constraint, ok := dberr.UniqueViolation(err); ok {
		if field, known := constraintFields[constraint]; known {
			return &DuplicateKeyError{Field: field}
		}
	}
	return fmt.Errorf("postgres_account_store_%s_failed: %w", op, err)
}

// lockAccount takes the row lock that orders session writes for one account.
func lockAccount(context context.Context, transaction pgx.Tx, accountID string) error {
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE %s = $1 FOR UPDATE", accountTable.Table, accountTable.ID)

	var locked int
	if err := transaction.QueryRow(context, query, accountID).Scan(&locked); err != nil {
		if dberr.IsNoRows(err) {
			return ErrAccountNotFound
		}
		return err
	}
	return nil
}

func oneTimeValues(token *OneTimeToken) (*string, *time.Time) {
	if token == nil || token.Digest == "" {
		return nil, nil
	}
	expiresAt := token.ExpiresAt
	return &token.Digest, &expiresAt
}

func oneTimeFromColumns(digest *string, expiresAt *time.Time) *OneTimeToken {
	if digest == nil || expiresAt == nil {
		return nil
	}
	return &OneTimeToken{Digest: *digest, ExpiresAt: *expiresAt}
}
