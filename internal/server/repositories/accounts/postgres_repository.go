package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gpgvault/internal/common"
	"github.com/dmitrijs2005/gpgvault/internal/dbx"
	"github.com/dmitrijs2005/gpgvault/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (handle, verifier, salt, legacy_key_hash)
		 VALUES ($1, $2, $3, NULLIF($4, ''))
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		account.Handle, account.Verifier, account.Salt, account.LegacyKeyHash).
		Scan(&account.ID, &account.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

func (r *PostgresRepository) GetByHandle(ctx context.Context, handle string) (*models.Account, error) {
	query :=
		`SELECT id, handle, verifier, salt, COALESCE(legacy_key_hash, ''), created_at FROM accounts
		 WHERE handle = $1
		 `

	account := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, handle).
		Scan(&account.ID, &account.Handle, &account.Verifier, &account.Salt, &account.LegacyKeyHash, &account.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

func (r *PostgresRepository) GetByLegacyKeyHash(ctx context.Context, hash string) (*models.Account, error) {
	query :=
		`SELECT id, handle, verifier, salt, COALESCE(legacy_key_hash, ''), created_at FROM accounts
		 WHERE legacy_key_hash = $1
		 `

	account := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, hash).
		Scan(&account.ID, &account.Handle, &account.Verifier, &account.Salt, &account.LegacyKeyHash, &account.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}
