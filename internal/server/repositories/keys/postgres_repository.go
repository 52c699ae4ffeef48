package keys

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

func (r *PostgresRepository) Create(ctx context.Context, key *models.KeyMaterial) (*models.KeyMaterial, error) {
	query :=
		`INSERT INTO key_material (account_id, role, armored)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query, key.AccountID, key.Role, key.Armored).
		Scan(&key.ID, &key.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return key, nil
}

func (r *PostgresRepository) GetByAccountAndRole(ctx context.Context, accountID string, role models.KeyRole) (*models.KeyMaterial, error) {
	query :=
		`SELECT id, account_id, role, armored, created_at FROM key_material
		 WHERE account_id = $1 AND role = $2
		 `

	key := &models.KeyMaterial{}
	err := r.db.QueryRowContext(ctx, query, accountID, role).
		Scan(&key.ID, &key.AccountID, &key.Role, &key.Armored, &key.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return key, nil
}
