// Package repomanager wires repositories to database handles, so services
// can run the same repository against *sql.DB or an open transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gpgvault/internal/dbx"
	"github.com/dmitrijs2005/gpgvault/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gpgvault/internal/server/repositories/keys"
)

// RepositoryManager hands out repositories bound to the given handle.
type RepositoryManager interface {
	Accounts(db dbx.DBTX) accounts.Repository
	Keys(db dbx.DBTX) keys.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
