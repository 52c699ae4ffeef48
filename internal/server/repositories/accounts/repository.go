// Package accounts provides persistence for registered identities.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/gpgvault/internal/server/models"
)

// Repository is the persistence contract for accounts.
type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByHandle(ctx context.Context, handle string) (*models.Account, error)
	GetByLegacyKeyHash(ctx context.Context, hash string) (*models.Account, error)
}
