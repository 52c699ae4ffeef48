// Package keys provides persistence for armored key material.
package keys

import (
	"context"

	"github.com/dmitrijs2005/gpgvault/internal/server/models"
)

// Repository is the persistence contract for key material.
type Repository interface {
	Create(ctx context.Context, key *models.KeyMaterial) (*models.KeyMaterial, error)
	GetByAccountAndRole(ctx context.Context, accountID string, role models.KeyRole) (*models.KeyMaterial, error)
}
