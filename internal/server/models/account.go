// Package models defines the persisted server-side entities.
package models

import "time"

// Account is a registered identity. Handle and Salt are immutable after
// creation; Verifier is the Argon2id hash of the caller's secret, never the
// secret itself. LegacyKeyHash supports the pre-derivation credential scheme
// and is empty for new accounts.
type Account struct {
	ID            string
	Handle        string
	Verifier      []byte
	Salt          []byte
	LegacyKeyHash string
	CreatedAt     time.Time
}
