package models

import "time"

// KeyRole distinguishes the two halves of an account's key pair.
type KeyRole string

const (
	KeyRolePublic  KeyRole = "public"
	KeyRolePrivate KeyRole = "private"
)

// KeyMaterial is one armored key belonging to an account; at most one row per
// (account, role). Private-role material is stored as an AES-GCM blob sealed
// under the account's verifier, never as plaintext.
type KeyMaterial struct {
	ID        string
	AccountID string
	Role      KeyRole
	// Armored holds the armored text for public keys and the encrypted blob
	// for private keys.
	Armored   []byte
	CreatedAt time.Time
}
