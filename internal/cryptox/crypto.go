// Package cryptox bundles the symmetric-crypto helpers the server needs:
// memory-hard password verifiers, AES-GCM protection of private key material
// at rest, and deterministic keyring passphrase derivation.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gpgvault/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

// Argon2id parameters for password verifiers and at-rest key derivation.
const (
	argonTime    = 4
	argonMemory  = 64 * 1024
	argonThreads = 2
	argonKeyLen  = 32
)

// PBKDF2 parameters for keyring passphrase derivation.
const (
	PassphraseIterations = 100000
	passphraseKeyLen     = 32
)

const (
	blobSaltSize  = 16
	blobNonceSize = 12
)

// MakeVerifier derives the stored password verifier from the caller-supplied
// secret and the account's fixed salt using Argon2id. The verifier is what the
// database stores; the raw secret never is.
func MakeVerifier(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// EncryptKeyMaterial seals plaintext under a key derived from the account
// verifier. The returned blob is salt(16) || nonce(12) || ciphertext; a fresh
// salt and nonce are generated per call.
func EncryptKeyMaterial(plaintext, verifier []byte) ([]byte, error) {
	salt := common.GenerateRandByteArray(blobSaltSize)
	key := argon2.IDKey(verifier, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	defer common.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := common.GenerateRandByteArray(blobNonceSize)
	ct := aesgcm.Seal(nil, nonce, plaintext, nil)

	blob := make([]byte, 0, len(salt)+len(nonce)+len(ct))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, ct...)
	return blob, nil
}

// DecryptKeyMaterial reverses EncryptKeyMaterial. A wrong verifier or a
// tampered blob yields an error from GCM's tag check.
func DecryptKeyMaterial(blob, verifier []byte) ([]byte, error) {
	if len(blob) < blobSaltSize+blobNonceSize+1 {
		return nil, errors.New("key material blob too short")
	}
	salt := blob[:blobSaltSize]
	nonce := blob[blobSaltSize : blobSaltSize+blobNonceSize]
	ct := blob[blobSaltSize+blobNonceSize:]

	key := argon2.IDKey(verifier, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	defer common.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return aesgcm.Open(nil, nonce, ct, nil)
}

// DeriveKeyringPassphrase turns a session credential into the passphrase that
// protects the account's generated private key. The salt is bound to the
// account id so two accounts never share a passphrase even with equal tokens.
// Deterministic: the same (sessionKey, accountID) always yields the same
// 64-character hex string.
func DeriveKeyringPassphrase(sessionKey, accountID string) string {
	saltInput := sha256.Sum256([]byte(fmt.Sprintf("gpg_passphrase_salt_%s", accountID)))
	key := pbkdf2.Key([]byte(sessionKey), saltInput[:], PassphraseIterations, passphraseKeyLen, sha256.New)
	return hex.EncodeToString(key)
}

// HashLegacyKey hashes an opaque legacy API key for storage or lookup.
func HashLegacyKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}
