package admin

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// tokenMACLen is the hex length the MAC is truncated to in the token's wire
// form (16 raw bytes).
const tokenMACLen = 32

// tokenMAC computes the truncated hex HMAC binding a handle to its mint time.
func tokenMAC(secret []byte, handle string, ts int64) string {
	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%s:%d", handle, ts)
	return hex.EncodeToString(mac.Sum(nil))[:tokenMACLen]
}

// macEqual compares two MAC strings in constant time.
func macEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
