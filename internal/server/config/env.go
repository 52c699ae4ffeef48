package config

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// parseEnv overlays configuration from environment variables, loading a .env
// file first if one is present (deployments ship admin keys and the server
// secret that way). A missing .env file is not an error.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	setString(&config.EndpointAddrHTTP, "ADDRESS")
	setString(&config.DatabaseDSN, "DATABASE_DSN")
	setString(&config.SecretKey, "SECRET_KEY")
	setString(&config.GPGBinary, "GPG_BINARY")

	setInt(&config.Iterations, "SESSION_KEY_ITERATIONS")
	setInt64(&config.WindowSeconds, "SESSION_WINDOW_SECONDS")
	setInt64(&config.GraceSeconds, "SESSION_GRACE_SECONDS")
	setInt64(&config.ChallengeValiditySeconds, "ADMIN_CHALLENGE_VALIDITY_SECONDS")
	setInt64(&config.AdminTokenValiditySeconds, "ADMIN_TOKEN_VALIDITY_SECONDS")

	// ADMIN_GPG_KEYS is a JSON object mapping handles to armored public keys.
	if v, ok := os.LookupEnv("ADMIN_GPG_KEYS"); ok {
		keys := map[string]string{}
		if err := json.Unmarshal([]byte(v), &keys); err == nil {
			config.AdminKeys = keys
		}
	}
}

func setString(dst *string, name string) {
	if v, ok := os.LookupEnv(name); ok {
		*dst = v
	}
}

func setInt(dst *int, name string) {
	if v, ok := os.LookupEnv(name); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, name string) {
	if v, ok := os.LookupEnv(name); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}
