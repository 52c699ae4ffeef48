package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gpgvault/internal/flagx"
)

// JsonConfig is the intermediate DTO for reading JSON configuration files.
// After unmarshalling, set fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddrHTTP          *string           `json:"endpoint_addr_http"`
	DatabaseDSN               *string           `json:"database_dsn"`
	SecretKey                 *string           `json:"secret_key"`
	Iterations                *int              `json:"session_key_iterations"`
	WindowSeconds             *int64            `json:"session_window_seconds"`
	GraceSeconds              *int64            `json:"session_grace_seconds"`
	ChallengeValiditySeconds  *int64            `json:"admin_challenge_validity_seconds"`
	AdminTokenValiditySeconds *int64            `json:"admin_token_validity_seconds"`
	GPGBinary                 *string           `json:"gpg_binary"`
	AdminKeys                 map[string]string `json:"admin_gpg_keys"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config command-line
// flags; when neither is set, no JSON file is loaded. Absent fields keep
// their current values.
func parseJson(config *Config) error {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if c.EndpointAddrHTTP != nil {
		config.EndpointAddrHTTP = *c.EndpointAddrHTTP
	}
	if c.DatabaseDSN != nil {
		config.DatabaseDSN = *c.DatabaseDSN
	}
	if c.SecretKey != nil {
		config.SecretKey = *c.SecretKey
	}
	if c.Iterations != nil {
		config.Iterations = *c.Iterations
	}
	if c.WindowSeconds != nil {
		config.WindowSeconds = *c.WindowSeconds
	}
	if c.GraceSeconds != nil {
		config.GraceSeconds = *c.GraceSeconds
	}
	if c.ChallengeValiditySeconds != nil {
		config.ChallengeValiditySeconds = *c.ChallengeValiditySeconds
	}
	if c.AdminTokenValiditySeconds != nil {
		config.AdminTokenValiditySeconds = *c.AdminTokenValiditySeconds
	}
	if c.GPGBinary != nil {
		config.GPGBinary = *c.GPGBinary
	}
	if c.AdminKeys != nil {
		config.AdminKeys = c.AdminKeys
	}
	return nil
}
