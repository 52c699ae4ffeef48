package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/gpgvault/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   server HMAC secret key
//	-i int      session-key derivation iterations
//	-w int      session window length, seconds
//	-r int      grace period, seconds
//	-g string   path to the gpg binary
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with the JSON config flags.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-i", "-w", "-r", "-g"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.IntVar(&config.Iterations, "i", config.Iterations, "session key derivation iterations")
	fs.Int64Var(&config.WindowSeconds, "w", config.WindowSeconds, "session window length (seconds)")
	fs.Int64Var(&config.GraceSeconds, "r", config.GraceSeconds, "grace period (seconds)")
	fs.StringVar(&config.GPGBinary, "g", config.GPGBinary, "gpg binary path")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
