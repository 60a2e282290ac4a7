package config

import (
	"flag"
	"os"
	"time"

	"github.com/jkalnina/authgate/internal/flagx"
)

// parseFlags overlays selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      session token validity, minutes
//	-f string   Firebase service account file
//	-k string   Firebase web API key
//	-r string   Redis address (enables rate limiting)
func parseFlags(config *Config) {
	// keep only the flags owned here, so test binary flags don't collide
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-f", "-k", "-r"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	sessionTokenTTL := fs.Int("t", int(config.SessionTokenTTL.Minutes()), "session token validity (in minutes)")

	fs.StringVar(&config.FirebaseCredentialsFile, "f", config.FirebaseCredentialsFile, "Firebase service account file")
	fs.StringVar(&config.FirebaseAPIKey, "k", config.FirebaseAPIKey, "Firebase web API key")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "Redis address")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionTokenTTL = time.Duration(*sessionTokenTTL) * time.Minute
}
