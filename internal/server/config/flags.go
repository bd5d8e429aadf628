package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":3000")
//	-g string   gRPC health bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-k string   OpenRouter API key
//	-m string   OpenRouter model identifier
//	-u string   site URL (deployment origin)
//	-b string   S3 bucket for note exports
//	-l string   log level
//
// os.Args is filtered through flagx.FilterArgs first so the JSON and env-file
// flags (and anything else) do not make this flag set fail.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-d", "-s", "-t", "-r", "-k", "-m", "-u", "-b", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run HTTP server")
	fs.StringVar(&config.GRPCHealthAddr, "g", config.GRPCHealthAddr, "address and port to run gRPC health server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")

	fs.StringVar(&config.OpenRouterAPIKey, "k", config.OpenRouterAPIKey, "OpenRouter API key")
	fs.StringVar(&config.OpenRouterModel, "m", config.OpenRouterModel, "OpenRouter model")
	fs.StringVar(&config.SiteURL, "u", config.SiteURL, "site URL")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket for exports")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
}
