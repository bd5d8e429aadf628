package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/flagx"
	"github.com/dmitrijs2005/notekeeper/internal/timex"
	"github.com/joho/godotenv"
)

const defaultEnvFile = ".env"

// parseEnv overlays values from environment variables. A dotenv file (the
// -env-file flag, or ./.env when present) is loaded first; variables already
// set in the process environment win over the file.
//
// Recognised variables:
//
//	HTTP_ADDR, GRPC_HEALTH_ADDR, DATABASE_DSN, SECRET_KEY,
//	ACCESS_TOKEN_TTL, REFRESH_TOKEN_TTL, AUTH_CODE_TTL,
//	AUTO_CONFIRM, SECURE_COOKIES,
//	OPENROUTER_API_KEY, OPENROUTER_BASE_URL, OPENROUTER_API_MODEL,
//	APP_NAME, SITE_URL,
//	S3_ROOT_USER, S3_ROOT_PASSWORD, S3_BUCKET, S3_REGION, S3_BASE_ENDPOINT,
//	LOG_LEVEL
func parseEnv(config *Config) {
	loadEnvFile()

	envString(&config.HTTPAddr, "HTTP_ADDR")
	envString(&config.GRPCHealthAddr, "GRPC_HEALTH_ADDR")
	envString(&config.DatabaseDSN, "DATABASE_DSN")
	envString(&config.SecretKey, "SECRET_KEY")
	envDuration(&config.AccessTokenValidityDuration, "ACCESS_TOKEN_TTL")
	envDuration(&config.RefreshTokenValidityDuration, "REFRESH_TOKEN_TTL")
	envDuration(&config.AuthCodeValidityDuration, "AUTH_CODE_TTL")
	envBool(&config.AutoConfirm, "AUTO_CONFIRM")
	envBool(&config.SecureCookies, "SECURE_COOKIES")
	envString(&config.OpenRouterAPIKey, "OPENROUTER_API_KEY")
	envString(&config.OpenRouterBaseURL, "OPENROUTER_BASE_URL")
	envString(&config.OpenRouterModel, "OPENROUTER_API_MODEL")
	envString(&config.AppName, "APP_NAME")
	envString(&config.SiteURL, "SITE_URL")
	envString(&config.S3RootUser, "S3_ROOT_USER")
	envString(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	envString(&config.S3Bucket, "S3_BUCKET")
	envString(&config.S3Region, "S3_REGION")
	envString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	envString(&config.LogLevel, "LOG_LEVEL")
}

func loadEnvFile() {
	path := flagx.EnvFileFlags()
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	err := godotenv.Load(path)
	if err == nil {
		return
	}
	// A missing implicit ./.env is normal; a missing explicit file is not.
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return
	}
	panic(fmt.Errorf("loading env file %s: %w", path, err))
}

func envString(dst *string, name string) {
	if v, ok := os.LookupEnv(name); ok {
		*dst = v
	}
}

func envBool(dst *bool, name string) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		panic(fmt.Errorf("%s: %w", name, err))
	}
	*dst = b
}

func envDuration(dst *time.Duration, name string) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return
	}
	d, err := timex.ParseDuration(v)
	if err != nil {
		panic(fmt.Errorf("%s: %w", name, err))
	}
	*dst = d
}
