package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/flagx"
	"github.com/dmitrijs2005/notekeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON configuration file. Pointer
// fields distinguish "absent" from "set to the zero value"; absent fields
// leave the current Config value untouched.
type JsonConfig struct {
	HTTPAddr                     *string         `json:"http_addr"`
	GRPCHealthAddr               *string         `json:"grpc_health_addr"`
	DatabaseDSN                  *string         `json:"database_dsn"`
	SecretKey                    *string         `json:"secret_key"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	AuthCodeValidityDuration     *timex.Duration `json:"auth_code_validity_duration"`
	AutoConfirm                  *bool           `json:"auto_confirm"`
	SecureCookies                *bool           `json:"secure_cookies"`
	OpenRouterAPIKey             *string         `json:"openrouter_api_key"`
	OpenRouterBaseURL            *string         `json:"openrouter_base_url"`
	OpenRouterModel              *string         `json:"openrouter_model"`
	AppName                      *string         `json:"app_name"`
	SiteURL                      *string         `json:"site_url"`
	S3RootUser                   *string         `json:"s3_root_user"`
	S3RootPassword               *string         `json:"s3_root_password"`
	S3Bucket                     *string         `json:"s3_bucket"`
	S3Region                     *string         `json:"s3_region"`
	S3BaseEndpoint               *string         `json:"s3_base_endpoint"`
	LogLevel                     *string         `json:"log_level"`
}

// parseJson overlays values from the file named by -c/-config. Without the
// flag nothing is loaded. An unreadable file or invalid JSON panics, the
// same as a bad flag: the process must not start half-configured.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCHealthAddr, c.GRPCHealthAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDuration(&config.AuthCodeValidityDuration, c.AuthCodeValidityDuration)
	setBool(&config.AutoConfirm, c.AutoConfirm)
	setBool(&config.SecureCookies, c.SecureCookies)
	setString(&config.OpenRouterAPIKey, c.OpenRouterAPIKey)
	setString(&config.OpenRouterBaseURL, c.OpenRouterBaseURL)
	setString(&config.OpenRouterModel, c.OpenRouterModel)
	setString(&config.AppName, c.AppName)
	setString(&config.SiteURL, c.SiteURL)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
