// Copyright (c) 2025 The centralised-logging Authors
//
// This file is part of centralised-logging.
//
// centralised-logging is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact the centralised-logging maintainers for commercial licensing options.

// Package config loads pipeline settings from flags, environment variables
// (prefix LOGRELAY_) and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/adapters"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/delivery"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/naming"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/rename"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "LOGRELAY"

// Keys shared by flags, environment variables and the config file.
const (
	KeyTargetBucket      = "target-bucket"
	KeyDestinationPrefix = "destination-prefix"
	KeyDestinationSuffix = "destination-suffix"
	KeyNamingPolicy      = "naming-policy"
	KeyContentType       = "content-type"
	KeyDestinationACL    = "destination-acl"
	KeyConcurrency       = "concurrency"
	KeyBudgetMargin      = "budget-margin"
	KeyRateLimit         = "rate-limit"
	KeyRateBurst         = "rate-burst"
	KeyDeadLetterBucket  = "dead-letter-bucket"
	KeyDeadLetterPrefix  = "dead-letter-prefix"
	KeyBackend           = "backend"
	KeyRegion            = "region"
	KeyEndpoint          = "endpoint"
	KeyAccessKey         = "access-key"
	KeySecretKey         = "secret-key"
	KeySessionToken      = "session-token"
	KeyRoleARN           = "role-arn"
	KeyExternalID        = "external-id"
	KeyUsePathStyle      = "use-path-style"
	KeyBuckets           = "buckets"
	KeyLogLevel          = "log-level"
	KeyListen            = "listen"
	KeyAuthToken         = "auth-token"
	KeyMaxBodyBytes      = "max-body-bytes"
	KeyMinAge            = "min-age"
	KeyAudit             = "audit"
)

// Backends lists the supported backend names.
var Backends = []string{"s3", "minio", "memory"}

// Config holds the pipeline configuration.
type Config struct {
	TargetBucket      string
	DestinationPrefix string
	DestinationSuffix string
	NamingPolicy      string
	ContentType       string
	DestinationACL    string
	Concurrency       int
	BudgetMargin      time.Duration
	RateLimit         float64
	RateBurst         int
	DeadLetterBucket  string
	DeadLetterPrefix  string

	Backend      string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	SessionToken string
	RoleARN      string
	ExternalID   string
	UsePathStyle bool
	Buckets      string

	LogLevel     string
	Listen       string
	AuthToken    string
	MaxBodyBytes int64
	MinAge       time.Duration
	Audit        bool
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDestinationPrefix, naming.DefaultPrefix)
	v.SetDefault(KeyDestinationSuffix, naming.DefaultSuffix)
	v.SetDefault(KeyNamingPolicy, string(naming.DefaultPolicy))
	v.SetDefault(KeyContentType, rename.DefaultContentType)
	v.SetDefault(KeyConcurrency, delivery.DefaultConcurrency)
	v.SetDefault(KeyBudgetMargin, delivery.DefaultBudgetMargin)
	v.SetDefault(KeyRateLimit, 0)
	v.SetDefault(KeyRateBurst, 10)
	v.SetDefault(KeyDeadLetterPrefix, delivery.DefaultDeadLetterPrefix)
	v.SetDefault(KeyBackend, "s3")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyListen, ":8080")
	v.SetDefault(KeyMaxBodyBytes, 1<<20)
	v.SetDefault(KeyMinAge, 15*time.Minute)
	v.SetDefault(KeyAudit, false)
}

// Load builds a viper instance.
// Configuration priority: flags > env vars > config file > defaults.
// Without cfgFile, logrelay.yaml is looked up in the working directory and
// /etc/logrelay; a missing file is not an error.
func Load(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/logrelay")
		v.SetConfigName("logrelay")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return v, nil
}

// FromViper extracts the configuration from v.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		TargetBucket:      v.GetString(KeyTargetBucket),
		DestinationPrefix: v.GetString(KeyDestinationPrefix),
		DestinationSuffix: v.GetString(KeyDestinationSuffix),
		NamingPolicy:      v.GetString(KeyNamingPolicy),
		ContentType:       v.GetString(KeyContentType),
		DestinationACL:    v.GetString(KeyDestinationACL),
		Concurrency:       v.GetInt(KeyConcurrency),
		BudgetMargin:      v.GetDuration(KeyBudgetMargin),
		RateLimit:         v.GetFloat64(KeyRateLimit),
		RateBurst:         v.GetInt(KeyRateBurst),
		DeadLetterBucket:  v.GetString(KeyDeadLetterBucket),
		DeadLetterPrefix:  v.GetString(KeyDeadLetterPrefix),
		Backend:           v.GetString(KeyBackend),
		Region:            v.GetString(KeyRegion),
		Endpoint:          v.GetString(KeyEndpoint),
		AccessKey:         v.GetString(KeyAccessKey),
		SecretKey:         v.GetString(KeySecretKey),
		SessionToken:      v.GetString(KeySessionToken),
		RoleARN:           v.GetString(KeyRoleARN),
		ExternalID:        v.GetString(KeyExternalID),
		UsePathStyle:      v.GetBool(KeyUsePathStyle),
		Buckets:           v.GetString(KeyBuckets),
		LogLevel:          v.GetString(KeyLogLevel),
		Listen:            v.GetString(KeyListen),
		AuthToken:         v.GetString(KeyAuthToken),
		MaxBodyBytes:      v.GetInt64(KeyMaxBodyBytes),
		MinAge:            v.GetDuration(KeyMinAge),
		Audit:             v.GetBool(KeyAudit),
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	supported := false
	for _, b := range Backends {
		if c.Backend == b {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("%w: %q", ErrUnsupportedBackend, c.Backend)
	}
	if c.Backend == "minio" && c.Endpoint == "" {
		return ErrEndpointRequired
	}
	if _, err := naming.ParsePolicy(c.NamingPolicy); err != nil {
		return err
	}
	if _, err := adapters.ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.DestinationPrefix == "" {
		return ErrDestinationPrefixRequired
	}
	if c.DeadLetterPrefix != "" &&
		(strings.HasPrefix(c.DestinationPrefix, c.DeadLetterPrefix) || strings.HasPrefix(c.DeadLetterPrefix, c.DestinationPrefix)) {
		return ErrPrefixOverlap
	}
	if c.Concurrency < 1 {
		return ErrInvalidConcurrency
	}
	if c.BudgetMargin < 0 {
		return ErrInvalidBudgetMargin
	}
	if c.RateLimit < 0 || c.RateBurst < 0 {
		return ErrInvalidRateLimit
	}
	return nil
}

// Policy returns the parsed naming policy. Call after Validate.
func (c *Config) Policy() naming.Policy {
	p, _ := naming.ParsePolicy(c.NamingPolicy) //nolint:errcheck // checked by Validate
	return p
}

// Level returns the parsed log level. Call after Validate.
func (c *Config) Level() adapters.LogLevel {
	l, _ := adapters.ParseLogLevel(c.LogLevel) //nolint:errcheck // checked by Validate
	return l
}

// StoreSettings converts the configuration to backend settings.
func (c *Config) StoreSettings() map[string]string {
	settings := make(map[string]string)

	add := func(key, value string) {
		if value != "" {
			settings[key] = value
		}
	}
	add("region", c.Region)
	add("endpoint", c.Endpoint)
	add("accessKey", c.AccessKey)
	add("secretKey", c.SecretKey)
	add("sessionToken", c.SessionToken)
	add("roleArn", c.RoleARN)
	add("externalId", c.ExternalID)
	add("buckets", c.Buckets)
	if c.UsePathStyle {
		settings["usePathStyle"] = strconv.FormatBool(true)
	}
	return settings
}

// Watch invokes onChange with the reloaded configuration whenever the
// config file changes. It returns false when no file is in use.
func Watch(v *viper.Viper, onChange func(*Config, error)) bool {
	if v.ConfigFileUsed() == "" {
		return false
	}
	if _, err := os.Stat(v.ConfigFileUsed()); err != nil {
		return false
	}
	v.OnConfigChange(reloadHandler(v, onChange))
	v.WatchConfig()
	return true
}

func reloadHandler(v *viper.Viper, onChange func(*Config, error)) func(fsnotify.Event) {
	return func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg := FromViper(v)
		onChange(cfg, cfg.Validate())
	}
}
