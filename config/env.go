package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables
const (
	EnvPrivateKey    = "PRIVATE_KEY"
	EnvRPCEndpoint   = "ARB_RPC_ENDPOINT"
	EnvPostgresDSN   = "ARB_POSTGRES_DSN"
	EnvRedisAddr     = "ARB_REDIS_ADDR"
	EnvRedisPassword = "ARB_REDIS_PASSWORD"
	EnvMetricsAddr   = "ARB_METRICS_ADDR"
)

// LoadEnv loads environment variables from the given .env files, or .env in
// the working directory. A missing file is not an error.
func LoadEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// GetEnvWithDefault gets an environment variable with a default value
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetRequiredEnv gets an environment variable that must be set
func GetRequiredEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("required environment variable %s not set", key)
	}
	return value, nil
}

// ApplyEnv overrides endpoints and DSNs from the environment
func ApplyEnv(cfg *Config) {
	cfg.Network.RPCEndpoint = GetEnvWithDefault(EnvRPCEndpoint, cfg.Network.RPCEndpoint)
	cfg.Audit.PostgresDSN = GetEnvWithDefault(EnvPostgresDSN, cfg.Audit.PostgresDSN)
	cfg.Audit.RedisAddr = GetEnvWithDefault(EnvRedisAddr, cfg.Audit.RedisAddr)
	cfg.Metrics.Addr = GetEnvWithDefault(EnvMetricsAddr, cfg.Metrics.Addr)
}

// LoadSecureConfig reads secrets from the environment. The private key is
// only required when the agent signs transactions.
func LoadSecureConfig(requireKey bool) (*SecureConfig, error) {
	secure := &SecureConfig{
		PrivateKey:    os.Getenv(EnvPrivateKey),
		RedisPassword: os.Getenv(EnvRedisPassword),
	}
	if requireKey {
		key, err := GetRequiredEnv(EnvPrivateKey)
		if err != nil {
			return nil, fmt.Errorf("private key not found: %w", err)
		}
		secure.PrivateKey = key
	}
	return secure, nil
}
