package main

import (
	"fmt"
	"strings"
	"time"

	"funplanet-backend/internal/chain"
	"funplanet-backend/internal/gateway"
	"funplanet-backend/internal/repository"
	"funplanet-backend/internal/storage"

	"github.com/spf13/viper"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"
)

type Config struct {
	Database repository.Config `yaml:"database"`
	Server   ServerConfig      `yaml:"server"`
	Chain    chain.Config      `yaml:"chain"`
	Storage  storage.Config    `yaml:"storage"`
	Gateway  gateway.Config    `yaml:"gateway"`
	Rewards  RewardsConfig     `yaml:"rewards"`
	Auth     AuthConfig        `yaml:"auth"`

	LogLevel string `yaml:"logLevel"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

type RewardsConfig struct {
	DailyLimit       int64         `yaml:"dailyLimit"`
	GasFloorWei      string        `yaml:"gasFloorWei"`
	TreasuryAddress  string        `yaml:"treasuryAddress"`
	DonationDelay    time.Duration `yaml:"donationDelay"`
	ReconcileEvery   time.Duration `yaml:"reconcileEvery"`
	IntentStaleAfter time.Duration `yaml:"intentStaleAfter"`
}

type AuthConfig struct {
	TokenTTL time.Duration `yaml:"tokenTTL"`

	// Env only.
	JWTSecret string `yaml:"-"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName(configName)
	viper.AddConfigPath(configPath)
	viper.SetConfigType(configFormat)

	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Secrets never live in the config file.
	cfg.Chain.RewardWalletKey = viper.GetString("REWARD_WALLET_KEY")
	cfg.Chain.VoucherSignerKey = viper.GetString("VOUCHER_SIGNER_KEY")
	cfg.Storage.AccessKeyID = viper.GetString("R2_ACCESS_KEY_ID")
	cfg.Storage.AccessKeySecret = viper.GetString("R2_ACCESS_KEY_SECRET")
	cfg.Gateway.APIKey = viper.GetString("AI_API_KEY")
	cfg.Auth.JWTSecret = viper.GetString("JWT_SECRET")

	if err := cfg.validateSecrets(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validateSecrets() error {
	missing := make([]string, 0, 4)
	if c.Chain.RewardWalletKey == "" {
		missing = append(missing, "APP_REWARD_WALLET_KEY")
	}
	if c.Chain.VoucherSignerKey == "" {
		missing = append(missing, "APP_VOUCHER_SIGNER_KEY")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "APP_JWT_SECRET")
	}
	if c.Storage.AccessKeyID == "" || c.Storage.AccessKeySecret == "" {
		missing = append(missing, "APP_R2_ACCESS_KEY_ID/APP_R2_ACCESS_KEY_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}
