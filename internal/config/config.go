// Package config provides configuration management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"iac-pipeline/internal/errors"
	"iac-pipeline/internal/logging"
)

// EnvPrefix prefixes every environment override (IACP_BUDGET_EUR, ...).
const EnvPrefix = "IACP"

// Config is the main application configuration
type Config struct {
	// Bundles locates the infrastructure definitions
	Bundles BundlesConfig `json:"bundles" mapstructure:"bundles"`

	// Variants lists the candidate topologies per group
	Variants VariantsConfig `json:"variants" mapstructure:"variants"`

	// PaaSCostConfig is the Infracost config file priced as one PaaS scenario
	PaaSCostConfig string `json:"paas_cost_config" mapstructure:"paas_cost_config" validate:"required"`

	// BudgetEUR is the monthly budget ceiling
	BudgetEUR float64 `json:"budget_eur" mapstructure:"budget_eur" validate:"gte=0"`

	// RequiredOutputs are extracted from the apply result
	RequiredOutputs []string `json:"required_outputs" mapstructure:"required_outputs"`

	// Concurrency bounds parallel variant evaluations
	Concurrency int `json:"concurrency" mapstructure:"concurrency" validate:"gte=1,lte=64"`

	// Provider configures the plan/price/apply collaborator
	Provider ProviderConfig `json:"provider" mapstructure:"provider"`

	// Artifacts configures where costs.json and deployment.json are kept
	Artifacts ArtifactsConfig `json:"artifacts" mapstructure:"artifacts"`

	// Ledger configures the optional deployment history table
	Ledger LedgerConfig `json:"ledger" mapstructure:"ledger"`

	// Notify configures optional decision notifications
	Notify NotifyConfig `json:"notify" mapstructure:"notify"`

	// Normalizer adds resource types to the field extraction registry
	Normalizer NormalizerConfig `json:"normalizer" mapstructure:"normalizer"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging" mapstructure:"logging"`
}

// BundlesConfig holds bundle roots
type BundlesConfig struct {
	VM   string `json:"vm" mapstructure:"vm" validate:"required"`
	PaaS string `json:"paas" mapstructure:"paas" validate:"required"`
}

// VariantsConfig holds variant names per group
type VariantsConfig struct {
	VM   []string `json:"vm" mapstructure:"vm" validate:"min=1,dive,required"`
	PaaS []string `json:"paas" mapstructure:"paas" validate:"dive,required"`
}

// ProviderConfig selects and tunes the provider
type ProviderConfig struct {
	// Kind is exec (run tofu/infracost) or offline (read precomputed JSON)
	Kind string `json:"kind" mapstructure:"kind" validate:"oneof=exec offline"`

	TofuPath      string        `json:"tofu_path" mapstructure:"tofu_path"`
	InfracostPath string        `json:"infracost_path" mapstructure:"infracost_path"`
	Timeout       time.Duration `json:"timeout" mapstructure:"timeout"`
}

// ArtifactsConfig selects the artifact store
type ArtifactsConfig struct {
	Backend  string `json:"backend" mapstructure:"backend" validate:"oneof=file memory s3"`
	Path     string `json:"path" mapstructure:"path"`
	Bucket   string `json:"bucket" mapstructure:"bucket" validate:"required_if=Backend s3"`
	Region   string `json:"region" mapstructure:"region"`
	Prefix   string `json:"prefix" mapstructure:"prefix"`
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`
}

// LedgerConfig enables the Postgres ledger when DSN is set
type LedgerConfig struct {
	DSN   string `json:"dsn" mapstructure:"dsn"`
	Table string `json:"table" mapstructure:"table" validate:"required"`
}

// NotifyConfig configures notifiers
type NotifyConfig struct {
	RedisAddr string `json:"redis_addr" mapstructure:"redis_addr"`
	RedisList string `json:"redis_list" mapstructure:"redis_list"`

	GitHubToken string `json:"-" mapstructure:"github_token"`
	GitHubOwner string `json:"github_owner" mapstructure:"github_owner"`
	GitHubRepo  string `json:"github_repo" mapstructure:"github_repo"`
	GitHubPR    int    `json:"github_pr" mapstructure:"github_pr" validate:"gte=0"`
}

// NormalizerConfig extends the type -> field registry
type NormalizerConfig struct {
	Fields map[string][]string `json:"fields,omitempty" mapstructure:"fields"`
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Bundles: BundlesConfig{
			VM:   "vm",
			PaaS: "paas",
		},
		Variants: VariantsConfig{
			VM:   []string{"native", "docker-vm", "k8s-vm"},
			PaaS: []string{"cloud-run", "cloud-sql", "cloud-storage"},
		},
		PaaSCostConfig:  "infracost.yml",
		BudgetEUR:       50.0,
		RequiredOutputs: []string{"public_ip"},
		Concurrency:     4,
		Provider: ProviderConfig{
			Kind:          "exec",
			TofuPath:      "tofu",
			InfracostPath: "infracost",
			Timeout:       30 * time.Minute,
		},
		Artifacts: ArtifactsConfig{
			Backend: "file",
			Path:    ".",
		},
		Ledger: LedgerConfig{
			Table: "deployments",
		},
		Notify: NotifyConfig{
			RedisList: "iac-pipeline:decisions",
		},
		Logging: logging.DefaultConfig(),
	}
}

// setDefaults mirrors Default into viper so env overrides resolve for every key
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("bundles.vm", d.Bundles.VM)
	v.SetDefault("bundles.paas", d.Bundles.PaaS)
	v.SetDefault("variants.vm", d.Variants.VM)
	v.SetDefault("variants.paas", d.Variants.PaaS)
	v.SetDefault("paas_cost_config", d.PaaSCostConfig)
	v.SetDefault("budget_eur", d.BudgetEUR)
	v.SetDefault("required_outputs", d.RequiredOutputs)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("provider.kind", d.Provider.Kind)
	v.SetDefault("provider.tofu_path", d.Provider.TofuPath)
	v.SetDefault("provider.infracost_path", d.Provider.InfracostPath)
	v.SetDefault("provider.timeout", d.Provider.Timeout)
	v.SetDefault("artifacts.backend", d.Artifacts.Backend)
	v.SetDefault("artifacts.path", d.Artifacts.Path)
	v.SetDefault("artifacts.bucket", "")
	v.SetDefault("artifacts.region", "")
	v.SetDefault("artifacts.prefix", "")
	v.SetDefault("artifacts.endpoint", "")
	v.SetDefault("ledger.dsn", "")
	v.SetDefault("ledger.table", d.Ledger.Table)
	v.SetDefault("notify.redis_addr", "")
	v.SetDefault("notify.redis_list", d.Notify.RedisList)
	v.SetDefault("notify.github_token", "")
	v.SetDefault("notify.github_owner", "")
	v.SetDefault("notify.github_repo", "")
	v.SetDefault("notify.github_pr", 0)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
	v.SetDefault("logging.development", d.Logging.Development)
}

// NewViper returns a viper instance with defaults and IACP_* env overrides.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load reads path (JSON or YAML; optional) into v and returns the validated config.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !os.IsNotExist(err) {
				return nil, errors.Config("failed to read config file "+path, err)
			}
			logging.Debug("config file not found, using defaults")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Config("failed to decode config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks struct constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Config("invalid configuration", err)
	}
	return nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
