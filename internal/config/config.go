package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the pipeline
type Config struct {
	CMS      CMSConfig      `yaml:"cms"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// CMSConfig holds CMS data API configuration
type CMSConfig struct {
	BaseURL        string `yaml:"base_url"`
	PageSize       int    `yaml:"page_size"`
	PageDelayMS    int    `yaml:"page_delay_ms"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRows        int    `yaml:"max_rows"` // >0 caps the fetch, for testing against the live API
	Year           string `yaml:"year"`
}

// Timeout returns the configured request timeout as a duration
func (c CMSConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PageDelay returns the configured inter-page sleep as a duration
func (c CMSConfig) PageDelay() time.Duration {
	return time.Duration(c.PageDelayMS) * time.Millisecond
}

// DrugGroup maps one canonical group label to its raw generic and brand spellings
type DrugGroup struct {
	Label   string `yaml:"label"`
	Generic string `yaml:"generic"`
	Brand   string `yaml:"brand"`
}

// PipelineConfig holds the analysis scope and artifact paths
type PipelineConfig struct {
	States         []string    `yaml:"states"`
	DrugGroups     []DrugGroup `yaml:"drug_groups"`
	RawPath        string      `yaml:"raw_path"`
	ManifestPath   string      `yaml:"manifest_path"`
	AggregatedPath string      `yaml:"aggregated_path"`
	SummaryPath    string      `yaml:"summary_path"`
	VisualsDir     string      `yaml:"visuals_dir"`
}

// DrugNames returns every raw drug spelling, generics first then brands,
// in the order the API filter expects them
func (c PipelineConfig) DrugNames() []string {
	names := make([]string, 0, len(c.DrugGroups)*2)
	for _, g := range c.DrugGroups {
		if g.Generic != "" {
			names = append(names, g.Generic)
		}
	}
	for _, g := range c.DrugGroups {
		if g.Brand != "" {
			names = append(names, g.Brand)
		}
	}
	return names
}

// GroupLabels returns the canonical group labels in declared order, deduplicated
func (c PipelineConfig) GroupLabels() []string {
	seen := make(map[string]bool, len(c.DrugGroups))
	labels := make([]string, 0, len(c.DrugGroups))
	for _, g := range c.DrugGroups {
		if g.Label == "" || seen[g.Label] {
			continue
		}
		seen[g.Label] = true
		labels = append(labels, g.Label)
	}
	return labels
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Type       string `yaml:"type"` // "local" or "aws"
	S3Bucket   string `yaml:"s3_bucket"`
	S3Prefix   string `yaml:"s3_prefix"`
	AWSRegion  string `yaml:"aws_region"`
	AWSProfile string `yaml:"aws_profile"` // Empty string uses default credential chain (IAM role on ECS)
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c StorageConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return "" // Use default credential chain (IAM role)
		}
		return envProfile
	}
	// On ECS/Lambda, don't use a profile - use IAM role
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	setDefaults(&cfg)
	return &cfg, nil
}

// Default returns a configuration with every value at its default.
// The pipeline is fully runnable without a config file.
func Default() *Config {
	var cfg Config
	setDefaults(&cfg)
	return &cfg
}

func setDefaults(cfg *Config) {
	if cfg.CMS.BaseURL == "" {
		cfg.CMS.BaseURL = "https://data.cms.gov/data-api/v1/dataset/9552739e-3d05-4c1b-8eff-ecabf391e2e5/data"
	}
	if cfg.CMS.PageSize == 0 {
		cfg.CMS.PageSize = 5000
	}
	if cfg.CMS.PageDelayMS == 0 {
		cfg.CMS.PageDelayMS = 500
	}
	if cfg.CMS.TimeoutSeconds == 0 {
		cfg.CMS.TimeoutSeconds = 60
	}
	if cfg.CMS.Year == "" {
		cfg.CMS.Year = "2023"
	}
	if len(cfg.Pipeline.States) == 0 {
		cfg.Pipeline.States = []string{"CA", "TX", "FL", "NY", "PA"}
	}
	if len(cfg.Pipeline.DrugGroups) == 0 {
		cfg.Pipeline.DrugGroups = []DrugGroup{
			{Label: "Sertraline (Zoloft)", Generic: "SERTRALINE HCL", Brand: "ZOLOFT"},
			{Label: "Fluoxetine (Prozac)", Generic: "FLUOXETINE HCL", Brand: "PROZAC"},
			{Label: "Escitalopram (Lexapro)", Generic: "ESCITALOPRAM OXALATE", Brand: "LEXAPRO"},
			{Label: "Paroxetine (Paxil)", Generic: "PAROXETINE HCL", Brand: "PAXIL"},
			{Label: "Citalopram (Celexa)", Generic: "CITALOPRAM HBR", Brand: "CELEXA"},
		}
	}
	if cfg.Pipeline.RawPath == "" {
		cfg.Pipeline.RawPath = "data/raw/ssri_partd_2023_five_states_raw.csv"
	}
	if cfg.Pipeline.ManifestPath == "" {
		cfg.Pipeline.ManifestPath = "data/raw/fetch_manifest.json"
	}
	if cfg.Pipeline.AggregatedPath == "" {
		cfg.Pipeline.AggregatedPath = "data/processed/ssri_partd_2023_five_states_aggregated.csv"
	}
	if cfg.Pipeline.SummaryPath == "" {
		cfg.Pipeline.SummaryPath = "results/analysis_summary.md"
	}
	if cfg.Pipeline.VisualsDir == "" {
		cfg.Pipeline.VisualsDir = "results/visuals"
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.S3Prefix == "" {
		cfg.Storage.S3Prefix = "partd-ssri"
	}
	if cfg.Storage.AWSRegion == "" {
		cfg.Storage.AWSRegion = "us-west-2"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars.
// A missing config file is not an error: the pipeline falls back to
// built-in defaults so the stages run out of the box.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = Default()
	}

	// Override with environment variables if present
	if baseURL := os.Getenv("CMS_BASE_URL"); baseURL != "" {
		cfg.CMS.BaseURL = baseURL
	}
	if year := os.Getenv("PARTD_YEAR"); year != "" {
		cfg.CMS.Year = year
	}
	if maxRows := os.Getenv("PARTD_MAX_ROWS"); maxRows != "" {
		if n, err := strconv.Atoi(maxRows); err == nil && n > 0 {
			cfg.CMS.MaxRows = n
		}
	}
	if storageType := os.Getenv("STORAGE_TYPE"); storageType != "" {
		cfg.Storage.Type = storageType
	}
	if bucket := os.Getenv("STORAGE_S3_BUCKET"); bucket != "" {
		cfg.Storage.S3Bucket = bucket
	}
	if region := os.Getenv("STORAGE_S3_REGION"); region != "" {
		cfg.Storage.AWSRegion = region
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	return cfg, nil
}
