package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
cms:
  base_url: "http://localhost:9999/data"
  page_size: 250
  page_delay_ms: 10
  timeout_seconds: 15
  max_rows: 1000
  year: "2022"

pipeline:
  states: [CA, WA]
  drug_groups:
    - label: "Sertraline (Zoloft)"
      generic: "SERTRALINE HCL"
      brand: "ZOLOFT"
  raw_path: "tmp/raw.csv"

storage:
  type: "aws"
  s3_bucket: "partd-artifacts"
  s3_prefix: "runs"
  aws_region: "us-east-1"

logging:
  level: "debug"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	// Test CMS config
	assert.Equal(t, "http://localhost:9999/data", cfg.CMS.BaseURL)
	assert.Equal(t, 250, cfg.CMS.PageSize)
	assert.Equal(t, 10*time.Millisecond, cfg.CMS.PageDelay())
	assert.Equal(t, 15*time.Second, cfg.CMS.Timeout())
	assert.Equal(t, 1000, cfg.CMS.MaxRows)
	assert.Equal(t, "2022", cfg.CMS.Year)

	// Test pipeline config
	assert.Equal(t, []string{"CA", "WA"}, cfg.Pipeline.States)
	require.Len(t, cfg.Pipeline.DrugGroups, 1)
	assert.Equal(t, "Sertraline (Zoloft)", cfg.Pipeline.DrugGroups[0].Label)
	assert.Equal(t, "tmp/raw.csv", cfg.Pipeline.RawPath)
	// Unset paths fall back to defaults
	assert.Equal(t, "data/processed/ssri_partd_2023_five_states_aggregated.csv", cfg.Pipeline.AggregatedPath)

	// Test storage config
	assert.Equal(t, "aws", cfg.Storage.Type)
	assert.Equal(t, "partd-artifacts", cfg.Storage.S3Bucket)
	assert.Equal(t, "runs", cfg.Storage.S3Prefix)
	assert.Equal(t, "us-east-1", cfg.Storage.AWSRegion)

	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadDefaults(t *testing.T) {
	// Create a minimal config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
storage:
  type: "local"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	// Verify defaults are applied
	assert.Equal(t, 5000, cfg.CMS.PageSize)
	assert.Equal(t, 500*time.Millisecond, cfg.CMS.PageDelay())
	assert.Equal(t, "2023", cfg.CMS.Year)
	assert.Equal(t, 0, cfg.CMS.MaxRows)
	assert.Equal(t, []string{"CA", "TX", "FL", "NY", "PA"}, cfg.Pipeline.States)
	assert.Len(t, cfg.Pipeline.DrugGroups, 5)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Contains(t, cfg.CMS.BaseURL, "data.cms.gov")
	assert.Equal(t, 5000, cfg.CMS.PageSize)
	assert.Equal(t, "data/raw/ssri_partd_2023_five_states_raw.csv", cfg.Pipeline.RawPath)
	assert.Equal(t, "results/visuals", cfg.Pipeline.VisualsDir)
}

func TestLoadFromEnv(t *testing.T) {
	// Set environment variables
	os.Setenv("CMS_BASE_URL", "http://stub:8080/data")
	os.Setenv("PARTD_MAX_ROWS", "2500")
	os.Setenv("PARTD_YEAR", "2021")
	os.Setenv("STORAGE_TYPE", "aws")
	os.Setenv("STORAGE_S3_BUCKET", "env-bucket")
	os.Setenv("LOG_LEVEL", "debug")
	defer func() {
		os.Unsetenv("CMS_BASE_URL")
		os.Unsetenv("PARTD_MAX_ROWS")
		os.Unsetenv("PARTD_YEAR")
		os.Unsetenv("STORAGE_TYPE")
		os.Unsetenv("STORAGE_S3_BUCKET")
		os.Unsetenv("LOG_LEVEL")
	}()

	// Missing config file: defaults plus env overrides
	cfg, err := LoadFromEnv(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://stub:8080/data", cfg.CMS.BaseURL)
	assert.Equal(t, 2500, cfg.CMS.MaxRows)
	assert.Equal(t, "2021", cfg.CMS.Year)
	assert.Equal(t, "aws", cfg.Storage.Type)
	assert.Equal(t, "env-bucket", cfg.Storage.S3Bucket)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Non-overridden values keep defaults
	assert.Equal(t, 5000, cfg.CMS.PageSize)
}

func TestLoadFromEnvIgnoresBadMaxRows(t *testing.T) {
	os.Setenv("PARTD_MAX_ROWS", "not-a-number")
	defer os.Unsetenv("PARTD_MAX_ROWS")

	cfg, err := LoadFromEnv(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.CMS.MaxRows)
}

func TestDrugNamesOrder(t *testing.T) {
	cfg := Default()

	names := cfg.Pipeline.DrugNames()
	require.Len(t, names, 10)

	// Generics first, brands second, declared order preserved
	assert.Equal(t, "SERTRALINE HCL", names[0])
	assert.Equal(t, "CITALOPRAM HBR", names[4])
	assert.Equal(t, "ZOLOFT", names[5])
	assert.Equal(t, "CELEXA", names[9])
}

func TestGroupLabels(t *testing.T) {
	p := PipelineConfig{DrugGroups: []DrugGroup{
		{Label: "Sertraline (Zoloft)", Generic: "SERTRALINE HCL"},
		{Label: "Sertraline (Zoloft)", Brand: "ZOLOFT"},
		{Label: "Fluoxetine (Prozac)", Generic: "FLUOXETINE HCL"},
	}}

	labels := p.GroupLabels()
	assert.Equal(t, []string{"Sertraline (Zoloft)", "Fluoxetine (Prozac)"}, labels)
}

func TestGetAWSProfile(t *testing.T) {
	c := StorageConfig{AWSProfile: "ignite-dev"}
	assert.Equal(t, "ignite-dev", c.GetAWSProfile())

	os.Setenv("AWS_PROFILE_OVERRIDE", "other")
	defer os.Unsetenv("AWS_PROFILE_OVERRIDE")
	assert.Equal(t, "other", c.GetAWSProfile())

	os.Setenv("AWS_PROFILE_OVERRIDE", "iam")
	assert.Equal(t, "", c.GetAWSProfile())
}

func TestTimeout(t *testing.T) {
	cfg := CMSConfig{TimeoutSeconds: 45}
	assert.Equal(t, 45*time.Second, cfg.Timeout())
}
