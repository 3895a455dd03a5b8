// internal/common/config/loader_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: matching
    user: ${TEST_PG_USER}
  redis:
    address: localhost:6379
workers:
  match-therapists:
    enabled: false
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_DefaultsAndExpansion(t *testing.T) {
	t.Setenv("TEST_PG_USER", "matcher")

	cfg, err := LoadFromFile(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "matcher", cfg.Database.Postgres.User)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, 3, cfg.Matching.MaxResults)
	assert.Equal(t, CandidateSourcePostgres, cfg.Matching.CandidateSource)
	assert.Equal(t, 6, cfg.Verification.CodeLength)
	assert.Equal(t, "lead-intake", cfg.Camunda.LeadProcessID)

	assert.False(t, IsWorkerEnabled(cfg, "match-therapists"))
	assert.True(t, IsWorkerEnabled(cfg, "validate-lead"))
	assert.Equal(t, 5, GetWorkerConfig(cfg, "match-therapists").MaxJobsActive)
}

func TestLoadFromFile_EnvironmentOverride(t *testing.T) {
	t.Setenv("TEST_PG_USER", "matcher")
	t.Setenv("MATCHING_MAX_RESULTS", "7")

	cfg, err := LoadFromFile(writeConfig(t, minimalYAML+"matching:\n  max_results: 3\n"))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Matching.MaxResults)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Camunda.BrokerAddress = "localhost:26500"
		cfg.Database.Postgres = PostgresConfig{Host: "h", Database: "d", User: "u"}
		cfg.Database.Redis.Address = "localhost:6379"
		applyDefaults(cfg)
		return cfg
	}

	require.NoError(t, validateConfig(valid()))

	cfg := valid()
	cfg.Camunda.BrokerAddress = ""
	assert.ErrorContains(t, validateConfig(cfg), "camunda.broker_address")

	cfg = valid()
	cfg.Matching.CandidateSource = CandidateSourceElasticsearch
	assert.ErrorContains(t, validateConfig(cfg), "elasticsearch.addresses")
	cfg.Database.Elasticsearch.Addresses = []string{"http://localhost:9200"}
	assert.NoError(t, validateConfig(cfg))

	cfg = valid()
	cfg.Matching.CandidateSource = "csv"
	assert.Error(t, validateConfig(cfg))

	cfg = valid()
	cfg.Verification.CodeLength = 2
	assert.Error(t, validateConfig(cfg))
}

func TestGoogleAdsEnabled(t *testing.T) {
	g := GoogleAdsConfig{DeveloperToken: "d", CustomerID: "1", ClientID: "c", ClientSecret: "s"}
	assert.False(t, g.Enabled())
	g.RefreshToken = "r"
	assert.True(t, g.Enabled())
}

func TestDurations(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
	assert.Equal(t, 10*time.Minute, GetSeconds(600))
	assert.Contains(t, PostgresConfig{Host: "h", Port: 1, SSLMode: "disable"}.GetDSN(), "sslmode=disable")
}
