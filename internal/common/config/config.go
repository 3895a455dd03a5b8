// internal/common/config/config.go
package config

import "fmt"

// Config is the root application configuration.
type Config struct {
	App          AppConfig               `mapstructure:"app"`
	HTTP         HTTPConfig              `mapstructure:"http"`
	Camunda      CamundaConfig           `mapstructure:"camunda"`
	Database     DatabaseConfig          `mapstructure:"database"`
	Workers      map[string]WorkerConfig `mapstructure:"workers"`
	Integrations IntegrationConfig       `mapstructure:"integrations"`
	Matching     MatchingConfig          `mapstructure:"matching"`
	Verification VerificationConfig      `mapstructure:"verification"`
	Logging      LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	// PublicBaseURL is used to build links in patient-facing messages.
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type HTTPConfig struct {
	Address      string `mapstructure:"address"`
	AdminToken   string `mapstructure:"admin_token"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int    `mapstructure:"write_timeout"` // milliseconds
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	Plaintext      bool   `mapstructure:"plaintext"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	// LeadProcessID is the BPMN process started for every submitted lead.
	LeadProcessID string `mapstructure:"lead_process_id"`
	// VerifiedMessage is published when a lead confirms its contact channel.
	VerifiedMessage string `mapstructure:"verified_message"`
	// DeployDir holds BPMN files deployed at startup. Empty skips deployment.
	DeployDir string `mapstructure:"deploy_dir"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the lib/pq connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses      []string `mapstructure:"addresses"`
	Username       string   `mapstructure:"username"`
	Password       string   `mapstructure:"password"`
	TherapistIndex string   `mapstructure:"therapist_index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the settings every job worker understands.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// --- External Integrations ---

type IntegrationConfig struct {
	AWS       AWSConfig       `mapstructure:"aws"`
	Booking   BookingConfig   `mapstructure:"booking"`
	GoogleAds GoogleAdsConfig `mapstructure:"google_ads"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
	SES    struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"ses"`
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		SenderID string `mapstructure:"sender_id"`
	} `mapstructure:"sns"`
}

// BookingConfig points at the scheduling platform's HTTP API.
type BookingConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	APIVersion     string `mapstructure:"api_version"`
	IntroEventSlug string `mapstructure:"intro_event_slug"`
	Timeout        int    `mapstructure:"timeout"`        // milliseconds
	SlotCacheTTL   int    `mapstructure:"slot_cache_ttl"` // seconds
}

type GoogleAdsConfig struct {
	BaseURL            string `mapstructure:"base_url"`
	DeveloperToken     string `mapstructure:"developer_token"`
	CustomerID         string `mapstructure:"customer_id"`
	LoginCustomerID    string `mapstructure:"login_customer_id"`
	ClientID           string `mapstructure:"client_id"`
	ClientSecret       string `mapstructure:"client_secret"`
	RefreshToken       string `mapstructure:"refresh_token"`
	ConversionActionID string `mapstructure:"conversion_action_id"`
	Timeout            int    `mapstructure:"timeout"` // milliseconds
}

// Enabled reports whether enough credentials are present to call the API.
func (g GoogleAdsConfig) Enabled() bool {
	return g.DeveloperToken != "" && g.CustomerID != "" && g.ClientID != "" &&
		g.ClientSecret != "" && g.RefreshToken != ""
}

// --- Domain ---

const (
	CandidateSourcePostgres      = "postgres"
	CandidateSourceElasticsearch = "elasticsearch"
)

type MatchingConfig struct {
	MaxResults      int    `mapstructure:"max_results"`
	CandidateSource string `mapstructure:"candidate_source"`
	CandidatePool   int    `mapstructure:"candidate_pool"`
}

type VerificationConfig struct {
	CodeTTL     int `mapstructure:"code_ttl"` // seconds
	MaxAttempts int `mapstructure:"max_attempts"`
	CodeLength  int `mapstructure:"code_length"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
