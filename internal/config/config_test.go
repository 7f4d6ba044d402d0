package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sheets", cfg.Store.Driver)
	assert.Equal(t, "Leads", cfg.Sheets.LeadsTab)
	assert.Equal(t, "Contacts", cfg.Sheets.ContactsTab)
	assert.Equal(t, "Run_Log", cfg.Sheets.IngestLogTab)
	assert.Equal(t, "Enrichment_Log", cfg.Sheets.EnrichmentLogTab)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://api.apollo.io/api/v1", cfg.Apollo.BaseURL)
	assert.Equal(t, 10, cfg.Apollo.SearchPerPage)
	assert.Equal(t, 600, cfg.Apollo.RevealRatePerHour)
	assert.Equal(t, "https://places.googleapis.com/v1", cfg.Places.BaseURL)
	assert.Equal(t, 50, cfg.Enrich.SmallCompanyThreshold)
	assert.Equal(t, 2, cfg.Enrich.MaxContactsPerCompany)
	assert.Equal(t, 10, cfg.Enrich.DefaultBatchSize)
	assert.Equal(t, 50, cfg.Enrich.CreditBudget)
	assert.Equal(t, 0, cfg.Enrich.RevealRetries)
	assert.Contains(t, cfg.Enrich.PrimaryTitles, "facility manager")
	assert.Equal(t, []string{"owner", "ceo", "president", "founder"}, cfg.Enrich.SecondaryTitles)
	assert.Contains(t, cfg.Enrich.DomainBlocklist, "yelp.com")
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.InDelta(t, 0.20, cfg.Pricing.ApolloPerCredit, 0.001)
	assert.InDelta(t, 0.032, cfg.Pricing.PlacesPerRequest, 0.0001)
	assert.False(t, cfg.Monitoring.Enabled)
	assert.Equal(t, 24, cfg.Monitoring.LookbackWindowHours)
	assert.Equal(t, 300, cfg.Monitoring.CheckIntervalSecs)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
  format: console
enrich:
  primary_titles: ["facility manager"]
  secondary_titles: ["owner"]
  small_company_threshold: 25
  max_contacts_per_company: 3
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, []string{"facility manager"}, cfg.Enrich.PrimaryTitles)
	assert.Equal(t, []string{"owner"}, cfg.Enrich.SecondaryTitles)
	assert.Equal(t, 25, cfg.Enrich.SmallCompanyThreshold)
	assert.Equal(t, 3, cfg.Enrich.MaxContactsPerCompany)
	// Defaults still apply for unset values
	assert.Equal(t, 10, cfg.Enrich.DefaultBatchSize)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("LEADGEN_STORE_DRIVER", "postgres")
	t.Setenv("LEADGEN_LOG_LEVEL", "warn")
	t.Setenv("LEADGEN_APOLLO_KEY", "ap-key")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "ap-key", cfg.Apollo.Key)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("LEADGEN_ENRICH_CREDIT_BUDGET", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Enrich.CreditBudget)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "leadgen.db"
	cfg.Enrich.PrimaryTitles = []string{"facility manager"}
	cfg.Enrich.MaxContactsPerCompany = 2
	cfg.Ingest.QueryFile = "configs/queries.yaml"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateEnrich_AllPresent(t *testing.T) {
	cfg := validDefaults()
	cfg.Apollo.Key = "ap-key"

	assert.NoError(t, cfg.Validate("enrich"))
}

func TestValidateEnrich_MissingFields(t *testing.T) {
	cfg := validDefaults()
	cfg.Enrich.PrimaryTitles = nil
	cfg.Enrich.MaxContactsPerCompany = 0

	err := cfg.Validate("enrich")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apollo.key is required")
	assert.Contains(t, err.Error(), "enrich.primary_titles or enrich.secondary_titles must be set")
	assert.Contains(t, err.Error(), "max_contacts_per_company must be positive")
}

func TestValidateIngest_MissingKey(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("ingest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "places.key is required")
}

func TestValidateSheets_MissingCredentials(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "sheets"
	cfg.Places.Key = "pk"

	err := cfg.Validate("ingest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LEADGEN_SHEETS_SPREADSHEET_ID")
	assert.Contains(t, err.Error(), "LEADGEN_SHEETS_SERVICE_ACCOUNT_JSON")
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mongo"

	err := cfg.Validate("runs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `store.driver "mongo" is not supported`)
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port 0 is out of range")
}
