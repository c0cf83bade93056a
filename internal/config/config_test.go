package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func etcPath(t *testing.T) string {
	t.Helper()

	projectRoot, err := filepath.Abs("../../")
	require.NoError(t, err)

	return filepath.Join(projectRoot, "etc") + string(filepath.Separator)
}

func validConfig() Config {
	return Config{
		Title:     "Test",
		DB:        DB{GormEngine: EngineSQLite, Name: ":memory:"},
		Webserver: Webserver{Port: 8080, URL: "http://localhost:8080"},
	}
}

func TestReadConfig(t *testing.T) {
	cfg, err := ReadConfig(etcPath(t))
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.Title)
	assert.NotZero(t, cfg.Webserver.Port)
	assert.NotEmpty(t, cfg.Webserver.URL)
	assert.Equal(t, EngineSQLite, cfg.DB.GormEngine)
	assert.Equal(t, 12*time.Hour, cfg.Webserver.Session.ExpiryTime)
	assert.Equal(t, 365, cfg.Audit.RetentionDays)
	assert.Equal(t, "admin", cfg.Admin.Username)
	assert.Equal(t, 200*time.Millisecond, cfg.Log.SQL.SlowThreshold)
	assert.Equal(t, "access.log", cfg.Log.File.Access.Name)
	assert.True(t, cfg.Log.Console.Enabled)
}

func TestReadConfigMissingFile(t *testing.T) {
	_, err := ReadConfig(t.TempDir() + string(filepath.Separator))
	assert.Error(t, err)
}

func TestReadConfigWithJSONOverride(t *testing.T) {
	t.Setenv(EnvConfigJSON, `{"Title":"Test Override","Webserver":{"Port":9090},"Audit":{"RetentionDays":7}}`)

	cfg, err := ReadConfig(etcPath(t))
	require.NoError(t, err)

	assert.Equal(t, "Test Override", cfg.Title)
	assert.Equal(t, 9090, cfg.Webserver.Port)
	// untouched keys keep their TOML values
	assert.Equal(t, "http://localhost:8080", cfg.Webserver.URL)
	assert.Equal(t, 7, cfg.Audit.RetentionDays)
}

func TestReadConfigWithBrokenJSONOverride(t *testing.T) {
	t.Setenv(EnvConfigJSON, `{"Title":`)

	_, err := ReadConfig(etcPath(t))
	assert.ErrorContains(t, err, EnvConfigJSON)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{
			name:   "valid config",
			modify: func(*Config) {},
		},
		{
			name:    "missing port",
			modify:  func(c *Config) { c.Webserver.Port = 0 },
			wantErr: ErrWebServerPortCanNotBeZero,
		},
		{
			name:    "missing URL",
			modify:  func(c *Config) { c.Webserver.URL = "" },
			wantErr: ErrEmptyURL,
		},
		{
			name:    "unknown engine",
			modify:  func(c *Config) { c.DB.GormEngine = "oracle" },
			wantErr: ErrUnknownGormEngine,
		},
		{
			name:    "negative retention",
			modify:  func(c *Config) { c.Audit.RetentionDays = -1 },
			wantErr: ErrNegativeRetention,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)

			err := validate(&cfg)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, validate(&cfg))

	assert.Equal(t, defaultShutDownTime, cfg.Webserver.ShutDownTime)
	assert.Equal(t, defaultSessionExpiry, cfg.Webserver.Session.ExpiryTime)
	assert.Equal(t, defaultPruneSchedule, cfg.Audit.PruneSchedule)
	assert.Equal(t, defaultLogServiceName, cfg.Log.ServiceName)
	assert.Equal(t, "Test", cfg.Log.AppName)
	assert.Zero(t, cfg.Audit.RetentionDays)
}

func TestDumpConfig(t *testing.T) {
	cfg := validConfig()

	tomlStr, err := DumpConfig(&cfg)
	require.NoError(t, err)

	assert.Contains(t, tomlStr, "Test")
	assert.Contains(t, tomlStr, "[Webserver]")
}

func TestDumpConfigJSON(t *testing.T) {
	cfg := validConfig()

	jsonStr, err := DumpConfigJSON(&cfg)
	require.NoError(t, err)

	var decoded Config
	require.NoError(t, json.Unmarshal([]byte(jsonStr), &decoded))
	assert.Equal(t, cfg, decoded)
}

func TestMain(m *testing.M) {
	// a developer shell may carry an override, the tests expect the plain file
	_ = os.Unsetenv(EnvConfigJSON)

	os.Exit(m.Run())
}
