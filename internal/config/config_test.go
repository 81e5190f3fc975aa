package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()

	assert.Equal(t, 5000, c.Port)
	assert.Equal(t, StorageSQLite, c.StorageBackend)
	assert.Equal(t, DetectorOpenCV, c.Detector)
	assert.Equal(t, 0.25, c.ConfidenceThreshold)
	assert.Equal(t, 0.45, c.NMSThreshold)
	assert.Equal(t, 24*time.Hour, c.TokenTTL)
	assert.True(t, c.PersistDetections)
	assert.Equal(t, ArchiveNone, c.ArchiveBackend)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("DEBUG", "true")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("ARCHIVE_FLUSH_INTERVAL", "5")
	t.Setenv("CONFIDENCE_THRESHOLD", "0.6")
	t.Setenv("PERSIST_DETECTIONS", "false")
	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("MAX_BODY_SIZE", "1024")

	c := Default()
	applyEnv(c)

	assert.Equal(t, 8081, c.Port)
	assert.True(t, c.Debug)
	assert.Equal(t, 2*time.Hour, c.TokenTTL)
	assert.Equal(t, 5*time.Second, c.ArchiveFlushInterval)
	assert.Equal(t, 0.6, c.ConfidenceThreshold)
	assert.False(t, c.PersistDetections)
	assert.Equal(t, StoragePostgres, c.StorageBackend)
	assert.Equal(t, int64(1024), c.MaxBodySize)
}

func TestApplyEnv_InvalidValuesKeepDefaults(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("TOKEN_TTL", "forever")
	t.Setenv("DEBUG", "maybe")

	c := Default()
	applyEnv(c)

	assert.Empty(t, cmp.Diff(Default(), c))
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "visioniq.yaml")
	content := `
port: 9000
jwt_secret: from-file
detector: remote
inference_url: http://inference:8000
inference_timeout: 5s
persist_detections: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c := Default()
	require.NoError(t, loadYAML(c, path))

	want := Default()
	want.Port = 9000
	want.JWTSecret = "from-file"
	want.Detector = DetectorRemote
	want.InferenceURL = "http://inference:8000"
	want.InferenceTimeout = 5 * time.Second
	want.PersistDetections = false

	assert.Empty(t, cmp.Diff(want, c))
}

func TestLoadYAML_Errors(t *testing.T) {
	dir := t.TempDir()

	err := loadYAML(Default(), filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("port: [1, 2"), 0o600))
	err = loadYAML(Default(), bad)
	assert.Error(t, err)
}

func TestConfigFilePath(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	tests := []struct {
		name string
		args []string
		env  string
		want string
	}{
		{"flag with value", []string{"-config", "a.yaml"}, "", "a.yaml"},
		{"flag with equals", []string{"--config=b.yaml"}, "", "b.yaml"},
		{"other flags ignored", []string{"-v", "-config", "c.yaml", "-x"}, "", "c.yaml"},
		{"env fallback", nil, "d.yaml", "d.yaml"},
		{"flag wins over env", []string{"-config", "e.yaml"}, "d.yaml", "e.yaml"},
		{"nothing", nil, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CONFIG_FILE", tt.env)
			assert.Equal(t, tt.want, configFilePath(tt.args))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"ok", func(c *Config) {}, false},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"missing secret in debug", func(c *Config) { c.JWTSecret = ""; c.Debug = true }, false},
		{"bad storage", func(c *Config) { c.StorageBackend = "mongo" }, true},
		{"bad detector", func(c *Config) { c.Detector = "tflite" }, true},
		{"bad archive", func(c *Config) { c.ArchiveBackend = "ftp" }, true},
		{"bad format", func(c *Config) { c.ModelFormat = "rcnn" }, true},
		{"bad encoding", func(c *Config) { c.MQTTEncoding = "xml" }, true},
		{"zero threshold", func(c *Config) { c.ConfidenceThreshold = 0 }, true},
		{"threshold above one", func(c *Config) { c.NMSThreshold = 1.5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			c.JWTSecret = "secret"
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_ClampsWorkers(t *testing.T) {
	c := Default()
	c.JWTSecret = "secret"
	c.DetectorWorkers = 0

	require.NoError(t, c.Validate())
	assert.Equal(t, 1, c.DetectorWorkers)
}

func TestAddr(t *testing.T) {
	c := Default()
	c.Host = "127.0.0.1"
	c.Port = 5050
	assert.Equal(t, "127.0.0.1:5050", c.Addr())
}

func TestValidateStorage(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"sqlite without secret", func(c *Config) { c.JWTSecret = "" }, false},
		{"none", func(c *Config) { c.StorageBackend = StorageNone }, false},
		{"postgres with dsn", func(c *Config) { c.StorageBackend = StoragePostgres; c.DatabaseDSN = "postgres://localhost/db" }, false},
		{"ignores detector settings", func(c *Config) { c.Detector = "tflite"; c.ConfidenceThreshold = 0 }, false},
		{"gorm without dsn", func(c *Config) { c.StorageBackend = StorageGorm; c.DatabaseDSN = "" }, true},
		{"unknown backend", func(c *Config) { c.StorageBackend = "mongo" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.ValidateStorage()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	c := Default()
	c.JWTSecret = "secret"
	c.StorageBackend = StoragePostgres
	assert.Error(t, c.Validate(), "Validate includes the storage checks")
}
