package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DetectorOpenCV = "opencv"
	DetectorRemote = "remote"

	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageGorm     = "gorm"
	StorageNone     = "none"

	ArchiveNone = "none"
	ArchiveDisk = "disk"
	ArchiveS3   = "s3"
)

type Config struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Debug       bool   `yaml:"debug"`
	CORSOrigins string `yaml:"cors_origins"`
	MaxBodySize int64  `yaml:"max_body_size"`

	LogDirectory string `yaml:"log_dir"`
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`

	JWTSecret  string        `yaml:"jwt_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`

	StorageBackend    string `yaml:"storage_backend"`
	SQLitePath        string `yaml:"sqlite_path"`
	DatabaseDSN       string `yaml:"database_dsn"`
	PersistDetections bool   `yaml:"persist_detections"`

	Detector            string        `yaml:"detector"`
	ModelPath           string        `yaml:"model_path"`
	ModelConfigPath     string        `yaml:"model_config"`
	ModelFormat         string        `yaml:"model_format"` // yolo or ssd
	LabelsPath          string        `yaml:"labels_path"`
	InputSize           int           `yaml:"input_size"`
	ConfidenceThreshold float64       `yaml:"confidence_threshold"`
	NMSThreshold        float64       `yaml:"nms_threshold"`
	DetectorWorkers     int           `yaml:"detector_workers"`
	InferenceURL        string        `yaml:"inference_url"`
	InferenceTimeout    time.Duration `yaml:"inference_timeout"`

	ArchiveBackend       string        `yaml:"archive_backend"`
	ArchiveDirectory     string        `yaml:"archive_dir"`
	ArchiveBufferLimit   int           `yaml:"archive_buffer_limit"`
	ArchiveFlushInterval time.Duration `yaml:"archive_flush_interval"`
	S3Bucket             string        `yaml:"s3_bucket"`
	S3Region             string        `yaml:"s3_region"`
	S3Endpoint           string        `yaml:"s3_endpoint"`
	S3AccessKey          string        `yaml:"s3_access_key"`
	S3SecretKey          string        `yaml:"s3_secret_key"`

	MQTTBroker   string `yaml:"mqtt_broker"`
	MQTTClientID string `yaml:"mqtt_client_id"`
	MQTTTopic    string `yaml:"mqtt_topic"`
	MQTTQoS      int    `yaml:"mqtt_qos"`
	MQTTEncoding string `yaml:"mqtt_encoding"` // json or msgpack
}

// Default returns the development defaults.
func Default() *Config {
	return &Config{
		Port:        5000,
		CORSOrigins: "*",
		MaxBodySize: 20 << 20,

		LogDirectory: filepath.Join(".", "logs"),
		LogLevel:     "info",
		LogFormat:    "text",

		TokenTTL:   24 * time.Hour,
		BcryptCost: 10,

		StorageBackend:    StorageSQLite,
		SQLitePath:        filepath.Join(".", "data", "visioniq.db"),
		PersistDetections: true,

		Detector:            DetectorOpenCV,
		ModelPath:           filepath.Join(".", "models", "yolov8n.onnx"),
		ModelFormat:         "yolo",
		InputSize:           640,
		ConfidenceThreshold: 0.25,
		NMSThreshold:        0.45,
		DetectorWorkers:     2,
		InferenceURL:        "http://localhost:8000",
		InferenceTimeout:    30 * time.Second,

		ArchiveBackend:       ArchiveNone,
		ArchiveDirectory:     filepath.Join(".", "images"),
		ArchiveBufferLimit:   16,
		ArchiveFlushInterval: 30 * time.Second,
		S3Region:             "us-east-1",

		MQTTClientID: "visioniq",
		MQTTTopic:    "visioniq/detections",
		MQTTEncoding: "json",
	}
}

// Load builds a Config from defaults, then an optional YAML file, then the
// environment (a .env file in the working directory is loaded first if present).
func Load() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadStorage is Load for tools that only open the store: settings other
// than the storage ones are not validated.
func LoadStorage() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateStorage(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func read() (*Config, error) {
	cfg := Default()

	if path := configFilePath(os.Args[1:]); path != "" {
		if err := loadYAML(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	applyEnv(cfg)
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		if !c.Debug {
			return errors.New("JWT_SECRET must be set")
		}
		c.JWTSecret = "insecure-debug-secret"
	}
	if err := c.ValidateStorage(); err != nil {
		return err
	}
	switch c.Detector {
	case DetectorOpenCV, DetectorRemote:
	default:
		return fmt.Errorf("unknown detector %q", c.Detector)
	}
	switch c.ArchiveBackend {
	case ArchiveNone, ArchiveDisk, ArchiveS3:
	default:
		return fmt.Errorf("unknown archive backend %q", c.ArchiveBackend)
	}
	if c.ModelFormat != "yolo" && c.ModelFormat != "ssd" {
		return fmt.Errorf("unknown model format %q", c.ModelFormat)
	}
	if c.MQTTEncoding != "json" && c.MQTTEncoding != "msgpack" {
		return fmt.Errorf("unknown mqtt encoding %q", c.MQTTEncoding)
	}
	if c.ConfidenceThreshold <= 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold %v out of range (0,1]", c.ConfidenceThreshold)
	}
	if c.NMSThreshold <= 0 || c.NMSThreshold > 1 {
		return fmt.Errorf("nms threshold %v out of range (0,1]", c.NMSThreshold)
	}
	if c.DetectorWorkers < 1 {
		c.DetectorWorkers = 1
	}
	return nil
}

// ValidateStorage checks the storage backend settings.
func (c *Config) ValidateStorage() error {
	switch c.StorageBackend {
	case StorageSQLite, StorageNone:
	case StoragePostgres, StorageGorm:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("DATABASE_DSN must be set for the %s backend", c.StorageBackend)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	return nil
}

// configFilePath looks for -config/--config in args, then CONFIG_FILE.
func configFilePath(args []string) string {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	path := fs.String("config", "", "path to YAML config file")

	var filtered []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "-config" || a == "--config" {
			filtered = append(filtered, a)
			if i+1 < len(args) {
				filtered = append(filtered, args[i+1])
				i++
			}
			continue
		}
		if strings.HasPrefix(a, "-config=") || strings.HasPrefix(a, "--config=") {
			filtered = append(filtered, a)
		}
	}
	_ = fs.Parse(filtered)

	if *path != "" {
		return *path
	}
	return os.Getenv("CONFIG_FILE")
}

func applyEnv(c *Config) {
	c.Host = getEnv("HOST", c.Host)
	c.Port = getEnvAsInt("PORT", c.Port)
	c.Debug = getEnvAsBool("DEBUG", c.Debug)
	c.CORSOrigins = getEnv("CORS_ORIGINS", c.CORSOrigins)
	c.MaxBodySize = getEnvAsInt64("MAX_BODY_SIZE", c.MaxBodySize)

	c.LogDirectory = getEnv("LOG_DIR", c.LogDirectory)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.TokenTTL = getEnvAsDuration("TOKEN_TTL", c.TokenTTL)
	c.BcryptCost = getEnvAsInt("BCRYPT_COST", c.BcryptCost)

	c.StorageBackend = getEnv("STORAGE_BACKEND", c.StorageBackend)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.DatabaseDSN = getEnv("DATABASE_DSN", c.DatabaseDSN)
	c.PersistDetections = getEnvAsBool("PERSIST_DETECTIONS", c.PersistDetections)

	c.Detector = getEnv("DETECTOR", c.Detector)
	c.ModelPath = getEnv("MODEL_PATH", c.ModelPath)
	c.ModelConfigPath = getEnv("MODEL_CONFIG", c.ModelConfigPath)
	c.ModelFormat = getEnv("MODEL_FORMAT", c.ModelFormat)
	c.LabelsPath = getEnv("LABELS_PATH", c.LabelsPath)
	c.InputSize = getEnvAsInt("INPUT_SIZE", c.InputSize)
	c.ConfidenceThreshold = getEnvAsFloat("CONFIDENCE_THRESHOLD", c.ConfidenceThreshold)
	c.NMSThreshold = getEnvAsFloat("NMS_THRESHOLD", c.NMSThreshold)
	c.DetectorWorkers = getEnvAsInt("DETECTOR_WORKERS", c.DetectorWorkers)
	c.InferenceURL = getEnv("INFERENCE_URL", c.InferenceURL)
	c.InferenceTimeout = getEnvAsDuration("INFERENCE_TIMEOUT", c.InferenceTimeout)

	c.ArchiveBackend = getEnv("ARCHIVE_BACKEND", c.ArchiveBackend)
	c.ArchiveDirectory = getEnv("ARCHIVE_DIR", c.ArchiveDirectory)
	c.ArchiveBufferLimit = getEnvAsInt("ARCHIVE_BUFFER_LIMIT", c.ArchiveBufferLimit)
	c.ArchiveFlushInterval = getEnvAsDuration("ARCHIVE_FLUSH_INTERVAL", c.ArchiveFlushInterval)
	c.S3Bucket = getEnv("S3_BUCKET", c.S3Bucket)
	c.S3Region = getEnv("S3_REGION", c.S3Region)
	c.S3Endpoint = getEnv("S3_ENDPOINT", c.S3Endpoint)
	c.S3AccessKey = getEnv("S3_ACCESS_KEY", c.S3AccessKey)
	c.S3SecretKey = getEnv("S3_SECRET_KEY", c.S3SecretKey)

	c.MQTTBroker = getEnv("MQTT_BROKER", c.MQTTBroker)
	c.MQTTClientID = getEnv("MQTT_CLIENT_ID", c.MQTTClientID)
	c.MQTTTopic = getEnv("MQTT_TOPIC", c.MQTTTopic)
	c.MQTTQoS = getEnvAsInt("MQTT_QOS", c.MQTTQoS)
	c.MQTTEncoding = getEnv("MQTT_ENCODING", c.MQTTEncoding)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("30s") or plain seconds ("30").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
