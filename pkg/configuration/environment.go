package configuration

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/territory-status/pkg/logging"
)

const Production = "production"

// DefaultEnvFiles never override variables already set in the process.
var DefaultEnvFiles = []string{".env", ".env.local"}

// LoadEnv loads the env files that exist in the working directory. When none
// does, it retries relative to the nearest parent directory holding a go.mod.
func LoadEnv(envFiles []string) (int, error) {
	existing := existingFiles("", envFiles)
	if len(existing) == 0 {
		if root, ok := moduleRoot(); ok {
			existing = existingFiles(root, envFiles)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

func existingFiles(dir string, envFiles []string) []string {
	out := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		path := file
		if dir != "" && !filepath.IsAbs(file) {
			path = filepath.Join(dir, file)
		}
		if fs.FileExists(path) {
			out = append(out, path)
		}
	}
	return out
}

func moduleRoot() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for {
		if fs.FileExists(filepath.Join(dir, "go.mod")) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

type DatabaseOptions struct {
	Name     string `env:"DB_NAME" envDefault:"ua_admin_territory"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type MongoOptions struct {
	URI      string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	Database string `env:"MONGO_DATABASE" envDefault:"ua_admin_territory"`
}

type ArchiveOptions struct {
	Driver      string `env:"ARCHIVE_DRIVER" envDefault:"none"` // none, fs or s3
	Dir         string `env:"ARCHIVE_DIR" envDefault:"./archive"`
	S3Bucket    string `env:"ARCHIVE_S3_BUCKET"`
	S3Region    string `env:"ARCHIVE_S3_REGION" envDefault:"us-east-1"`
	S3Endpoint  string `env:"ARCHIVE_S3_ENDPOINT"`
	S3PathStyle bool   `env:"ARCHIVE_S3_PATH_STYLE" envDefault:"false"`
	S3Prefix    string `env:"ARCHIVE_S3_PREFIX"`
}

func (a *ArchiveOptions) Validate() error {
	switch a.Driver {
	case "none", "fs":
	case "s3":
		if a.S3Bucket == "" {
			return fmt.Errorf("ARCHIVE_S3_BUCKET is required when ARCHIVE_DRIVER is 's3'")
		}
	default:
		return fmt.Errorf("invalid ARCHIVE_DRIVER=%q (expected none|fs|s3)", a.Driver)
	}
	return nil
}

type OpenTelemetryOptions struct {
	Endpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"territory-status"`
}

type PrometheusOptions struct {
	PushgatewayURL string `env:"PROMETHEUS_PUSHGATEWAY_URL"`
	Job            string `env:"PROMETHEUS_JOB" envDefault:"territory_status"`
}

type Configuration struct {
	Database      DatabaseOptions
	Mongo         MongoOptions
	Archive       ArchiveOptions
	OpenTelemetry OpenTelemetryOptions
	Prometheus    PrometheusOptions

	StorageDriver    string `env:"STORAGE_DRIVER" envDefault:"postgres"` // memory, postgres or mongo
	LockBackend      string `env:"LOCK_BACKEND" envDefault:"auto"`       // auto, none, memory, postgres or redis
	RedisURL         string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	LogPath          string `env:"LOG_PATH"`

	logFile *os.File
	logger  *logrus.Logger
}

// Load reads env files and the process environment into a new Configuration.
func Load(envFiles ...string) (*Configuration, error) {
	if len(envFiles) == 0 {
		envFiles = DefaultEnvFiles
	}
	c := &Configuration{}
	if err := c.load(envFiles); err != nil {
		c.Unload()
		return nil, err
	}
	return c, nil
}

func (c *Configuration) load(envFiles []string) error {
	if _, err := LoadEnv(envFiles); err != nil {
		return err
	}
	if err := env.Parse(c); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger
	return nil
}

func (c *Configuration) Validate() error {
	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	switch c.StorageDriver {
	case "memory", "postgres", "mongo":
	default:
		return fmt.Errorf("invalid STORAGE_DRIVER=%q (expected memory|postgres|mongo)", c.StorageDriver)
	}

	c.LockBackend = strings.ToLower(strings.TrimSpace(c.LockBackend))
	switch c.LockBackend {
	case "auto", "none", "memory", "postgres", "redis":
	default:
		return fmt.Errorf("invalid LOCK_BACKEND=%q (expected auto|none|memory|postgres|redis)", c.LockBackend)
	}
	if c.LockBackend == "postgres" && c.StorageDriver != "postgres" {
		return fmt.Errorf("LOCK_BACKEND=postgres requires STORAGE_DRIVER=postgres")
	}

	if err := c.Archive.Validate(); err != nil {
		return fmt.Errorf("archive configuration error: %w", err)
	}
	return nil
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

// Unload closes the log file, if any.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		_ = c.logFile.Close()
		c.logFile = nil
	}
}
