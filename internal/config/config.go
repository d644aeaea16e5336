package config

import (
	"encoding/json"
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database *dbConfig
	Service  *svcConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"corpus"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address         string `envconfig:"CORPUS_INGEST_ADDRESS" default:":3200"`
	BaseUrl         string `envconfig:"CORPUS_INGEST_BASE_URL" default:"http://localhost:3200"`
	LogLevel        string `envconfig:"CORPUS_INGEST_LOG_LEVEL" default:"info"`
	MigrationFolder string `envconfig:"CORPUS_INGEST_MIGRATIONS_FOLDER" default:""`

	Queue queueConfig
	Ocr   ocrConfig
}

type queueConfig struct {
	// MaxWorkers bounds how many stage tasks run concurrently in one
	// worker process.
	MaxWorkers int `envconfig:"CORPUS_INGEST_QUEUE_MAX_WORKERS" default:"4"`
	// MaxAttempts is the per-task retry budget before a stage is marked
	// failed.
	MaxAttempts int `envconfig:"CORPUS_INGEST_QUEUE_MAX_ATTEMPTS" default:"3"`
	// RetryBaseDelaySeconds is the first retry delay; every following
	// retry doubles it.
	RetryBaseDelaySeconds int `envconfig:"CORPUS_INGEST_QUEUE_RETRY_BASE_DELAY" default:"5"`
	// ReconcileIntervalSeconds drives the loop re-enqueuing jobs stuck in
	// queued with no pending task.
	ReconcileIntervalSeconds int `envconfig:"CORPUS_INGEST_QUEUE_RECONCILE_INTERVAL" default:"60"`
}

type ocrConfig struct {
	// Providers is the fallback priority order. Recognized names:
	// tesseract, paddle-http.
	Providers []string `envconfig:"CORPUS_INGEST_OCR_PROVIDERS" default:"tesseract,paddle-http"`
	// MinConfidence is the bar a provider result must meet to stop the
	// fallback chain.
	MinConfidence      float64  `envconfig:"CORPUS_INGEST_OCR_MIN_CONFIDENCE" default:"0.8"`
	TesseractLanguages []string `envconfig:"CORPUS_INGEST_OCR_TESSERACT_LANGS" default:"ara"`
	PaddleEndpoint     string   `envconfig:"CORPUS_INGEST_OCR_PADDLE_ENDPOINT" default:""`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}

// NewDefault returns a config holding defaults only, with a sqlite database
// so tests never need a running postgres.
func NewDefault() *Config {
	return &Config{
		Database: &dbConfig{
			Type: "sqlite",
			Name: ":memory:",
		},
		Service: &svcConfig{
			Address:  ":3200",
			BaseUrl:  "http://localhost:3200",
			LogLevel: "info",
			Queue: queueConfig{
				MaxWorkers:               4,
				MaxAttempts:              3,
				RetryBaseDelaySeconds:    5,
				ReconcileIntervalSeconds: 60,
			},
			Ocr: ocrConfig{
				Providers:          []string{"tesseract", "paddle-http"},
				MinConfidence:      0.8,
				TesseractLanguages: []string{"ara"},
			},
		},
	}
}

// PgDSN renders the postgres connection string shared by gorm and the pgx
// pool backing the queue.
func (c *Config) PgDSN() string {
	dsn := fmt.Sprintf("host=%s user=%s password=%s port=%s",
		c.Database.Hostname,
		c.Database.User,
		c.Database.Password,
		c.Database.Port,
	)
	if c.Database.Name != "" {
		dsn = fmt.Sprintf("%s dbname=%s", dsn, c.Database.Name)
	}
	return dsn
}

func (c Config) String() string {
	val, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return string(val)
}
