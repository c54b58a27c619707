package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"handyvoice/internal/publisher"
	"handyvoice/internal/service"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	PersistSync  = "sync"
	PersistQueue = "queue"
)

type StoreConfig struct {
	Driver     string `envconfig:"STORE_DRIVER" default:"postgres"`
	DBDSN      string `envconfig:"DB_DSN"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"handyvoice.db"`

	DBPoolMaxConns          int32  `envconfig:"DB_POOL_MAX_CONNS" default:"10"`
	DBPoolMinConns          int32  `envconfig:"DB_POOL_MIN_CONNS" default:"0"`
	DBPoolMaxConnLifetime   string `envconfig:"DB_POOL_MAX_CONN_LIFETIME" default:"30m"`
	DBPoolMaxConnIdleTime   string `envconfig:"DB_POOL_MAX_CONN_IDLE_TIME" default:"5m"`
	DBPoolHealthCheckPeriod string `envconfig:"DB_POOL_HEALTH_CHECK_PERIOD" default:"30s"`
}

type QueueConfig struct {
	AWSRegion          string `envconfig:"AWS_REGION"`
	SQSQueueURL        string `envconfig:"SQS_QUEUE_URL"`
	LocalstackEndpoint string `envconfig:"LOCALSTACK_ENDPOINT"`
}

type MQTTConfig struct {
	Broker      string `envconfig:"MQTT_BROKER"`
	ClientID    string `envconfig:"MQTT_CLIENT_ID" default:"handyvoice"`
	Username    string `envconfig:"MQTT_USERNAME"`
	Password    string `envconfig:"MQTT_PASSWORD"`
	TopicPrefix string `envconfig:"MQTT_TOPIC_PREFIX" default:"handyvoice"`
	QoS         byte   `envconfig:"MQTT_QOS" default:"1"`
}

type VoiceConfig struct {
	Port        string `envconfig:"PORT" default:"3000"`
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	CustomerServiceNumber string `envconfig:"CUSTOMER_SERVICE_NUMBER" required:"true"`
	PublicBaseURL         string `envconfig:"PUBLIC_BASE_URL" required:"true"` // must match the URL Plivo can reach

	// Plivo
	PlivoAuthID    string  `envconfig:"PLIVO_AUTH_ID" required:"true"`
	PlivoAuthToken string  `envconfig:"PLIVO_AUTH_TOKEN" required:"true"`
	PlivoBaseURL   string  `envconfig:"PLIVO_BASE_URL" default:"https://api.plivo.com"`
	PlivoRPS       float64 `envconfig:"PLIVO_RPS" default:"2"`
	PlivoBurst     int     `envconfig:"PLIVO_BURST" default:"5"`

	PersistMode string `envconfig:"PERSIST_MODE" default:"sync"`

	// seeds one appointment for today at startup when set
	DemoCustomerNumber string `envconfig:"DEMO_CUSTOMER_NUMBER"`
	DemoHandymanNumber string `envconfig:"DEMO_HANDYMAN_NUMBER" default:"16808001249"`

	StoreConfig
	QueueConfig
	MQTTConfig
}

type RecorderConfig struct {
	Port        string `envconfig:"PORT" default:"8080"`
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	SQSWaitTime   int32 `envconfig:"SQS_WAIT_TIME" default:"20"`
	SQSMaxMsgs    int32 `envconfig:"SQS_MAX_MSGS" default:"10"`
	SQSVizTimeout int32 `envconfig:"SQS_VISIBILITY_TIMEOUT" default:"60"`

	RecorderConcurrency int `envconfig:"RECORDER_CONCURRENCY" default:"4"`

	StoreConfig
	QueueConfig
	MQTTConfig
}

// Routing is the immutable routing setup handed to the call handlers.
func (c VoiceConfig) Routing() service.RoutingConfig {
	return service.RoutingConfig{
		CustomerServiceNumber: c.CustomerServiceNumber,
		BaseURL:               strings.TrimRight(c.PublicBaseURL, "/"),
	}
}

func (c VoiceConfig) Validate() error {
	switch c.PersistMode {
	case PersistSync:
	case PersistQueue:
		if err := c.QueueConfig.validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("PERSIST_MODE must be %q or %q, got %q", PersistSync, PersistQueue, c.PersistMode)
	}
	return c.StoreConfig.validate()
}

func (c RecorderConfig) Validate() error {
	if err := c.QueueConfig.validate(); err != nil {
		return err
	}
	return c.StoreConfig.validate()
}

func (s StoreConfig) validate() error {
	switch s.Driver {
	case DriverPostgres:
		if s.DBDSN == "" {
			return errors.New("DB_DSN is required for the postgres store")
		}
	case DriverSQLite:
		if s.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for the sqlite store")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, s.Driver)
	}
	return nil
}

func (q QueueConfig) validate() error {
	if q.AWSRegion == "" || q.SQSQueueURL == "" {
		return errors.New("AWS_REGION and SQS_QUEUE_URL are required for queued persistence")
	}
	return nil
}

// Options maps the MQTT settings onto the publisher's connection options.
func (m MQTTConfig) Options() publisher.MQTTOptions {
	return publisher.MQTTOptions{
		Broker:   m.Broker,
		ClientID: m.ClientID,
		Username: m.Username,
		Password: m.Password,
		QoS:      m.QoS,
	}
}

func LoadVoice() (VoiceConfig, error) {
	_ = godotenv.Load()
	var cfg VoiceConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return VoiceConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return VoiceConfig{}, err
	}
	return cfg, nil
}

func LoadRecorder() (RecorderConfig, error) {
	_ = godotenv.Load()
	var cfg RecorderConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return RecorderConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return RecorderConfig{}, err
	}
	return cfg, nil
}
