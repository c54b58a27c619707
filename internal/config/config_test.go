package config

import (
	"os"
	"strings"
	"testing"
)

func setVoiceEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CUSTOMER_SERVICE_NUMBER", "18005550000")
	t.Setenv("PUBLIC_BASE_URL", "https://voice.example.com/")
	t.Setenv("PLIVO_AUTH_ID", "MAID")
	t.Setenv("PLIVO_AUTH_TOKEN", "token")
	t.Setenv("DB_DSN", "postgres://localhost/handyvoice")
}

func TestLoadVoiceDefaults(t *testing.T) {
	setVoiceEnv(t)

	cfg, err := LoadVoice()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "3000" {
		t.Errorf("expected default port=3000, got %s", cfg.Port)
	}
	if cfg.PersistMode != PersistSync {
		t.Errorf("expected default persist mode sync, got %s", cfg.PersistMode)
	}
	if cfg.Driver != DriverPostgres {
		t.Errorf("expected default driver postgres, got %s", cfg.Driver)
	}
	if cfg.DemoHandymanNumber != "16808001249" {
		t.Errorf("expected default demo handyman, got %s", cfg.DemoHandymanNumber)
	}
	if cfg.TopicPrefix != "handyvoice" || cfg.QoS != 1 {
		t.Errorf("unexpected mqtt defaults prefix=%s qos=%d", cfg.TopicPrefix, cfg.QoS)
	}

	r := cfg.Routing()
	if r.BaseURL != "https://voice.example.com" {
		t.Errorf("expected trailing slash trimmed, got %s", r.BaseURL)
	}
	if r.CustomerServiceNumber != "18005550000" {
		t.Errorf("unexpected customer service number %s", r.CustomerServiceNumber)
	}
}

func TestLoadVoiceMissingRequired(t *testing.T) {
	setVoiceEnv(t)
	os.Unsetenv("CUSTOMER_SERVICE_NUMBER")

	if _, err := LoadVoice(); err == nil {
		t.Fatal("expected error for missing CUSTOMER_SERVICE_NUMBER")
	}
}

func TestLoadVoiceQueueModeNeedsSQS(t *testing.T) {
	setVoiceEnv(t)
	t.Setenv("PERSIST_MODE", "queue")

	_, err := LoadVoice()
	if err == nil || !strings.Contains(err.Error(), "SQS_QUEUE_URL") {
		t.Fatalf("expected SQS error, got %v", err)
	}

	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("SQS_QUEUE_URL", "http://localhost:4566/000000000000/records")
	if _, err := LoadVoice(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadVoiceUnknownPersistMode(t *testing.T) {
	setVoiceEnv(t)
	t.Setenv("PERSIST_MODE", "later")

	if _, err := LoadVoice(); err == nil {
		t.Fatal("expected error for unknown persist mode")
	}
}

func TestLoadVoiceSQLiteNeedsNoDSN(t *testing.T) {
	setVoiceEnv(t)
	t.Setenv("DB_DSN", "")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/voice.db")

	cfg, err := LoadVoice()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SQLitePath != "/tmp/voice.db" {
		t.Errorf("unexpected sqlite path %s", cfg.SQLitePath)
	}
}

func TestLoadVoicePostgresNeedsDSN(t *testing.T) {
	setVoiceEnv(t)
	t.Setenv("DB_DSN", "")

	if _, err := LoadVoice(); err == nil {
		t.Fatal("expected error for missing DB_DSN")
	}
}

func TestLoadRecorderRequiresQueue(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/handyvoice")
	t.Setenv("AWS_REGION", "")
	t.Setenv("SQS_QUEUE_URL", "")

	if _, err := LoadRecorder(); err == nil {
		t.Fatal("expected error without SQS settings")
	}

	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("SQS_QUEUE_URL", "http://localhost:4566/000000000000/records")
	cfg, err := LoadRecorder()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RecorderConcurrency != 4 || cfg.SQSWaitTime != 20 {
		t.Errorf("unexpected recorder defaults %+v", cfg)
	}
}

func TestMQTTOptions(t *testing.T) {
	m := MQTTConfig{Broker: "tcp://localhost:1883", ClientID: "hv", Username: "u", Password: "p", QoS: 2}
	o := m.Options()
	if o.Broker != m.Broker || o.ClientID != "hv" || o.Username != "u" || o.Password != "p" || o.QoS != 2 {
		t.Fatalf("unexpected options %+v", o)
	}
}
