package kafka_config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Brokers) != 1 || cfg.Brokers[0] != DefaultKafkaBrokers {
		t.Errorf("unexpected brokers %v", cfg.Brokers)
	}
	if cfg.ClientID != DefaultClientID {
		t.Errorf("unexpected client id %q", cfg.ClientID)
	}
	if cfg.Consumer.CommitInterval != 0 {
		t.Errorf("expected synchronous commits by default, got %s", cfg.Consumer.CommitInterval)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, "k1:9092, k2:9092")
	t.Setenv(EnvKafkaClientID, "notifier")
	t.Setenv(EnvKafkaProducerCompression, "zstd")
	t.Setenv(EnvKafkaConsumerStartOffset, "-2")
	t.Setenv(EnvKafkaConsumerMaxWait, "2s")
	t.Setenv(EnvKafkaConsumerMaxRetries, "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Brokers) != 2 || cfg.Brokers[1] != "k2:9092" {
		t.Errorf("unexpected brokers %v", cfg.Brokers)
	}
	if cfg.ClientID != "notifier" || cfg.Producer.Compression != "zstd" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Consumer.StartOffset != -2 || cfg.Consumer.MaxWait != 2*time.Second {
		t.Errorf("consumer overrides not applied: %+v", cfg.Consumer)
	}
	if cfg.Consumer.MaxRetries != DefaultConsumerMaxRetries {
		t.Errorf("unparseable value should keep default, got %d", cfg.Consumer.MaxRetries)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "no brokers", mutate: func(c *Config) { c.Brokers = nil }, wantErr: "at least one broker"},
		{name: "empty broker", mutate: func(c *Config) { c.Brokers = []string{"k1:9092", ""} }, wantErr: "broker 1 is empty"},
		{name: "bad compression", mutate: func(c *Config) { c.Producer.Compression = "brotli" }, wantErr: "compression"},
		{name: "bad acks", mutate: func(c *Config) { c.Producer.RequireAcks = 2 }, wantErr: "require acks"},
		{name: "bad offset", mutate: func(c *Config) { c.Consumer.StartOffset = 5 }, wantErr: "start offset"},
		{name: "session below heartbeat", mutate: func(c *Config) { c.Consumer.SessionTimeout = time.Second }, wantErr: "session timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default("localhost:9092")
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
