package kafka_config

import (
	"errors"
	"fmt"
	"time"

	"reservo/pkg/logger"

	"github.com/segmentio/kafka-go"
)

type Config struct {
	Brokers     []string
	ClientID    string
	DialTimeout time.Duration

	Producer ProducerConfig
	Consumer ConsumerConfig
}

type ProducerConfig struct {
	MaxAttempts  int
	BatchTimeout time.Duration
	RequireAcks  int    // -1 all, 0 none, 1 leader
	Compression  string // none, gzip, snappy, lz4, zstd
}

type ConsumerConfig struct {
	StartOffset       int64 // kafka.LastOffset or kafka.FirstOffset
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	CommitInterval    time.Duration
	HeartbeatInterval time.Duration
	SessionTimeout    time.Duration
	RebalanceTimeout  time.Duration
	MaxRetries        int
}

// Default returns a configuration pointed at brokers with every other
// setting at its default.
func Default(brokers ...string) *Config {
	return &Config{
		Brokers:     brokers,
		ClientID:    DefaultClientID,
		DialTimeout: DefaultDialTimeout,
		Producer: ProducerConfig{
			MaxAttempts:  DefaultProducerMaxAttempts,
			BatchTimeout: DefaultProducerBatchTimeout,
			RequireAcks:  DefaultProducerRequireAcks,
			Compression:  DefaultProducerCompression,
		},
		Consumer: ConsumerConfig{
			StartOffset:       DefaultConsumerStartOffset,
			MinBytes:          DefaultConsumerMinBytes,
			MaxBytes:          DefaultConsumerMaxBytes,
			MaxWait:           DefaultConsumerMaxWait,
			CommitInterval:    DefaultConsumerCommitInterval,
			HeartbeatInterval: DefaultConsumerHeartbeatInterval,
			SessionTimeout:    DefaultConsumerSessionTimeout,
			RebalanceTimeout:  DefaultConsumerRebalanceTimeout,
			MaxRetries:        DefaultConsumerMaxRetries,
		},
	}
}

// Load applies KAFKA_* environment overrides to the defaults.
func Load() (*Config, error) {
	cfg := Default(DefaultKafkaBrokers)
	var e env

	e.list(EnvKafkaBrokers, &cfg.Brokers)
	e.str(EnvKafkaClientID, &cfg.ClientID)
	e.duration(EnvKafkaDialTimeout, &cfg.DialTimeout)

	e.integer(EnvKafkaProducerMaxAttempts, &cfg.Producer.MaxAttempts)
	e.duration(EnvKafkaProducerBatchTimeout, &cfg.Producer.BatchTimeout)
	e.integer(EnvKafkaProducerRequireAcks, &cfg.Producer.RequireAcks)
	e.str(EnvKafkaProducerCompression, &cfg.Producer.Compression)

	e.int64(EnvKafkaConsumerStartOffset, &cfg.Consumer.StartOffset)
	e.integer(EnvKafkaConsumerMinBytes, &cfg.Consumer.MinBytes)
	e.integer(EnvKafkaConsumerMaxBytes, &cfg.Consumer.MaxBytes)
	e.duration(EnvKafkaConsumerMaxWait, &cfg.Consumer.MaxWait)
	e.duration(EnvKafkaConsumerCommitInterval, &cfg.Consumer.CommitInterval)
	e.duration(EnvKafkaConsumerHeartbeatInterval, &cfg.Consumer.HeartbeatInterval)
	e.duration(EnvKafkaConsumerSessionTimeout, &cfg.Consumer.SessionTimeout)
	e.duration(EnvKafkaConsumerRebalanceTimeout, &cfg.Consumer.RebalanceTimeout)
	e.integer(EnvKafkaConsumerMaxRetries, &cfg.Consumer.MaxRetries)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka: %w", err)
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (cfg *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(len(cfg.Brokers) > 0, "at least one broker is required")
	for i, broker := range cfg.Brokers {
		check(broker != "", "broker %d is empty", i)
	}
	check(cfg.ClientID != "", "client id is required")
	check(cfg.DialTimeout > 0, "dial timeout must be positive, got %s", cfg.DialTimeout)

	p := cfg.Producer
	check(p.MaxAttempts > 0, "producer max attempts must be positive, got %d", p.MaxAttempts)
	check(p.BatchTimeout > 0, "producer batch timeout must be positive, got %s", p.BatchTimeout)
	check(p.RequireAcks >= -1 && p.RequireAcks <= 1, "producer require acks must be -1, 0 or 1, got %d", p.RequireAcks)
	switch p.Compression {
	case "none", "gzip", "snappy", "lz4", "zstd":
	default:
		errs = append(errs, fmt.Errorf("unknown producer compression %q", p.Compression))
	}

	c := cfg.Consumer
	check(c.StartOffset == kafka.LastOffset || c.StartOffset == kafka.FirstOffset,
		"consumer start offset must be %d (newest) or %d (oldest), got %d", kafka.LastOffset, kafka.FirstOffset, c.StartOffset)
	check(c.MinBytes > 0, "consumer min bytes must be positive, got %d", c.MinBytes)
	check(c.MaxBytes >= c.MinBytes, "consumer max bytes must be at least min bytes, got %d", c.MaxBytes)
	check(c.MaxWait > 0, "consumer max wait must be positive, got %s", c.MaxWait)
	check(c.CommitInterval >= 0, "consumer commit interval cannot be negative, got %s", c.CommitInterval)
	check(c.HeartbeatInterval > 0, "consumer heartbeat interval must be positive, got %s", c.HeartbeatInterval)
	check(c.SessionTimeout > c.HeartbeatInterval, "consumer session timeout must exceed the heartbeat interval, got %s", c.SessionTimeout)
	check(c.RebalanceTimeout > 0, "consumer rebalance timeout must be positive, got %s", c.RebalanceTimeout)
	check(c.MaxRetries >= 0, "consumer max retries cannot be negative, got %d", c.MaxRetries)

	return errors.Join(errs...)
}

// Dialer is shared by consumer group readers.
func (cfg *Config) Dialer() *kafka.Dialer {
	return &kafka.Dialer{
		ClientID:  cfg.ClientID,
		Timeout:   cfg.DialTimeout,
		DualStack: true,
	}
}

// Transport is shared by writers.
func (cfg *Config) Transport() *kafka.Transport {
	return &kafka.Transport{
		ClientID:    cfg.ClientID,
		DialTimeout: cfg.DialTimeout,
	}
}

func (cfg *Config) LogConfiguration(log *logger.Logger) {
	log.Info("Kafka configuration loaded",
		"brokers", cfg.Brokers,
		"client_id", cfg.ClientID,
		"producer_require_acks", cfg.Producer.RequireAcks,
		"producer_compression", cfg.Producer.Compression,
		"consumer_start_offset", cfg.Consumer.StartOffset,
		"consumer_commit_interval", cfg.Consumer.CommitInterval,
		"consumer_max_retries", cfg.Consumer.MaxRetries,
	)
}
