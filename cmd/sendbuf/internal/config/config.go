// Package config loads the configuration of the sendbuf demo from a YAML file, SENDBUF_*
// environment variables and command line flags, in increasing order of priority.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config represents the demo configuration.
type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Server ServerConfig `mapstructure:"server"`
	Buffer BufferConfig `mapstructure:"buffer"`
	Send   SendConfig   `mapstructure:"send"`
	Sink   SinkConfig   `mapstructure:"sink"`
}

// LogConfig configures the logger. When File is set, logs are also written to it and rotated.
type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"maxSizeMB" validate:"gte=0"`
	MaxBackups int    `mapstructure:"maxBackups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"maxAgeDays" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout" validate:"gt=0"`
}

type BufferConfig struct {
	Capacity  int  `mapstructure:"capacity" validate:"min=1"`
	AutoFlush bool `mapstructure:"autoFlush"`
}

// SendConfig configures the simulated send of a batch: Steps waits of StepDelay each, then the
// batch goes to the sink. A failed send is attempted up to Attempts times, Interval apart, and
// the batch is rolled back after Cooldown.
type SendConfig struct {
	Steps     int           `mapstructure:"steps" validate:"gte=0"`
	StepDelay time.Duration `mapstructure:"stepDelay" validate:"gte=0"`
	Attempts  int           `mapstructure:"attempts" validate:"min=1"`
	Interval  time.Duration `mapstructure:"interval" validate:"gte=0"`
	Cooldown  time.Duration `mapstructure:"cooldown" validate:"gte=0"`
}

type SinkConfig struct {
	Kind   string       `mapstructure:"kind" validate:"oneof=none stdout sqlite kafka"`
	SQLite SQLiteConfig `mapstructure:"sqlite"`
	Kafka  KafkaConfig  `mapstructure:"kafka"`
}

type SQLiteConfig struct {
	File    string `mapstructure:"file" validate:"required"`
	Durable bool   `mapstructure:"durable"`
}

type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers" validate:"required,min=1,dive,hostname_port"`
	Topic         string   `mapstructure:"topic" validate:"required"`
	Compression   string   `mapstructure:"compression" validate:"oneof=none gzip snappy lz4 zstd"`
	Idempotent    bool     `mapstructure:"idempotent"`
	SASLMechanism string   `mapstructure:"saslMechanism" validate:"omitempty,oneof=PLAIN SCRAM-SHA-256 SCRAM-SHA-512"`
	SASLUsername  string   `mapstructure:"saslUsername" validate:"required_with=SASLMechanism"`
	SASLPassword  string   `mapstructure:"saslPassword"`
}

// Flags maps command line flags to configuration keys.
var Flags = map[string]string{
	"addr":      "server.addr",
	"capacity":  "buffer.capacity",
	"log-level": "log.level",
	"log-file":  "log.file",
	"sink":      "sink.kind",
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8080",
			ShutdownTimeout: 30 * time.Second,
		},
		Buffer: BufferConfig{
			Capacity:  5,
			AutoFlush: true,
		},
		Send: SendConfig{
			Steps:     5,
			StepDelay: time.Second,
			Attempts:  1,
		},
		Sink: SinkConfig{
			Kind: "none",
			SQLite: SQLiteConfig{
				File: "sendbuf.db",
			},
			Kafka: KafkaConfig{
				Brokers:     []string{"localhost:9092"},
				Topic:       "sendbuf",
				Compression: "none",
			},
		},
	}
}

// Load reads the configuration. The file is optional; flags may be nil. Only the flags listed
// in [Flags] are bound.
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("SENDBUF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range Flags {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration. Sink settings are checked only for the selected sink.
func Validate(cfg *Config) error {
	errs := make([]error, 0)
	for _, s := range []any{cfg.Log, cfg.Server, cfg.Buffer, cfg.Send} {
		errs = append(errs, validate.Struct(s))
	}
	errs = append(errs, validate.Var(cfg.Sink.Kind, "oneof=none stdout sqlite kafka"))

	switch cfg.Sink.Kind {
	case "sqlite":
		errs = append(errs, validate.Struct(cfg.Sink.SQLite))
	case "kafka":
		errs = append(errs, validate.Struct(cfg.Sink.Kafka))
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.maxSizeMB", cfg.Log.MaxSizeMB)
	v.SetDefault("log.maxBackups", cfg.Log.MaxBackups)
	v.SetDefault("log.maxAgeDays", cfg.Log.MaxAgeDays)
	v.SetDefault("log.compress", cfg.Log.Compress)

	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.shutdownTimeout", cfg.Server.ShutdownTimeout)

	v.SetDefault("buffer.capacity", cfg.Buffer.Capacity)
	v.SetDefault("buffer.autoFlush", cfg.Buffer.AutoFlush)

	v.SetDefault("send.steps", cfg.Send.Steps)
	v.SetDefault("send.stepDelay", cfg.Send.StepDelay)
	v.SetDefault("send.attempts", cfg.Send.Attempts)
	v.SetDefault("send.interval", cfg.Send.Interval)
	v.SetDefault("send.cooldown", cfg.Send.Cooldown)

	v.SetDefault("sink.kind", cfg.Sink.Kind)
	v.SetDefault("sink.sqlite.file", cfg.Sink.SQLite.File)
	v.SetDefault("sink.sqlite.durable", cfg.Sink.SQLite.Durable)
	v.SetDefault("sink.kafka.brokers", cfg.Sink.Kafka.Brokers)
	v.SetDefault("sink.kafka.topic", cfg.Sink.Kafka.Topic)
	v.SetDefault("sink.kafka.compression", cfg.Sink.Kafka.Compression)
	v.SetDefault("sink.kafka.idempotent", cfg.Sink.Kafka.Idempotent)
	v.SetDefault("sink.kafka.saslMechanism", cfg.Sink.Kafka.SASLMechanism)
	v.SetDefault("sink.kafka.saslUsername", cfg.Sink.Kafka.SASLUsername)
	v.SetDefault("sink.kafka.saslPassword", cfg.Sink.Kafka.SASLPassword)
}
