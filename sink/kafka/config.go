package kafka

import (
	"strings"

	"github.com/IBM/sarama"
)

// Config of a producer created by [NewProducer]. Every method panics on invalid input.
type Config struct {
	clientID    string
	compression sarama.CompressionCodec
	idempotent  bool
	mechanism   string
	user        string
	password    string
}

type ConfigFunc = func(c *Config)

func (c *Config) ClientID(clientID string) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		panic("client ID can't be blank")
	}
	c.clientID = clientID
}

// Compression sets the compression codec by name: "none", "gzip", "snappy", "lz4" or "zstd".
func (c *Config) Compression(compression string) {
	switch compression {
	case "none":
		c.compression = sarama.CompressionNone
	case "gzip":
		c.compression = sarama.CompressionGZIP
	case "snappy":
		c.compression = sarama.CompressionSnappy
	case "lz4":
		c.compression = sarama.CompressionLZ4
	case "zstd":
		c.compression = sarama.CompressionZSTD
	default:
		panic("unknown compression " + compression)
	}
}

// Idempotent enables the idempotent producer, so retried sends are not duplicated by the broker.
func (c *Config) Idempotent(idempotent bool) {
	c.idempotent = idempotent
}

// SASL enables SASL authentication with the mechanism "PLAIN", "SCRAM-SHA-256" or
// "SCRAM-SHA-512".
func (c *Config) SASL(mechanism, user, password string) {
	switch mechanism {
	case sarama.SASLTypePlaintext, sarama.SASLTypeSCRAMSHA256, sarama.SASLTypeSCRAMSHA512:
	default:
		panic("unknown SASL mechanism " + mechanism)
	}
	if user == "" {
		panic("user can't be blank")
	}
	c.mechanism = mechanism
	c.user = user
	c.password = password
}
