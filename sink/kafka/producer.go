package kafka

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	"github.com/IBM/sarama"
	"github.com/xdg-go/scram"
)

// NewProducer returns a synchronous producer connected to brokers.
//
// Default configuration:
//   - ClientID: "sendbuf"
//   - Compression: none
//   - Idempotent: false
//   - SASL: disabled
func NewProducer(brokers []string, configFuncs ...ConfigFunc) (sarama.SyncProducer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no brokers")
	}

	producer, err := sarama.NewSyncProducer(brokers, saramaConfig(configFuncs...))
	if err != nil {
		return nil, fmt.Errorf("new producer: %w", err)
	}

	return producer, nil
}

func saramaConfig(configFuncs ...ConfigFunc) *sarama.Config {
	cfg := &Config{}
	cfg.ClientID("sendbuf")
	cfg.Compression("none")
	for _, cf := range configFuncs {
		if cf != nil {
			cf(cfg)
		}
	}

	sc := sarama.NewConfig()
	sc.ClientID = cfg.clientID
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Compression = cfg.compression
	// Retries are made by the buffer's retry policy.
	sc.Producer.Retry.Max = 0

	if cfg.idempotent {
		sc.Producer.Idempotent = true
		sc.Producer.Retry.Max = 1
		sc.Net.MaxOpenRequests = 1
	}

	if cfg.mechanism != "" {
		sc.Net.SASL.Enable = true
		sc.Net.SASL.Mechanism = sarama.SASLMechanism(cfg.mechanism)
		sc.Net.SASL.User = cfg.user
		sc.Net.SASL.Password = cfg.password

		switch cfg.mechanism {
		case sarama.SASLTypeSCRAMSHA256:
			sc.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
				return &scramClient{hashGenerator: sha256Generator}
			}
		case sarama.SASLTypeSCRAMSHA512:
			sc.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
				return &scramClient{hashGenerator: sha512Generator}
			}
		}
	}

	return sc
}

var (
	sha256Generator scram.HashGeneratorFcn = func() hash.Hash { return sha256.New() }
	sha512Generator scram.HashGeneratorFcn = func() hash.Hash { return sha512.New() }
)

// scramClient implements [sarama.SCRAMClient].
type scramClient struct {
	hashGenerator scram.HashGeneratorFcn
	conversation  *scram.ClientConversation
}

func (c *scramClient) Begin(user, password, authzID string) error {
	client, err := c.hashGenerator.NewClient(user, password, authzID)
	if err != nil {
		return err
	}
	c.conversation = client.NewConversation()
	return nil
}

func (c *scramClient) Step(challenge string) (string, error) {
	return c.conversation.Step(challenge)
}

func (c *scramClient) Done() bool {
	return c.conversation.Done()
}
