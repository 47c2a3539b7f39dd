// This package publishes batches to Kafka with [sarama].
package kafka

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/teenjuna/sendbuf/codec"
	"github.com/teenjuna/sendbuf/internal"
	"github.com/teenjuna/sendbuf/sink"
)

const (
	HeaderContentType = "content-type"
	HeaderBatchSize   = "batch-size"
)

var _ sink.Sink[any] = (*Sink[any])(nil)

// Sink publishes every batch it's sent as a single message to a topic. The message key is a
// random batch ID, and the headers carry the content type of the codec and the number of items.
type Sink[Item any] struct {
	producer sarama.SyncProducer
	topic    string
	codec    codec.Codec[Item]
	logger   *zap.Logger
}

// New returns a sink publishing to topic. The sink owns producer and closes it. If logger is
// nil, nothing is logged.
func New[Item any](
	producer sarama.SyncProducer,
	topic string,
	codec codec.Codec[Item],
	logger *zap.Logger,
) *Sink[Item] {
	if producer == nil {
		panic("producer can't be nil")
	}
	if topic == "" {
		panic("topic can't be blank")
	}
	if codec == nil {
		panic("codec can't be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink[Item]{
		producer: producer,
		topic:    topic,
		codec:    codec,
		logger:   logger.With(zap.String("topic", topic)),
	}
}

func (s *Sink[Item]) Send(ctx context.Context, batch []Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c := s.codec.Derive()
	data, err := c.Encode(slices.Values(batch))
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}

	id := internal.NewID()
	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(id),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte(HeaderContentType),
				Value: []byte(c.ContentType()),
			},
			{
				Key:   []byte(HeaderBatchSize),
				Value: []byte(strconv.Itoa(len(batch))),
			},
		},
	}

	partition, offset, err := s.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	s.logger.Debug("batch published",
		zap.String("id", id),
		zap.Int("items", len(batch)),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)

	return nil
}

func (s *Sink[Item]) Close() error {
	return s.producer.Close()
}
