package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/derril-tech/ai-patent-explorer/internal/config"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/monitoring/logging"
	"github.com/derril-tech/ai-patent-explorer/pkg/errors"
)

// writerAPI is the slice of kafka.Writer used by the producer.
type writerAPI interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes result and error replies for pipeline requests.
type Producer struct {
	writer writerAPI
	topics Topics
	logger logging.Logger
	closed atomic.Bool
}

// NewProducer builds a reply producer for the configured brokers.
func NewProducer(cfg config.KafkaConfig, log logging.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.CodeInvalidParam, "kafka brokers required")
	}
	retries := cfg.ProducerRetries
	if retries <= 0 {
		retries = 3
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		MaxAttempts:  retries + 1,
		BatchSize:    batchSize,
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
	return &Producer{
		writer: writer,
		topics: NewTopics(cfg.TopicPrefix),
		logger: log.Named("kafka_producer"),
	}, nil
}

// PublishRequest submits a new pipeline request for op.  Used by the CLI and
// for pipeline chaining.
func (p *Producer) PublishRequest(ctx context.Context, op string, payload interface{}) (string, error) {
	env, err := NewRequestEnvelope(payload)
	if err != nil {
		return "", err
	}
	value, err := json.Marshal(env)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeSerialization, "marshal request envelope")
	}
	if err := p.publish(ctx, p.topics.Request(op), env.RequestID, value, nil); err != nil {
		return "", err
	}
	return env.RequestID, nil
}

// PublishResult publishes payload on op's result topic, keyed by request ID
// so replies for one request land on one partition.
func (p *Producer) PublishResult(ctx context.Context, op, requestID string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "marshal result payload")
	}
	env := ResultEnvelope{
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Payload:   data,
	}
	value, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "marshal result envelope")
	}
	return p.publish(ctx, p.topics.Result(op), requestID, value, nil)
}

// PublishError publishes cause on op's error topic.
func (p *Producer) PublishError(ctx context.Context, op, requestID string, cause error) error {
	env := ErrorEnvelope{
		RequestID: requestID,
		Code:      errors.GetCode(cause).String(),
		Message:   cause.Error(),
		Timestamp: time.Now().UTC(),
	}
	value, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "marshal error envelope")
	}
	headers := map[string]string{"error_code": env.Code}
	return p.publish(ctx, p.topics.Error(op), requestID, value, headers)
}

func (p *Producer) publish(ctx context.Context, topic, requestID string, value []byte, headers map[string]string) error {
	if p.closed.Load() {
		return errors.New(errors.CodeMessageQueueError, "producer closed")
	}
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(requestID),
		Value: value,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "request_id", Value: []byte(requestID)},
		},
	}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, errors.CodeMessageQueueError, "publish to "+topic)
	}
	p.logger.Debug("message published",
		logging.String("topic", topic),
		logging.String("request_id", requestID))
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.writer.Close()
}
