package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/derril-tech/ai-patent-explorer/internal/config"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/monitoring/logging"
	"github.com/derril-tech/ai-patent-explorer/pkg/errors"
)

// Handler processes one decoded request and returns the result payload to
// publish on the operation's result topic.
type Handler func(ctx context.Context, env *RequestEnvelope) (interface{}, error)

// readerAPI is the slice of kafka.Reader used by the consumer loop.
type readerAPI interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads pipeline request topics and dispatches each message to the
// handler registered for its operation.  Replies go out through the
// Producer: results on <op>.result, failures on <op>.error.  A message is
// committed once its reply is published, so a crashed worker replays the
// request rather than losing it.
type Consumer struct {
	reader   readerAPI
	producer *Producer
	topics   Topics
	logger   logging.Logger

	mu       sync.RWMutex
	handlers map[string]Handler // request topic -> handler
	ops      map[string]string  // request topic -> operation

	maxRetries   int
	retryBackoff time.Duration

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewConsumer builds a consumer group member subscribed to every pipeline
// request topic.
func NewConsumer(cfg config.KafkaConfig, worker config.WorkerConfig, producer *Producer, log logging.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.CodeInvalidParam, "kafka brokers required")
	}
	if cfg.GroupID == "" {
		return nil, errors.New(errors.CodeInvalidParam, "kafka group id required")
	}

	topics := NewTopics(cfg.TopicPrefix)

	startOffset := kafka.FirstOffset
	if cfg.StartOffset == "latest" {
		startOffset = kafka.LastOffset
	}
	commitInterval := cfg.CommitInterval
	if commitInterval <= 0 {
		commitInterval = time.Second
	}
	minBytes := cfg.MinBytes
	if minBytes <= 0 {
		minBytes = 1
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 10 * 1024 * 1024
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		GroupTopics:    topics.AllRequests(),
		StartOffset:    startOffset,
		CommitInterval: commitInterval,
		MinBytes:       minBytes,
		MaxBytes:       maxBytes,
	})

	maxRetries := worker.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	retryBackoff := worker.RetryBackoff
	if retryBackoff <= 0 {
		retryBackoff = time.Second
	}

	return &Consumer{
		reader:       reader,
		producer:     producer,
		topics:       topics,
		logger:       log.Named("kafka_consumer"),
		handlers:     make(map[string]Handler),
		ops:          make(map[string]string),
		maxRetries:   maxRetries,
		retryBackoff: retryBackoff,
	}, nil
}

// Handle registers the handler for op, replacing any previous registration.
func (c *Consumer) Handle(op string, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	topic := c.topics.Request(op)
	c.handlers[topic] = handler
	c.ops[topic] = op
}

// Start launches the consume loop.  Returns an error if already running.
func (c *Consumer) Start(ctx context.Context) error {
	if c.running.Swap(true) {
		return errors.New(errors.CodeConflict, "consumer already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.consumeLoop(ctx)
	c.logger.Info("kafka consumer started")
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("fetch message", logging.Err(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		c.processMessage(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("commit message",
				logging.String("topic", msg.Topic),
				logging.Int64("offset", msg.Offset),
				logging.Err(err))
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) {
	c.mu.RLock()
	handler, ok := c.handlers[msg.Topic]
	op := c.ops[msg.Topic]
	c.mu.RUnlock()

	if !ok {
		c.logger.Warn("no handler for topic", logging.String("topic", msg.Topic))
		return
	}

	var env RequestEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		c.logger.Error("malformed request envelope",
			logging.String("topic", msg.Topic),
			logging.Int64("offset", msg.Offset),
			logging.Err(err))
		return
	}

	result, err := c.invoke(ctx, handler, &env)
	if err != nil {
		c.logger.Warn("request failed",
			logging.String("operation", op),
			logging.String("request_id", env.RequestID),
			logging.String("code", errors.GetCode(err).String()),
			logging.Err(err))
		if pubErr := c.producer.PublishError(ctx, op, env.RequestID, err); pubErr != nil {
			c.logger.Error("publish error reply", logging.Err(pubErr))
		}
		return
	}

	if pubErr := c.producer.PublishResult(ctx, op, env.RequestID, result); pubErr != nil {
		c.logger.Error("publish result reply", logging.Err(pubErr))
	}
}

// invoke runs the handler, retrying transient failures with a fixed backoff.
// Domain errors (invalid input, not found) are not retried.
func (c *Consumer) invoke(ctx context.Context, handler Handler, env *RequestEnvelope) (interface{}, error) {
	result, err := handler(ctx, env)
	if err == nil {
		return result, nil
	}
	if !retryable(err) {
		return nil, err
	}
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryBackoff):
		}
		result, err = handler(ctx, env)
		if err == nil {
			return result, nil
		}
		if !retryable(err) {
			return nil, err
		}
	}
	return nil, err
}

func retryable(err error) bool {
	if errors.IsNotFound(err) {
		return false
	}
	switch errors.GetCode(err) {
	case errors.CodeInvalidParam, errors.CodeSerialization, errors.CodeEmptyQuery,
		errors.CodeInvalidWorkspace, errors.CodeInvalidSearchMode, errors.CodeSegmentationEmpty:
		return false
	}
	return true
}

// Close stops the loop and closes the reader.
func (c *Consumer) Close() error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	err := c.reader.Close()
	c.logger.Info("kafka consumer closed")
	return err
}
