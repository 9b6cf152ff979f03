package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derril-tech/ai-patent-explorer/internal/config"
	"github.com/derril-tech/ai-patent-explorer/internal/testutil"
	apperrors "github.com/derril-tech/ai-patent-explorer/pkg/errors"
)

type fakeReader struct {
	messages chan kafka.Message

	mu        sync.Mutex
	committed []kafka.Message
	closed    bool
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	r := &fakeReader{messages: make(chan kafka.Message, len(msgs)+1)}
	for _, m := range msgs {
		r.messages <- m
	}
	return r
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.messages:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) commitCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

func newTestConsumer(reader readerAPI, writer *fakeWriter) *Consumer {
	return &Consumer{
		reader:       reader,
		producer:     newTestProducer(writer),
		topics:       NewTopics("patent"),
		logger:       testutil.NewMockLogger(),
		handlers:     make(map[string]Handler),
		ops:          make(map[string]string),
		maxRetries:   2,
		retryBackoff: time.Millisecond,
	}
}

func requestMessage(t *testing.T, topic, requestID string, payload interface{}) kafka.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	value, err := json.Marshal(RequestEnvelope{
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Payload:   data,
	})
	require.NoError(t, err)
	return kafka.Message{Topic: topic, Value: value}
}

func TestNewConsumer_Validation(t *testing.T) {
	log := testutil.NewMockLogger()

	_, err := NewConsumer(config.KafkaConfig{}, config.WorkerConfig{}, nil, log)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam))

	_, err = NewConsumer(config.KafkaConfig{Brokers: []string{"localhost:9092"}}, config.WorkerConfig{}, nil, log)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam))
}

func TestProcessMessage_PublishesResult(t *testing.T) {
	writer := &fakeWriter{}
	c := newTestConsumer(newFakeReader(), writer)
	c.Handle(OpNovelty, func(_ context.Context, env *RequestEnvelope) (interface{}, error) {
		var req NoveltyRequest
		if err := env.DecodePayload(&req); err != nil {
			return nil, err
		}
		return NoveltyResult{}, nil
	})

	msg := requestMessage(t, "patent.novelty.request", "req-1", NoveltyRequest{PatentID: "US-001", ClaimNumber: 1})
	c.processMessage(context.Background(), msg)

	sent := writer.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "patent.novelty.result", sent[0].Topic)

	var env ResultEnvelope
	require.NoError(t, json.Unmarshal(sent[0].Value, &env))
	assert.Equal(t, "req-1", env.RequestID)
}

func TestProcessMessage_HandlerFailurePublishesError(t *testing.T) {
	writer := &fakeWriter{}
	c := newTestConsumer(newFakeReader(), writer)
	calls := 0
	c.Handle(OpAlign, func(context.Context, *RequestEnvelope) (interface{}, error) {
		calls++
		return nil, apperrors.New(apperrors.CodeClaimNotFound, "claim not found")
	})

	msg := requestMessage(t, "patent.align.request", "req-2", AlignRequest{PatentID: "US-001", ClaimNumber: 9})
	c.processMessage(context.Background(), msg)

	// not-found is a domain error, so no retries
	assert.Equal(t, 1, calls)

	sent := writer.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "patent.align.error", sent[0].Topic)

	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(sent[0].Value, &env))
	assert.Equal(t, "req-2", env.RequestID)
	assert.Equal(t, apperrors.CodeClaimNotFound.String(), env.Code)
}

func TestProcessMessage_RetriesTransientFailures(t *testing.T) {
	writer := &fakeWriter{}
	c := newTestConsumer(newFakeReader(), writer)
	calls := 0
	c.Handle(OpSearch, func(context.Context, *RequestEnvelope) (interface{}, error) {
		calls++
		if calls < 3 {
			return nil, apperrors.New(apperrors.CodeSearchFailed, "backend unavailable")
		}
		return SearchResults{}, nil
	})

	msg := requestMessage(t, "patent.search.request", "req-3", SearchRequest{WorkspaceID: "ws", Query: "sensor"})
	c.processMessage(context.Background(), msg)

	assert.Equal(t, 3, calls)
	sent := writer.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "patent.search.result", sent[0].Topic)
}

func TestProcessMessage_RetriesExhausted(t *testing.T) {
	writer := &fakeWriter{}
	c := newTestConsumer(newFakeReader(), writer)
	calls := 0
	c.Handle(OpSearch, func(context.Context, *RequestEnvelope) (interface{}, error) {
		calls++
		return nil, apperrors.New(apperrors.CodeSearchFailed, "backend unavailable")
	})

	msg := requestMessage(t, "patent.search.request", "req-4", SearchRequest{WorkspaceID: "ws", Query: "sensor"})
	c.processMessage(context.Background(), msg)

	assert.Equal(t, 3, calls) // initial attempt + maxRetries
	sent := writer.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "patent.search.error", sent[0].Topic)
}

func TestProcessMessage_MalformedEnvelopeDropped(t *testing.T) {
	writer := &fakeWriter{}
	c := newTestConsumer(newFakeReader(), writer)
	c.Handle(OpPlan, func(context.Context, *RequestEnvelope) (interface{}, error) {
		t.Fatal("handler should not run")
		return nil, nil
	})

	c.processMessage(context.Background(), kafka.Message{
		Topic: "patent.queryplan.request",
		Value: []byte("{not json"),
	})

	assert.Empty(t, writer.sent())
}

func TestProcessMessage_UnknownTopicIgnored(t *testing.T) {
	writer := &fakeWriter{}
	c := newTestConsumer(newFakeReader(), writer)

	msg := requestMessage(t, "patent.unknown.request", "req-5", PlanRequest{})
	c.processMessage(context.Background(), msg)

	assert.Empty(t, writer.sent())
}

func TestConsumeLoop_CommitsAfterReply(t *testing.T) {
	writer := &fakeWriter{}
	msg := requestMessage(t, "patent.queryplan.request", "req-6", PlanRequest{WorkspaceID: "ws", Query: "sensor"})
	reader := newFakeReader(msg)
	c := newTestConsumer(reader, writer)
	c.Handle(OpPlan, func(context.Context, *RequestEnvelope) (interface{}, error) {
		return PlanResult{}, nil
	})

	require.NoError(t, c.Start(context.Background()))
	require.Eventually(t, func() bool {
		return reader.commitCount() == 1
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Close())

	assert.True(t, reader.closed)
	require.Len(t, writer.sent(), 1)
	assert.Equal(t, "patent.queryplan.result", writer.sent()[0].Topic)
}

func TestStart_AlreadyRunning(t *testing.T) {
	c := newTestConsumer(newFakeReader(), &fakeWriter{})

	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	err := c.Start(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
}
