package kafka

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/derril-tech/ai-patent-explorer/pkg/errors"
	"github.com/derril-tech/ai-patent-explorer/pkg/types/patent"
)

// Pipeline operations.  Each operation owns a request topic plus result and
// error reply topics.
const (
	OpPlan    = "queryplan"
	OpSearch  = "search"
	OpAlign   = "align"
	OpNovelty = "novelty"
)

const (
	suffixRequest = ".request"
	suffixResult  = ".result"
	suffixError   = ".error"
)

// Operations lists every pipeline operation in dispatch order.
func Operations() []string {
	return []string{OpPlan, OpSearch, OpAlign, OpNovelty}
}

// Topics derives topic names from a configurable prefix so multiple
// deployments can share a broker.
type Topics struct {
	prefix string
}

// NewTopics builds a Topics namer.  A non-empty prefix is joined with a dot.
func NewTopics(prefix string) Topics {
	prefix = strings.TrimSuffix(prefix, ".")
	if prefix != "" {
		prefix += "."
	}
	return Topics{prefix: prefix}
}

func (t Topics) Request(op string) string { return t.prefix + op + suffixRequest }
func (t Topics) Result(op string) string  { return t.prefix + op + suffixResult }
func (t Topics) Error(op string) string   { return t.prefix + op + suffixError }

// AllRequests returns the request topics for every pipeline operation, in
// Operations() order.  Used as the consumer group subscription.
func (t Topics) AllRequests() []string {
	ops := Operations()
	topics := make([]string, len(ops))
	for i, op := range ops {
		topics[i] = t.Request(op)
	}
	return topics
}

// RequestEnvelope wraps an operation payload on a request topic.
type RequestEnvelope struct {
	RequestID string          `json:"request_id"`
	TraceID   string          `json:"trace_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// ResultEnvelope carries a successful reply on a result topic.
type ResultEnvelope struct {
	RequestID string          `json:"request_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// ErrorEnvelope carries a failed reply on an error topic.  Code is the
// string form of the pipeline error code.
type ErrorEnvelope struct {
	RequestID string    `json:"request_id"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRequestEnvelope wraps payload with a fresh request ID.
func NewRequestEnvelope(payload interface{}) (*RequestEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSerialization, "marshal request payload")
	}
	return &RequestEnvelope{
		RequestID: uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Payload:   data,
	}, nil
}

// DecodePayload unmarshals the envelope payload into target.
func (e *RequestEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return errors.New(errors.CodeInvalidParam, "empty request payload")
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "decode request payload")
	}
	return nil
}

// Request payloads.

type PlanRequest struct {
	WorkspaceID string              `json:"workspace_id"`
	Query       string              `json:"query"`
	Method      patent.SearchMethod `json:"method"`
}

type SearchRequest struct {
	WorkspaceID string               `json:"workspace_id"`
	Query       string               `json:"query"`
	Method      patent.SearchMethod  `json:"method"`
	Filters     patent.SearchFilters `json:"filters"`
	K           int                  `json:"k"`
}

type AlignRequest struct {
	PatentID           patent.ID   `json:"patent_id"`
	ClaimNumber        int         `json:"claim_number"`
	ReferencePatentIDs []patent.ID `json:"reference_patent_ids"`
}

type NoveltyRequest struct {
	PatentID    patent.ID `json:"patent_id"`
	ClaimNumber int       `json:"claim_number"`
}

// Result payloads.

type PlanResult struct {
	Plan *patent.PlannedQuery `json:"plan"`
}

type SearchResults struct {
	Results []patent.SearchResult `json:"results"`
}

type AlignResult struct {
	Alignments []patent.Alignment `json:"alignments"`
}

type NoveltyResult struct {
	Score *patent.NoveltyScore `json:"score"`
}
