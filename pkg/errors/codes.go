package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes
const (
	CodeInternal          ErrorCode = "COMMON_001"
	CodeInvalidParam      ErrorCode = "COMMON_002"
	CodeNotFound          ErrorCode = "COMMON_003"
	CodeConflict          ErrorCode = "COMMON_004"
	CodeTimeout           ErrorCode = "COMMON_005"
	CodeSerialization     ErrorCode = "COMMON_006"
	CodeDatabaseError     ErrorCode = "COMMON_007"
	CodeCacheError        ErrorCode = "COMMON_008"
	CodeMessageQueueError ErrorCode = "COMMON_009"

	CodeOK      ErrorCode = "OK"
	CodeUnknown ErrorCode = "UNKNOWN"
)

// Query planning error codes
const (
	CodeEmptyQuery       ErrorCode = "QRY_001"
	CodeQueryPlanFailed  ErrorCode = "QRY_002"
	CodeInvalidWorkspace ErrorCode = "QRY_003"
)

// Retrieval error codes
const (
	CodeSearchFailed       ErrorCode = "RET_001"
	CodeCorpusUnavailable  ErrorCode = "RET_002"
	CodeVectorSearchFailed ErrorCode = "RET_003"
	CodeRerankFailed       ErrorCode = "RET_004"
	CodeInvalidSearchMode  ErrorCode = "RET_005"
)

// Alignment error codes
const (
	CodeAlignmentFailed   ErrorCode = "ALN_001"
	CodeAlignmentNotFound ErrorCode = "ALN_002"
	CodeSegmentationEmpty ErrorCode = "ALN_003"
)

// Novelty scoring error codes
const (
	CodeNoveltyScoringFailed ErrorCode = "NOV_001"
	CodeScoreNotFound        ErrorCode = "NOV_002"
	CodeCalibrationFailed    ErrorCode = "NOV_003"
)

// Similarity provider error codes
const (
	CodeProviderEmbedFailed   ErrorCode = "PRV_001"
	CodeProviderLexicalFailed ErrorCode = "PRV_002"
	CodeProviderUnavailable   ErrorCode = "PRV_003"
)

// Corpus store error codes
const (
	CodePatentNotFound ErrorCode = "CRP_001"
	CodeClaimNotFound  ErrorCode = "CRP_002"
	CodeCorpusEmpty    ErrorCode = "CRP_003"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	CodeInternal:          http.StatusInternalServerError,
	CodeInvalidParam:      http.StatusBadRequest,
	CodeNotFound:          http.StatusNotFound,
	CodeConflict:          http.StatusConflict,
	CodeTimeout:           http.StatusGatewayTimeout,
	CodeSerialization:     http.StatusInternalServerError,
	CodeDatabaseError:     http.StatusInternalServerError,
	CodeCacheError:        http.StatusInternalServerError,
	CodeMessageQueueError: http.StatusInternalServerError,

	CodeEmptyQuery:       http.StatusBadRequest,
	CodeQueryPlanFailed:  http.StatusInternalServerError,
	CodeInvalidWorkspace: http.StatusBadRequest,

	CodeSearchFailed:       http.StatusInternalServerError,
	CodeCorpusUnavailable:  http.StatusServiceUnavailable,
	CodeVectorSearchFailed: http.StatusInternalServerError,
	CodeRerankFailed:       http.StatusInternalServerError,
	CodeInvalidSearchMode:  http.StatusBadRequest,

	CodeAlignmentFailed:   http.StatusInternalServerError,
	CodeAlignmentNotFound: http.StatusNotFound,
	CodeSegmentationEmpty: http.StatusUnprocessableEntity,

	CodeNoveltyScoringFailed: http.StatusInternalServerError,
	CodeScoreNotFound:        http.StatusNotFound,
	CodeCalibrationFailed:    http.StatusInternalServerError,

	CodeProviderEmbedFailed:   http.StatusBadGateway,
	CodeProviderLexicalFailed: http.StatusBadGateway,
	CodeProviderUnavailable:   http.StatusServiceUnavailable,

	CodePatentNotFound: http.StatusNotFound,
	CodeClaimNotFound:  http.StatusNotFound,
	CodeCorpusEmpty:    http.StatusOK,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	CodeInternal:          "internal server error",
	CodeInvalidParam:      "bad request",
	CodeNotFound:          "resource not found",
	CodeConflict:          "resource conflict",
	CodeTimeout:           "request timeout",
	CodeSerialization:     "serialization failed",
	CodeDatabaseError:     "database error",
	CodeCacheError:        "cache error",
	CodeMessageQueueError: "message queue error",

	CodeEmptyQuery:       "query cannot be blank",
	CodeQueryPlanFailed:  "query planning failed",
	CodeInvalidWorkspace: "invalid workspace",

	CodeSearchFailed:       "search failed",
	CodeCorpusUnavailable:  "lexical corpus not available",
	CodeVectorSearchFailed: "vector search failed",
	CodeRerankFailed:       "result reranking failed",
	CodeInvalidSearchMode:  "invalid search mode",

	CodeAlignmentFailed:   "clause alignment failed",
	CodeAlignmentNotFound: "alignment not found",
	CodeSegmentationEmpty: "claim text produced no clauses",

	CodeNoveltyScoringFailed: "novelty scoring failed",
	CodeScoreNotFound:        "novelty score not found",
	CodeCalibrationFailed:    "score calibration failed",

	CodeProviderEmbedFailed:   "embedding provider failed",
	CodeProviderLexicalFailed: "lexical similarity provider failed",
	CodeProviderUnavailable:   "similarity provider unavailable",

	CodePatentNotFound: "patent not found",
	CodeClaimNotFound:  "claim not found",
	CodeCorpusEmpty:    "corpus is empty",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
