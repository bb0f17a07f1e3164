// Package errors provides standardized error handling for the claims
// triage pipeline.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Rule store errors
const (
	ErrCodeRuleNotFound       ErrorCode = "RULE_NOT_FOUND"
	ErrCodeRuleInvalid        ErrorCode = "RULE_INVALID"
	ErrCodeRulesPersistFailed ErrorCode = "RULES_PERSIST_FAILED"
	ErrCodeRulesLoadFailed    ErrorCode = "RULES_LOAD_FAILED"
)

// Claim store errors
const (
	ErrCodeClaimNotFound       ErrorCode = "CLAIM_NOT_FOUND"
	ErrCodeClaimStoreFailed    ErrorCode = "CLAIM_STORE_FAILED"
	ErrCodeClaimUpdateFailed   ErrorCode = "CLAIM_UPDATE_FAILED"
	ErrCodeDuplicateClaim      ErrorCode = "DUPLICATE_CLAIM"
	ErrCodeIntakeInvalid       ErrorCode = "INTAKE_INVALID"
	ErrCodeMissingDocument     ErrorCode = "MISSING_DOCUMENT"
	ErrCodeInvalidClaimType    ErrorCode = "INVALID_CLAIM_TYPE"
	ErrCodeSnapshotMalformed   ErrorCode = "SNAPSHOT_MALFORMED"
	ErrCodeReroutePartial      ErrorCode = "REROUTE_PARTIAL"
	ErrCodeModelUnavailable    ErrorCode = "MODEL_UNAVAILABLE"
	ErrCodeReactiveUnavailable ErrorCode = "REACTIVE_PIPELINE_UNAVAILABLE"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewRuleNotFoundError reports a rule id that does not exist in the store.
func NewRuleNotFoundError(ruleID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRuleNotFound,
		Message:   "Routing rule not found",
		Details:   ruleID,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRuleInvalidError reports a rule payload that failed validation.
func NewRuleInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRuleInvalid,
		Message:   "Routing rule failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRulesPersistError reports a failed rule file write. The in-memory rule
// set stays authoritative, so the condition is retryable.
func NewRulesPersistError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRulesPersistFailed,
		Message:   "Failed to persist routing rules",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewClaimNotFoundError reports a claim id missing from the claim store.
func NewClaimNotFoundError(claimID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeClaimNotFound,
		Message:   "Claim not found",
		Details:   claimID,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewClaimStoreError reports a claim persistence failure.
func NewClaimStoreError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeClaimStoreFailed,
		Message:   "Claim store operation failed",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewClaimUpdateError reports a failed routing update on a stored claim.
func NewClaimUpdateError(claimID, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeClaimUpdateFailed,
		Message:   "Failed to update claim routing",
		Details:   details,
		Retryable: true,
		Metadata:  map[string]interface{}{"claim_id": claimID},
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateClaimError reports an intake whose claim number is already
// stored.
func NewDuplicateClaimError(claimNumber string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateClaim,
		Message:   "Claim number already exists",
		Details:   claimNumber,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewIntakeInvalidError reports a claim intake that cannot be processed.
func NewIntakeInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeIntakeInvalid,
		Message:   "Claim intake failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingDocumentError reports a required document absent from an intake.
func NewMissingDocumentError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingDocument,
		Message:   "Required claim document missing",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Helpers
// ==========================

// IsCode reports whether err is a StandardError carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	stdErr, ok := err.(*StandardError)
	return ok && stdErr.Code == code
}

// GetErrorCategory groups codes for logging and metrics labels.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeRuleNotFound, ErrCodeRuleInvalid, ErrCodeRulesPersistFailed, ErrCodeRulesLoadFailed:
		return "rules"
	case ErrCodeClaimNotFound, ErrCodeClaimStoreFailed, ErrCodeClaimUpdateFailed, ErrCodeDuplicateClaim:
		return "claims"
	case ErrCodeIntakeInvalid, ErrCodeMissingDocument, ErrCodeInvalidClaimType:
		return "intake"
	case ErrCodeSnapshotMalformed, ErrCodeReroutePartial:
		return "reroute"
	case ErrCodeModelUnavailable, ErrCodeReactiveUnavailable:
		return "degraded"
	default:
		return "internal"
	}
}
