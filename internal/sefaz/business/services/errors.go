package services

import (
	"errors"
	"fmt"
)

// FailureKind classifies a failed upstream call. Retryability is decided
// here, never by matching error message strings.
type FailureKind int

const (
	FailureValidation FailureKind = iota
	FailureConnectivity
	FailureTimeout
	FailureNetwork
	FailureUpstreamServer
	FailureUpstreamClient
	FailureUpstreamLogical
	FailurePersistence
)

func (k FailureKind) Retryable() bool {
	switch k {
	case FailureTimeout, FailureNetwork, FailureUpstreamServer:
		return true
	}
	return false
}

func (k FailureKind) String() string {
	switch k {
	case FailureValidation:
		return "validation"
	case FailureConnectivity:
		return "connectivity"
	case FailureTimeout:
		return "timeout"
	case FailureNetwork:
		return "network"
	case FailureUpstreamServer:
		return "upstream_server"
	case FailureUpstreamClient:
		return "upstream_client"
	case FailureUpstreamLogical:
		return "upstream_logical"
	case FailurePersistence:
		return "persistence"
	}
	return "unknown"
}

// CallError is the typed failure returned by the search engine once a call
// is given up on.
type CallError struct {
	Kind     FailureKind
	Endpoint string
	Message  string
	Err      error
}

func (e *CallError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sefaz %s [%s]: %s: %v", e.Endpoint, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("sefaz %s [%s]: %s", e.Endpoint, e.Kind, e.Message)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

func AsCallError(err error) (*CallError, bool) {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// ValidationError names the payload field that failed normalization.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid search payload: field %q %s", e.Field, e.Reason)
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
