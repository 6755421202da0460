package dispatch

import (
	"fmt"
	"strings"
)

// UnknownModelError reports a model id absent from the static model table.
// Never retried and never reaches a provider.
type UnknownModelError struct {
	Model string
	Known []string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("unknown model %q (known: %s)", e.Model, strings.Join(e.Known, ", "))
}

// MissingCredentialsError reports that no client was configured for the
// provider the model resolves to.
type MissingCredentialsError struct {
	Provider Provider
	Model    string
}

func (e *MissingCredentialsError) Error() string {
	return fmt.Sprintf("no %s credentials configured (model %q)", e.Provider, e.Model)
}

// FailureReason classifies a failed provider call.
type FailureReason string

const (
	// ReasonAuth: the provider refused our credentials (401/403).
	ReasonAuth FailureReason = "auth"
	// ReasonModelNotFound: the provider does not know the requested model.
	ReasonModelNotFound FailureReason = "model_not_found"
	// ReasonRejected: the provider returned any other error response.
	ReasonRejected FailureReason = "rejected"
	// ReasonUnavailable: transport-level failure or timeout; the call may
	// never have reached the provider.
	ReasonUnavailable FailureReason = "unavailable"
)

// ProviderError reports a failed remote call.
type ProviderError struct {
	Provider Provider
	Model    string
	Reason   FailureReason
	Status   int // HTTP status when one was received
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s call failed (%s, status %d): %v", e.Provider, e.Reason, e.Status, e.Err)
	}
	return fmt.Sprintf("%s call failed (%s): %v", e.Provider, e.Reason, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// classifyStatus maps an HTTP error status onto a failure reason.
func classifyStatus(status int) FailureReason {
	switch status {
	case 401, 403:
		return ReasonAuth
	case 404:
		return ReasonModelNotFound
	default:
		return ReasonRejected
	}
}
