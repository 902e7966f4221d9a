// Package capability holds what every capability adapter shares: the error taxonomy the
// pipeline branches on, HTTP failure classification and the retry policy for transient
// upstream failures.
package capability

import (
	"errors"
	"fmt"
	"strings"
)

// Failure kinds. Adapters wrap every vendor failure so that errors.Is matches one of these.
var (
	ErrGenerationFailed = errors.New("script generation failed")
	ErrSynthesisFailed  = errors.New("voice synthesis failed")
	ErrSearchFailed     = errors.New("image search failed")
	ErrDownloadFailed   = errors.New("image download failed")
	ErrAssemblyFailed   = errors.New("media assembly failed")
	ErrNotConfigured    = errors.New("capability not configured")
)

// Reason narrows a ProviderError so callers can surface auth or quota problems distinctly.
type Reason string

const (
	ReasonAuth            Reason = "auth"
	ReasonRateLimit       Reason = "rate_limit"
	ReasonQuota           Reason = "quota"
	ReasonTimeout         Reason = "timeout"
	ReasonCanceled        Reason = "canceled"
	ReasonUnavailable     Reason = "unavailable"
	ReasonInvalidResponse Reason = "invalid_response"
	ReasonUpstream        Reason = "upstream"
)

// ProviderError is a vendor failure translated into a capability failure kind.
type ProviderError struct {
	Kind       error
	Provider   string
	Reason     Reason
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %v (%s", e.Provider, e.Kind, e.Reason)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ", status %d", e.StatusCode)
	}
	b.WriteString(")")
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ProviderError) Is(target error) bool {
	return target == e.Kind
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError builds a ProviderError without an HTTP status.
func NewProviderError(kind error, provider string, reason Reason, message string, err error) *ProviderError {
	return &ProviderError{Kind: kind, Provider: provider, Reason: reason, Message: message, Err: err}
}

// ReasonOf returns the sub-reason of the first ProviderError in err's chain, or "" if none.
func ReasonOf(err error) Reason {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Reason
	}
	return ""
}

// IsTransient reports whether retrying the same call may succeed.
func IsTransient(err error) bool {
	switch ReasonOf(err) {
	case ReasonRateLimit, ReasonTimeout, ReasonUnavailable:
		return true
	}
	return false
}

// CommandLog records one external command invocation.
type CommandLog struct {
	Command string `json:"command"`
	Output  string `json:"output,omitempty"`
}

// AssemblyError is a media assembly failure carrying the assembly stage and the command log.
type AssemblyError struct {
	Stage   string
	Message string
	Command CommandLog
	Err     error
}

func (e *AssemblyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

func (e *AssemblyError) Is(target error) bool {
	return target == ErrAssemblyFailed
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}
