package models

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies why a publish (or a store write) failed.
type ErrorKind string

const (
	// KindValidation means the content violates a platform constraint or the
	// caller supplied bad input. Never retried.
	KindValidation ErrorKind = "validation"
	// KindAuth means the credentials are invalid or expired. Never retried.
	KindAuth ErrorKind = "auth"
	// KindTransient covers network failures, timeouts, rate limits and 5xx
	// responses. Retried with a bounded policy.
	KindTransient ErrorKind = "transient"
	// KindPlatform is a business rule rejection by the remote platform.
	// Never retried.
	KindPlatform ErrorKind = "platform"
)

var (
	ErrPostNotFound      = errors.New("post not found")
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNotReady is wrapped in a transient error while a two-phase
	// platform is still processing uploaded media.
	ErrNotReady = errors.New("media container is not ready")
)

// PublishError is the error type returned by platform clients and by input
// validation. Callers branch on Kind, never on the message.
type PublishError struct {
	Kind     ErrorKind
	Platform string
	Message  string
	Err      error
}

func (e *PublishError) Error() string {
	prefix := string(e.Kind)
	if e.Platform != "" {
		prefix = e.Platform + ": " + prefix
	}
	if e.Err != nil {
		if e.Message == "" {
			return fmt.Sprintf("%s: %v", prefix, e.Err)
		}
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

func NewValidationError(platform, format string, args ...any) *PublishError {
	return &PublishError{Kind: KindValidation, Platform: platform, Message: fmt.Sprintf(format, args...)}
}

func NewAuthError(platform, message string, err error) *PublishError {
	return &PublishError{Kind: KindAuth, Platform: platform, Message: message, Err: err}
}

func NewTransientError(platform, message string, err error) *PublishError {
	return &PublishError{Kind: KindTransient, Platform: platform, Message: message, Err: err}
}

func NewPlatformError(platform, message string, err error) *PublishError {
	return &PublishError{Kind: KindPlatform, Platform: platform, Message: message, Err: err}
}

// KindOf returns the kind of err. Errors that did not come through a
// PublishError are classified by shape: deadlines and network errors are
// transient, everything else is treated as a platform rejection.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}
	return KindPlatform
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsAuth(err error) bool       { return KindOf(err) == KindAuth }
func IsTransient(err error) bool  { return KindOf(err) == KindTransient }
func IsPlatform(err error) bool   { return KindOf(err) == KindPlatform }
