// Package tracer provides a lightweight tracing abstraction for the
// registration workflow.
//
// The workflow service emits spans through this interface rather than
// depending on OpenTelemetry directly. Production wires the OTel adapter;
// tests use the no-op tracer.
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span, recording any error that occurred.
	// End must be called exactly once, typically via defer.
	End(err error)

	// SetAttributes adds key-value pairs to the span.
	SetAttributes(attrs ...Attribute)

	// AddEvent records a timestamped event within the span.
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int64 creates an int64 attribute.
func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names used by the registration workflow.
const (
	SpanSubmit = "registration.submit"
	SpanDecide = "registration.decide"
	SpanDelete = "registration.delete"
	SpanList   = "registration.list"
)

// Attribute keys used by the registration workflow.
const (
	AttrRegistrationID = "registration_id"
	AttrRole           = "role"
	AttrCompany        = "company"
	AttrDecision       = "decision"
	AttrApprover       = "approver_id"
)

// Event names used by the registration workflow.
const (
	EventTenantCreated = "tenant.created"
	EventUserCreated   = "user.created"
	EventEmailQueued   = "email.queued"
)
