package shared

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// ContextKey is a custom type for context keys to prevent collisions
type ContextKey string

// Context keys used by the API layer
const (
	// TraceIDKey is the context key for the request trace ID
	TraceIDKey ContextKey = "trace_id"
)

// SetTraceID adds a trace ID to the context
func SetTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from the context.
// Returns an empty string if no trace ID is present.
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// GenerateTraceID creates a new random trace ID for request correlation.
func GenerateTraceID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// Degrade to a timestamp-based ID rather than failing the request.
		return fmt.Sprintf("trace-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
