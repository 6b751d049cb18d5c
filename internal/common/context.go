package common

import (
	"context"
	"time"
)

// Context keys for storing values in context
type contextKey string

const ContextKeySubmissionID contextKey = "submission_id"

// WithSubmissionID adds a submission ID to the context
func WithSubmissionID(ctx context.Context, submissionID string) context.Context {
	return context.WithValue(ctx, ContextKeySubmissionID, submissionID)
}

// SubmissionIDFromContext extracts the submission ID from context
func SubmissionIDFromContext(ctx context.Context) string {
	if submissionID, ok := ctx.Value(ContextKeySubmissionID).(string); ok {
		return submissionID
	}
	return ""
}

// WithTimeout creates a context with the specified timeout
func WithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}
