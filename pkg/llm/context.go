package llm

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

type contextKey string

const (
	llmContextKey contextKey = "llm_context"
)

// WithContext returns a context with request attribution attached.
// The context map is merged with any existing context.
func WithContext(ctx context.Context, values map[string]any) context.Context {
	existing := GetContext(ctx)
	if existing == nil {
		existing = make(map[string]any)
	}
	for k, v := range values {
		existing[k] = v
	}
	return context.WithValue(ctx, llmContextKey, existing)
}

// GetContext retrieves the attribution map from context, if present.
func GetContext(ctx context.Context) map[string]any {
	if c, ok := ctx.Value(llmContextKey).(map[string]any); ok {
		copy := make(map[string]any, len(c))
		for k, v := range c {
			copy[k] = v
		}
		return copy
	}
	return nil
}

// WithUnitContext tags calls made while generating one (platform, content type)
// unit of a project.
func WithUnitContext(ctx context.Context, projectID fmt.Stringer, platform, contentType string) context.Context {
	values := map[string]any{
		"project_id": projectID.String(),
	}
	if platform != "" {
		values["platform"] = platform
	}
	if contentType != "" {
		values["content_type"] = contentType
	}
	return WithContext(ctx, values)
}

// ContextFields renders the attribution map as sorted zap fields for log calls.
func ContextFields(ctx context.Context) []zap.Field {
	values := GetContext(ctx)
	if len(values) == 0 {
		return nil
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, zap.Any(k, values[k]))
	}
	return fields
}
