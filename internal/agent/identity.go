package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hrmate/hrmate/internal/hrerr"
)

type userKey struct{}

// WithUser attaches the authenticated employee ID to the context. Tool
// handlers resolve the acting employee from here, never from model-
// supplied arguments, so an agent cannot be talked into acting as
// someone else.
func WithUser(ctx context.Context, employeeID string) context.Context {
	return context.WithValue(ctx, userKey{}, employeeID)
}

// UserFromContext returns the acting employee ID.
func UserFromContext(ctx context.Context) (string, error) {
	id, _ := ctx.Value(userKey{}).(string)
	if id == "" {
		return "", hrerr.Validationf("no employee identity on this request")
	}
	return id, nil
}

// DecodeArgs converts the generator's loose argument map into a typed
// input struct via a JSON round trip.
func DecodeArgs[T any](args map[string]any) (T, error) {
	var in T
	data, err := json.Marshal(args)
	if err != nil {
		return in, fmt.Errorf("encoding arguments: %w", err)
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return in, fmt.Errorf("arguments do not match the tool's schema: %w", err)
	}
	return in, nil
}
