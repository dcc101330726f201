// Package staging keeps draft review state between requests.
package staging

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// ErrInvalidScope is returned when a scope is missing its session or reference
var ErrInvalidScope = errors.New("staging scope requires a session id and a reference")

// Scope identifies the draft state of one user reviewing one representation
type Scope struct {
	SessionID string
	Reference string
}

func (s Scope) validate() error {
	if s.SessionID == "" || s.Reference == "" {
		return ErrInvalidScope
	}
	return nil
}

// key joins the escaped segments so no segment can contain the separator
func (s Scope) key(prefix, key string) string {
	return fmt.Sprintf("%s%s:%s:%s", prefix,
		url.QueryEscape(s.SessionID), url.QueryEscape(s.Reference), url.QueryEscape(key))
}

// Store reads and writes staged fields. Values are JSON encoded.
type Store interface {
	// Get decodes a field into dest and reports whether it was present.
	Get(ctx context.Context, scope Scope, key, field string, dest any) (bool, error)
	// Set writes the given fields under key, leaving other fields untouched.
	Set(ctx context.Context, scope Scope, key string, fields map[string]any) error
	// Clear removes the given fields, or the whole key when no field is named.
	Clear(ctx context.Context, scope Scope, key string, fields ...string) error
}
