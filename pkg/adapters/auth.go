// Copyright (c) 2025 The centralised-logging Authors
//
// This file is part of centralised-logging.
//
// centralised-logging is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact the centralised-logging maintainers for commercial licensing options.

package adapters

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized is returned when authentication fails.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCredentials is returned when credentials are invalid.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrMissingCredentials is returned when required credentials are missing.
	ErrMissingCredentials = errors.New("missing credentials")
)

// Principal represents an authenticated caller of the event intake endpoint.
type Principal struct {
	// ID is the unique identifier for this principal.
	ID string

	// Type indicates the principal type (e.g., "service", "anonymous").
	Type string
}

// Authenticator authenticates inbound HTTP requests.
type Authenticator interface {
	// AuthenticateHTTP authenticates an HTTP request and returns the authenticated principal.
	// Returns ErrMissingCredentials or ErrInvalidCredentials if authentication fails.
	AuthenticateHTTP(ctx context.Context, req *http.Request) (*Principal, error)
}

// NoOpAuthenticator is an authenticator that allows all requests.
// Used when authentication is handled in front of the service.
type NoOpAuthenticator struct{}

// NewNoOpAuthenticator creates a new no-op authenticator.
func NewNoOpAuthenticator() *NoOpAuthenticator {
	return &NoOpAuthenticator{}
}

// AuthenticateHTTP allows all HTTP requests.
func (a *NoOpAuthenticator) AuthenticateHTTP(ctx context.Context, req *http.Request) (*Principal, error) {
	return &Principal{ID: "anonymous", Type: "anonymous"}, nil
}

// BearerTokenAuthenticator validates the Authorization header.
type BearerTokenAuthenticator struct {
	// ValidateToken validates a token and returns a principal.
	ValidateToken func(ctx context.Context, token string) (*Principal, error)
}

// NewBearerTokenAuthenticator creates a new bearer token authenticator.
func NewBearerTokenAuthenticator(validateFunc func(ctx context.Context, token string) (*Principal, error)) *BearerTokenAuthenticator {
	return &BearerTokenAuthenticator{ValidateToken: validateFunc}
}

// NewStaticTokenAuthenticator accepts exactly one shared token.
func NewStaticTokenAuthenticator(expected string) *BearerTokenAuthenticator {
	return NewBearerTokenAuthenticator(func(_ context.Context, token string) (*Principal, error) {
		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			return nil, ErrInvalidCredentials
		}
		return &Principal{ID: "static-token", Type: "service"}, nil
	})
}

// AuthenticateHTTP authenticates using the Authorization header.
func (a *BearerTokenAuthenticator) AuthenticateHTTP(ctx context.Context, req *http.Request) (*Principal, error) {
	token := req.Header.Get("Authorization")
	if token == "" {
		return nil, ErrMissingCredentials
	}

	token = strings.TrimPrefix(token, "Bearer ")
	if token == "" {
		return nil, ErrMissingCredentials
	}

	return a.ValidateToken(ctx, token)
}
