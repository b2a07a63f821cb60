// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil provides helpers for interacting with values stored in [context.Context].
package ctxutil

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/taibuivan/shiftsphere/internal/platform/ctxkey"
	"github.com/taibuivan/shiftsphere/internal/platform/sec"
)

// # Request Tracing

// WithRequestID returns a new context with the provided request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if not found.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context carrying logger.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return logger.WithContext(ctx)
}

// GetLogger retrieves the logger from the context.
// If none is attached, zerolog's DefaultContextLogger (set at startup) is returned.
func GetLogger(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

// AnnotateLogger adds a string field to the request logger stored in ctx.
// Contexts without a request logger are left alone so the process-wide
// fallback is never mutated.
func AnnotateLogger(ctx context.Context, key, value string) {
	logger := zerolog.Ctx(ctx)
	if logger == zerolog.DefaultContextLogger || logger.GetLevel() == zerolog.Disabled {
		return
	}
	logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str(key, value)
	})
}

// # Identity & Access

// WithAuthClaims returns a new context with the verified token claims attached.
func WithAuthClaims(ctx context.Context, claims *sec.AuthClaims) context.Context {
	return context.WithValue(ctx, ctxkey.KeyClaims, claims)
}

// GetAuthClaims retrieves the [*sec.AuthClaims] from the [context.Context].
func GetAuthClaims(ctx context.Context) *sec.AuthClaims {
	claims, ok := ctx.Value(ctxkey.KeyClaims).(*sec.AuthClaims)
	if !ok {
		return nil
	}
	return claims
}

// WithSubject returns a new context with the loaded account attached.
func WithSubject(ctx context.Context, subject sec.Subject) context.Context {
	return context.WithValue(ctx, ctxkey.KeySubject, subject)
}

// GetSubject retrieves the [sec.Subject] attached by the access guard.
func GetSubject(ctx context.Context) sec.Subject {
	subject, ok := ctx.Value(ctxkey.KeySubject).(sec.Subject)
	if !ok {
		return nil
	}
	return subject
}
