// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs an error with structured context if it's an oops error.
// For oops errors, it extracts and logs the message, code and context.
// For standard errors, it logs the error string.
func LogError(logger *slog.Logger, msg string, err error) {
	LogErrorContext(context.Background(), logger, msg, err)
}

// LogErrorContext is LogError with a context, so handlers that read
// request-scoped values (trace and request IDs) can enrich the record.
func LogErrorContext(ctx context.Context, logger *slog.Logger, msg string, err error) {
	if oopsErr, ok := oops.AsOops(err); ok {
		attrs := []any{
			"error", oopsErr.Error(),
		}
		if code := oopsErr.Code(); code != nil && code != "" {
			attrs = append(attrs, "code", code)
		}
		if fields := oopsErr.Context(); len(fields) > 0 {
			attrs = append(attrs, "context", fields)
		}
		logger.ErrorContext(ctx, msg, attrs...)
	} else {
		logger.ErrorContext(ctx, msg, "error", err)
	}
}

// Code returns the oops error code of err, or "" for errors without one.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}

// HasCode reports whether err carries the given oops error code.
func HasCode(err error, code string) bool {
	return err != nil && Code(err) == code
}
