package log

import "context"

type loggerCtxKey struct{}

// ToContext stores logger in ctx.
func ToContext(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext returns the logger stored in ctx, or nil.
func FromContext(ctx context.Context) Logger {
	logger, ok := ctx.Value(loggerCtxKey{}).(Logger)
	if !ok {
		return nil
	}
	return logger
}

// FromContextOr returns the logger stored in ctx, falling back to fallback.
func FromContextOr(ctx context.Context, fallback Logger) Logger {
	if logger := FromContext(ctx); logger != nil {
		return logger
	}
	if fallback != nil {
		return fallback
	}
	return Noop()
}
