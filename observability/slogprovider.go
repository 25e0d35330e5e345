package observability

import (
	"context"
	"log/slog"
	"time"
)

// SlogProvider is a Provider implementation backed by the standard library
// log/slog package. Spans are logged as start/end pairs with their attributes
// and duration; span events and errors are forwarded as log records.
type SlogProvider struct {
	logger *slog.Logger
}

// Compile-time check that SlogProvider implements Provider.
var _ Provider = (*SlogProvider)(nil)

// NewSlogProvider creates a SlogProvider wrapping the given slog.Logger.
// If logger is nil, slog.Default() is used.
func NewSlogProvider(logger *slog.Logger) *SlogProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogProvider{logger: logger}
}

// StartSpan starts a new span, attaches it to the returned context, and logs
// a span start record at debug level.
func (provider *SlogProvider) StartSpan(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	span := &slogSpan{
		provider: provider,
		name:     name,
		start:    time.Now(),
		attrs:    attrs,
	}
	provider.logger.LogAttrs(ctx, slog.LevelDebug, "span start",
		append([]slog.Attr{slog.String("span", name)}, toSlogAttrs(attrs)...)...)
	return ContextWithSpan(ctx, span), span
}

func (provider *SlogProvider) Debug(ctx context.Context, msg string, attrs ...Attribute) {
	provider.logger.LogAttrs(ctx, slog.LevelDebug, msg, toSlogAttrs(attrs)...)
}

func (provider *SlogProvider) Info(ctx context.Context, msg string, attrs ...Attribute) {
	provider.logger.LogAttrs(ctx, slog.LevelInfo, msg, toSlogAttrs(attrs)...)
}

func (provider *SlogProvider) Warn(ctx context.Context, msg string, attrs ...Attribute) {
	provider.logger.LogAttrs(ctx, slog.LevelWarn, msg, toSlogAttrs(attrs)...)
}

func (provider *SlogProvider) Error(ctx context.Context, msg string, attrs ...Attribute) {
	provider.logger.LogAttrs(ctx, slog.LevelError, msg, toSlogAttrs(attrs)...)
}

// slogSpan is the Span implementation produced by SlogProvider.
type slogSpan struct {
	provider *SlogProvider
	name     string
	start    time.Time
	attrs    []Attribute
}

func (span *slogSpan) End() {
	span.provider.logger.LogAttrs(context.Background(), slog.LevelDebug, "span end",
		append([]slog.Attr{
			slog.String("span", span.name),
			slog.Duration("duration", time.Since(span.start)),
		}, toSlogAttrs(span.attrs)...)...)
}

func (span *slogSpan) SetAttributes(attrs ...Attribute) {
	span.attrs = append(span.attrs, attrs...)
}

func (span *slogSpan) RecordError(err error) {
	if err == nil {
		return
	}
	span.provider.logger.LogAttrs(context.Background(), slog.LevelError, "span error",
		slog.String("span", span.name),
		slog.String("error", err.Error()))
}

func (span *slogSpan) AddEvent(name string, attrs ...Attribute) {
	span.provider.logger.LogAttrs(context.Background(), slog.LevelDebug, name,
		append([]slog.Attr{slog.String("span", span.name)}, toSlogAttrs(attrs)...)...)
}

func toSlogAttrs(attrs []Attribute) []slog.Attr {
	slogAttrs := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		slogAttrs = append(slogAttrs, slog.Any(attr.Key, attr.Value))
	}
	return slogAttrs
}
