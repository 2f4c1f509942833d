package logging

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// googleCloudTracingLogHandler decorates log records with the Google Cloud
// Logging trace correlation fields.
// https://docs.cloud.google.com/logging/docs/agent/logging/configuration#special-fields
type googleCloudTracingLogHandler struct {
	inner   slog.Handler
	project string
}

var _ slog.Handler = (*googleCloudTracingLogHandler)(nil)

// NewGoogleCloudTracingLogHandler wraps inner so logs written with the
// *Context slog methods get associated with the active trace and span.
func NewGoogleCloudTracingLogHandler(inner slog.Handler, project string) *googleCloudTracingLogHandler {
	return &googleCloudTracingLogHandler{inner: inner, project: project}
}

func (h *googleCloudTracingLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *googleCloudTracingLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if spanContext := trace.SpanContextFromContext(ctx); spanContext.IsValid() {
		r.AddAttrs(
			slog.String("logging.googleapis.com/trace", fmt.Sprintf("projects/%s/traces/%s", h.project, spanContext.TraceID().String())),
			slog.String("logging.googleapis.com/spanId", spanContext.SpanID().String()),
			slog.Bool("logging.googleapis.com/trace_sampled", spanContext.TraceFlags().IsSampled()),
		)
	}
	return h.inner.Handle(ctx, r)
}

func (h *googleCloudTracingLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewGoogleCloudTracingLogHandler(h.inner.WithAttrs(attrs), h.project)
}

func (h *googleCloudTracingLogHandler) WithGroup(name string) slog.Handler {
	return NewGoogleCloudTracingLogHandler(h.inner.WithGroup(name), h.project)
}
