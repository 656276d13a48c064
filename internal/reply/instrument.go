package reply

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type instrumented struct {
	next     Service
	tracer   trace.Tracer
	replies  metric.Int64Counter
	duration metric.Float64Histogram
}

// Instrument wraps svc with a span per Ask plus reply count and latency metrics.
func Instrument(svc Service, tracer trace.Tracer, meter metric.Meter) (Service, error) {
	replies, err := meter.Int64Counter("leo.replies",
		metric.WithDescription("Assistant replies by outcome"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("leo.reply.duration",
		metric.WithDescription("Time spent waiting for the assistant"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	return &instrumented{next: svc, tracer: tracer, replies: replies, duration: duration}, nil
}

func (i *instrumented) Ask(ctx context.Context, prompts []Prompt) (string, error) {
	ctx, span := i.tracer.Start(ctx, "reply.Ask", trace.WithAttributes(attribute.Int("reply.prompts", len(prompts))))
	defer span.End()

	start := time.Now()
	text, err := i.next.Ask(ctx, prompts)
	elapsed := time.Since(start).Seconds()

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case text == DegradedText:
		outcome = "degraded"
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	i.replies.Add(ctx, 1, attrs)
	i.duration.Record(ctx, elapsed, attrs)
	span.SetAttributes(attribute.String("reply.outcome", outcome))
	return text, err
}
