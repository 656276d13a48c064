package history

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/comigor/leo-go/internal/chat"
)

type instrumented struct {
	next   Store
	tracer trace.Tracer
}

// Instrument wraps store so every call produces a span. A missing
// transcript is not recorded as a span error.
func Instrument(store Store, tracer trace.Tracer) Store {
	return &instrumented{next: store, tracer: tracer}
}

func (i *instrumented) Load(ctx context.Context, userID string) ([]chat.Turn, error) {
	ctx, span := i.tracer.Start(ctx, "history.Load", trace.WithAttributes(attribute.String("history.key", Key(userID))))
	defer span.End()

	turns, err := i.next.Load(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		span.SetAttributes(attribute.Bool("history.found", false))
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	default:
		span.SetAttributes(attribute.Bool("history.found", true), attribute.Int("history.turns", len(turns)))
	}
	return turns, err
}

func (i *instrumented) Save(ctx context.Context, userID string, turns []chat.Turn) error {
	ctx, span := i.tracer.Start(ctx, "history.Save", trace.WithAttributes(
		attribute.String("history.key", Key(userID)),
		attribute.Int("history.turns", len(turns)),
	))
	defer span.End()

	err := i.next.Save(ctx, userID, turns)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
