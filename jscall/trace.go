package jscall

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/caffeineduck/hostcall/jscall"

func startSpan(ctx context.Context, name, expected, owner string) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("hostcall.expected_type", expected),
			attribute.String("hostcall.callback", owner),
		),
	)
}

func endSpan(span trace.Span, shape Shape, err error) {
	if shape != shapeInvalid {
		span.SetAttributes(attribute.String("hostcall.result_shape", shape.String()))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
