package otelhelper_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hirezen/stageflow/pkg/otelhelper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpanAndSetError(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := provider.Tracer("test")

	_, span := otelhelper.StartSpan(context.Background(), tracer, "transition.execute",
		attribute.String(otelhelper.CandidateIDKey, "cand-1"),
	)
	otelhelper.SetStatus(span, "error")
	otelhelper.SetError(span, errors.New("boom"), attribute.String(otelhelper.RuleIDKey, "rule-1"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "transition.execute", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String(otelhelper.CandidateIDKey, "cand-1"))
	assert.Contains(t, spans[0].Attributes(), attribute.String(otelhelper.TransitionStatusKey, "error"))
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

func TestNoopTracer(t *testing.T) {
	t.Parallel()

	_, span := otelhelper.StartSpan(context.Background(), otelhelper.NoopTracer(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
}
