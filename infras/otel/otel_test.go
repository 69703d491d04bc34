package otel_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"meetroom/infras/otel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func record(t *testing.T, fn func(scope otel.Scope)) sdktrace.ReadOnlySpan {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := provider.Tracer("test").Start(context.Background(), "booking.Create")
	scope := otel.NewScope(span)

	fn(scope)
	scope.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	return spans[0]
}

func TestTraceIfErrorSeesLateAssignment(t *testing.T) {
	create := func(scope otel.Scope) (err error) {
		defer scope.TraceIfError(&err)

		err = errors.New("room is already booked")

		return err
	}

	span := record(t, func(scope otel.Scope) { _ = create(scope) })

	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Equal(t, "room is already booked", span.Status().Description)
}

func TestTraceIfErrorNil(t *testing.T) {
	span := record(t, func(scope otel.Scope) {
		var err error
		scope.TraceIfError(&err)
		scope.TraceIfError(nil)
	})

	assert.Equal(t, codes.Unset, span.Status().Code)
}

func TestSetAttributes(t *testing.T) {
	span := record(t, func(scope otel.Scope) {
		scope.SetAttributes(map[string]any{
			"room_id":  "room-1",
			"slots":    9,
			"approved": true,
			"elapsed":  1500 * time.Millisecond,
		})
	})

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}

	assert.Equal(t, "room-1", attrs["room_id"].AsString())
	assert.Equal(t, int64(9), attrs["slots"].AsInt64())
	assert.True(t, attrs["approved"].AsBool())
	assert.Equal(t, int64(1500), attrs["elapsed"].AsInt64())
}
