package metadata_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/x-research-team/dtx-domain/domain/metadata"
	"github.com/x-research-team/dtx-domain/domain/predicate"
)

// syncBuffer — потокобезопасный буфер для вывода логгера.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestMiddleware_Logging(t *testing.T) {
	t.Parallel()

	out := &syncBuffer{}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	registry := metadata.NewRegistry(metadata.WithLogger(logger))

	require.NoError(t, metadata.Register(registry, nameProcessor()))
	_, err := registry.Process(context.Background(), testOwner, testFunction, testParam, nameAnnotation{Name: "from"})
	require.NoError(t, err)
	_, err = registry.Process(context.Background(), testOwner, testFunction, testParam, nameAnnotation{})
	require.Error(t, err)

	logs := out.String()
	assert.Contains(t, logs, "регистрация процессора аннотации")
	assert.Contains(t, logs, "обработка аннотации")
	assert.Contains(t, logs, "ошибка обработки аннотации")
	assert.Contains(t, logs, "annotation_type=name")
	assert.Contains(t, logs, "parameter=lower#0")
}

func TestMiddleware_Tracing(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	registry := newTestRegistry(t, metadata.WithTracerProvider(tp))

	require.NoError(t, metadata.Register(registry, nameProcessor()))

	annotation := nameAnnotation{
		Name: "from",
		meta: map[string]string{"traceparent": "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"},
	}
	_, err := registry.Process(context.Background(), testOwner, testFunction, testParam, annotation)
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	byName := make(map[string]sdktrace.ReadOnlySpan, len(spans))
	for _, span := range spans {
		byName[span.Name()] = span
	}
	process, ok := byName["name process"]
	require.True(t, ok, "Должен быть создан спан обработки")
	handle, ok := byName["name handle"]
	require.True(t, ok, "Должен быть создан дочерний спан обработчика")

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", process.SpanContext().TraceID().String(),
		"Контекст трассировки должен извлекаться из метаданных аннотации")
	assert.Equal(t, process.SpanContext().SpanID(), handle.Parent().SpanID())
}

func TestMiddleware_TracingRecordsError(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	registry := newTestRegistry(t, metadata.WithTracerProvider(tp))

	_, err := registry.Process(context.Background(), testOwner, testFunction, testParam, nameAnnotation{Name: "x"})
	require.ErrorIs(t, err, metadata.ErrProcessorNotFound)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "name process", spans[0].Name())
	require.NotEmpty(t, spans[0].Events(), "Ошибка должна быть записана в спан")
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

func TestMiddleware_Metrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	registry := newTestRegistry(t, metadata.WithMeterProvider(mp))

	require.NoError(t, metadata.Register(registry, predicatesProcessor()))
	_, err := registry.Process(context.Background(), testOwner, testFunction, testParam, predicatesAnnotation{Types: predicate.EqualityTypes()})
	require.NoError(t, err)
	_, err = registry.Process(context.Background(), testOwner, testFunction, testParam, nameAnnotation{})
	require.Error(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	metrics := make(map[string]metricdata.Metrics)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			metrics[m.Name] = m
		}
	}

	counter, ok := metrics["metadata.process.count"]
	require.True(t, ok, "Счетчик обработок должен быть зарегистрирован")
	sum, ok := counter.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	var total int64
	statuses := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		total += dp.Value
		status, _ := dp.Attributes.Value("status")
		statuses[status.AsString()] += dp.Value
	}
	assert.Equal(t, int64(2), total)
	assert.Equal(t, int64(1), statuses["success"])
	assert.Equal(t, int64(1), statuses["error"])

	_, ok = metrics["metadata.process.duration"]
	assert.True(t, ok, "Гистограмма длительности должна быть зарегистрирована")
}

func TestMiddleware_Custom(t *testing.T) {
	t.Parallel()

	var order []string
	var mu sync.Mutex
	record := func(name string) metadata.Middleware {
		return metadata.MiddlewareFunc(func(next metadata.Provider) metadata.Provider {
			return &recordingProvider{Provider: next, name: name, record: func(s string) {
				mu.Lock()
				defer mu.Unlock()
				order = append(order, s)
			}}
		})
	}

	registry := newTestRegistry(t, metadata.WithMiddleware(record("first"), record("second")))
	require.NoError(t, metadata.Register(registry, predicatesProcessor()))

	_, err := registry.Process(context.Background(), testOwner, testFunction, testParam, predicatesAnnotation{})
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, order, "Middleware должны выполняться в порядке добавления")
}

// recordingProvider записывает имя при каждом вызове Process.
type recordingProvider struct {
	metadata.Provider
	name   string
	record func(string)
}

func (p *recordingProvider) Process(ctx context.Context, req metadata.Request) (metadata.Definition, error) {
	p.record(p.name)
	return p.Provider.Process(ctx, req)
}
