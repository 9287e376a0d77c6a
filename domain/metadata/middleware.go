package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/goccy/go-reflect"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName    = "github.com/x-research-team/dtx-domain/domain/metadata"
	instrumentationVersion = "0.1.0"
	metricKeyPrefix        = "metadata."
)

// Middleware определяет интерфейс для middleware реестра процессоров.
type Middleware interface {
	Wrap(next Provider) Provider
}

// MiddlewareFunc является адаптером, позволяющим использовать обычные функции как middleware.
type MiddlewareFunc func(next Provider) Provider

// Wrap реализует интерфейс Middleware.
func (f MiddlewareFunc) Wrap(next Provider) Provider {
	return f(next)
}

// loggingMiddleware реализует Middleware для логирования обработки аннотаций.
type loggingMiddleware struct {
	logger *slog.Logger
}

// NewLoggingMiddleware создает новое middleware для логирования.
func NewLoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		return &noopMiddleware{}
	}
	return &loggingMiddleware{
		logger: logger,
	}
}

// Wrap оборачивает провайдер для добавления логирования.
func (m *loggingMiddleware) Wrap(next Provider) Provider {
	return &loggingProvider{
		next:   next,
		logger: m.logger,
	}
}

// loggingProvider - это обертка над провайдером, которая добавляет логирование.
type loggingProvider struct {
	next   Provider
	logger *slog.Logger
}

// Process логирует и выполняет обработку аннотации.
func (p *loggingProvider) Process(ctx context.Context, req Request) (def Definition, err error) {
	annotationType := getAnnotationType(req.Annotation)
	p.logger.Debug("обработка аннотации",
		slog.String("annotation_type", annotationType),
		slog.String("function", req.Function.String()),
		slog.String("parameter", req.Parameter.String()),
	)

	startTime := time.Now()
	defer func() {
		if err != nil {
			p.logger.Error("ошибка обработки аннотации",
				slog.String("annotation_type", annotationType),
				slog.String("function", req.Function.String()),
				slog.String("parameter", req.Parameter.String()),
				slog.Any("error", err),
				slog.Duration("duration", time.Since(startTime)),
			)
		}
	}()

	return p.next.Process(ctx, req)
}

// Register логирует и регистрирует обработчик.
func (p *loggingProvider) Register(annotationType string, handler Handler) (err error) {
	handlerName := getHandlerName(handler)
	p.logger.Info("регистрация процессора аннотации",
		slog.String("annotation_type", annotationType),
		slog.String("handler_name", handlerName),
	)
	defer func() {
		if err != nil {
			p.logger.Error("ошибка регистрации процессора",
				slog.String("annotation_type", annotationType),
				slog.String("handler_name", handlerName),
				slog.Any("error", err),
			)
		}
	}()
	return p.next.Register(annotationType, handler)
}

// Shutdown делегирует вызов следующему провайдеру в цепочке.
func (p *loggingProvider) Shutdown(ctx context.Context) error {
	p.logger.Info("завершение работы реестра процессоров")
	return p.next.Shutdown(ctx)
}

// metricsMiddleware реализует Middleware для сбора метрик OpenTelemetry.
type metricsMiddleware struct {
	processCounter      metric.Int64Counter
	processDurationHist metric.Float64Histogram
}

// NewMetricsMiddleware создает новое middleware для сбора метрик.
func NewMetricsMiddleware(provider metric.MeterProvider) Middleware {
	if provider == nil {
		return &noopMiddleware{}
	}

	meter := provider.Meter(instrumentationName)

	processCounter, err := meter.Int64Counter(
		metricKeyPrefix+"process.count",
		metric.WithDescription("Количество обработанных аннотаций"),
		metric.WithUnit("{annotations}"),
	)
	if err != nil {
		panic(fmt.Sprintf("не удалось создать счетчик process.count: %v", err))
	}

	processDurationHist, err := meter.Float64Histogram(
		metricKeyPrefix+"process.duration",
		metric.WithDescription("Длительность обработки аннотации"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic(fmt.Sprintf("не удалось создать гистограмму process.duration: %v", err))
	}

	return &metricsMiddleware{
		processCounter:      processCounter,
		processDurationHist: processDurationHist,
	}
}

// Wrap оборачивает провайдер для добавления сбора метрик.
func (m *metricsMiddleware) Wrap(next Provider) Provider {
	return &metricsProvider{
		next:                next,
		processCounter:      m.processCounter,
		processDurationHist: m.processDurationHist,
	}
}

// metricsProvider - это обертка над провайдером, которая собирает метрики.
type metricsProvider struct {
	next                Provider
	processCounter      metric.Int64Counter
	processDurationHist metric.Float64Histogram
}

// Process собирает метрики и выполняет обработку аннотации.
func (p *metricsProvider) Process(ctx context.Context, req Request) (Definition, error) {
	startTime := time.Now()
	def, err := p.next.Process(ctx, req)
	duration := float64(time.Since(startTime).Microseconds()) / 1000

	status := "success"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("annotation.type", getAnnotationType(req.Annotation)),
		attribute.String("status", status),
	)

	p.processCounter.Add(ctx, 1, attrs)
	p.processDurationHist.Record(ctx, duration, attrs)

	return def, err
}

// Register делегирует вызов.
func (p *metricsProvider) Register(annotationType string, handler Handler) error {
	return p.next.Register(annotationType, handler)
}

// Shutdown делегирует вызов.
func (p *metricsProvider) Shutdown(ctx context.Context) error {
	return p.next.Shutdown(ctx)
}

// tracingMiddleware реализует Middleware для распределенной трассировки OpenTelemetry.
type tracingMiddleware struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// NewTracingMiddleware создает новое middleware для трассировки.
func NewTracingMiddleware(tp trace.TracerProvider, p propagation.TextMapPropagator) Middleware {
	if tp == nil {
		return &noopMiddleware{}
	}

	if p == nil {
		p = propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
	}

	return &tracingMiddleware{
		tracer: tp.Tracer(
			instrumentationName,
			trace.WithInstrumentationVersion(instrumentationVersion),
		),
		propagator: p,
	}
}

// Wrap оборачивает провайдер для добавления логики трассировки.
func (m *tracingMiddleware) Wrap(next Provider) Provider {
	return &tracingProvider{
		next:       next,
		tracer:     m.tracer,
		propagator: m.propagator,
	}
}

// tracingProvider - это обертка над провайдером, которая управляет спанами трассировки.
type tracingProvider struct {
	next       Provider
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// Process создает спан обработки, извлекая родительский контекст из метаданных аннотации.
func (p *tracingProvider) Process(ctx context.Context, req Request) (def Definition, err error) {
	if md, ok := req.Annotation.(Metadatable); ok {
		ctx = p.propagator.Extract(ctx, propagation.MapCarrier(md.Metadata()))
	}

	annotationType := getAnnotationType(req.Annotation)
	ctx, span := p.tracer.Start(ctx, fmt.Sprintf("%s process", annotationType),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("metadata.annotation.type", annotationType),
			attribute.String("metadata.function", req.Function.String()),
			attribute.String("metadata.parameter", req.Parameter.Name),
			attribute.Int("metadata.parameter.index", req.Parameter.Index),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	return p.next.Process(ctx, req)
}

// Register оборачивает обработчик, чтобы его выполнение попадало в дочерний спан.
func (p *tracingProvider) Register(annotationType string, handler Handler) error {
	if handler == nil {
		return p.next.Register(annotationType, handler)
	}
	wrappedHandler := func(ctx context.Context, req Request) (Definition, error) {
		ctx, span := p.tracer.Start(ctx, fmt.Sprintf("%s handle", annotationType),
			trace.WithSpanKind(trace.SpanKindInternal))
		defer span.End()

		return handler(ctx, req)
	}
	return p.next.Register(annotationType, wrappedHandler)
}

// Shutdown делегирует вызов.
func (p *tracingProvider) Shutdown(ctx context.Context) error {
	return p.next.Shutdown(ctx)
}

// applyMiddlewares применяет цепочку middleware к базовому провайдеру.
func applyMiddlewares(provider Provider, middlewares ...Middleware) Provider {
	p := provider
	for i := len(middlewares) - 1; i >= 0; i-- {
		p = middlewares[i].Wrap(p)
	}
	return p
}

// noopMiddleware представляет собой пустое middleware.
type noopMiddleware struct{}

// Wrap просто возвращает следующий провайдер без изменений.
func (m *noopMiddleware) Wrap(next Provider) Provider {
	return next
}

// getAnnotationType возвращает дискриминатор аннотации или "unknown".
func getAnnotationType(annotation Annotation) string {
	if isNilAnnotation(annotation) {
		return "unknown"
	}
	return annotation.AnnotationType()
}

// getHandlerName извлекает имя обработчика.
func getHandlerName(handler any) string {
	v := reflect.ValueOf(handler)
	if v.Kind() == reflect.Func {
		if pc := v.Pointer(); pc != 0 {
			if f := runtime.FuncForPC(pc); f != nil {
				return f.Name()
			}
		}
	}
	return reflect.TypeOf(handler).String()
}
