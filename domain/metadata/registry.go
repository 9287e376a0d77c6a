package metadata

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/goccy/go-reflect"
)

// Registry - это потокобезопасный реестр процессоров параметров.
// Каждому типу аннотации соответствует ровно один процессор.
type Registry struct {
	local    *localProvider
	provider Provider
	cfg      *config
}

// NewRegistry создает новый экземпляр реестра процессоров.
func NewRegistry(opts ...Option) *Registry {
	cfg := &config{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	local := newLocalProvider()

	// Сохранение выполняется ближе всего к обработчику, чтобы его ошибки
	// попадали в логи, метрики и спаны.
	allMiddlewares := []Middleware{
		NewLoggingMiddleware(cfg.logger),
		NewMetricsMiddleware(cfg.meterProvider),
		NewTracingMiddleware(cfg.tracerProvider, cfg.propagator),
	}
	allMiddlewares = append(allMiddlewares, cfg.middlewares...)
	allMiddlewares = append(allMiddlewares, NewStoreMiddleware(cfg.store))

	return &Registry{
		local:    local,
		provider: applyMiddlewares(local, allMiddlewares...),
		cfg:      cfg,
	}
}

// Register регистрирует процессор под типом аннотации, который он объявляет.
// ProcessingAnnotation вызывается один раз, дальнейшая диспетчеризация
// использует сохраненное значение.
func Register[A Annotation](r *Registry, processor ParameterProcessor[A]) error {
	if processor == nil {
		return ErrNilProcessor
	}
	if v := reflect.ValueOf(processor); v.Kind() == reflect.Ptr && v.IsNil() {
		return ErrNilProcessor
	}
	if n, ok := processor.(interface{ isNil() bool }); ok && n.isNil() {
		return ErrNilProcessor
	}

	annotationType := processor.ProcessingAnnotation()
	if annotationType == "" {
		return fmt.Errorf("процессор %T: %w", processor, ErrEmptyAnnotationType)
	}

	return r.provider.Register(annotationType, adaptProcessor(annotationType, processor))
}

// adaptProcessor стирает тип аннотации процессора, проверяя его при каждом вызове.
func adaptProcessor[A Annotation](annotationType string, processor ParameterProcessor[A]) Handler {
	return func(ctx context.Context, req Request) (Definition, error) {
		annotation, ok := req.Annotation.(A)
		if !ok {
			var want A
			return nil, fmt.Errorf("аннотация '%s' имеет тип %s, процессор ожидает %s: %w",
				annotationType, reflect.TypeOf(req.Annotation), reflect.TypeOf(&want).Elem(), ErrAnnotationMismatch)
		}

		def, err := processor.Process(ctx, req.Owner, req.Function, req.Parameter, annotation)
		if err != nil {
			return nil, fmt.Errorf("обработка аннотации '%s' параметра '%s' функции '%s': %w",
				annotationType, req.Parameter, req.Function, err)
		}
		return def, nil
	}
}

// Process находит процессор по типу аннотации и создает определение метаданных.
func (r *Registry) Process(ctx context.Context, owner Owner, fn Function, param Parameter, annotation Annotation) (Definition, error) {
	if isNilAnnotation(annotation) {
		return nil, fmt.Errorf("параметр '%s' функции '%s': %w", param, fn, ErrNilAnnotation)
	}
	return r.provider.Process(ctx, Request{
		Owner:      owner,
		Function:   fn,
		Parameter:  param,
		Annotation: annotation,
	})
}

// ProcessFunction обрабатывает все аннотации всех параметров функции по порядку.
// Обработка прекращается на первой ошибке.
func (r *Registry) ProcessFunction(ctx context.Context, owner Owner, fn Function, params []AnnotatedParameter) ([]Result, error) {
	results := make([]Result, 0, len(params))
	for _, param := range params {
		for _, annotation := range param.Annotations {
			if err := ctx.Err(); err != nil {
				return results, err
			}

			def, err := r.Process(ctx, owner, fn, param.Parameter, annotation)
			if err != nil {
				return results, err
			}
			results = append(results, Result{
				Parameter:      param.Parameter,
				AnnotationType: annotation.AnnotationType(),
				Definition:     def,
			})
		}
	}
	return results, nil
}

// Handles сообщает, зарегистрирован ли процессор для типа аннотации.
func (r *Registry) Handles(annotationType string) bool {
	r.local.mu.RLock()
	defer r.local.mu.RUnlock()

	_, ok := r.local.handlers[annotationType]
	return ok
}

// AnnotationTypes возвращает отсортированный список обрабатываемых типов аннотаций.
func (r *Registry) AnnotationTypes() []string {
	return r.local.AnnotationTypes()
}

// Shutdown корректно завершает работу реестра.
func (r *Registry) Shutdown(ctx context.Context) error {
	return r.provider.Shutdown(ctx)
}

// isNilAnnotation сообщает, что аннотация не задана, в том числе как nil-указатель.
func isNilAnnotation(annotation Annotation) bool {
	if annotation == nil {
		return true
	}
	v := reflect.ValueOf(annotation)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
