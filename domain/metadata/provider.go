package metadata

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Provider определяет контракт для сменных механизмов диспетчеризации аннотаций.
type Provider interface {
	// Process выбирает обработчик по типу аннотации и выполняет его.
	Process(ctx context.Context, req Request) (Definition, error)

	// Register связывает тип аннотации с обработчиком.
	Register(annotationType string, handler Handler) error

	// Shutdown корректно завершает работу провайдера.
	Shutdown(ctx context.Context) error
}

// localProvider — это локальная, внутрипроцессная реализация провайдера.
type localProvider struct {
	handlers map[string]Handler
	closed   bool
	mu       sync.RWMutex
}

// newLocalProvider создает новый экземпляр локального провайдера.
func newLocalProvider() *localProvider {
	return &localProvider{
		handlers: make(map[string]Handler),
	}
}

// Process находит и выполняет обработчик для типа аннотации запроса.
func (p *localProvider) Process(ctx context.Context, req Request) (Definition, error) {
	if isNilAnnotation(req.Annotation) {
		return nil, fmt.Errorf("параметр '%s' функции '%s': %w", req.Parameter, req.Function, ErrNilAnnotation)
	}
	annotationType := req.Annotation.AnnotationType()

	p.mu.RLock()
	closed := p.closed
	handler, ok := p.handlers[annotationType]
	p.mu.RUnlock()

	if closed {
		return nil, ErrClosed
	}
	if !ok {
		return nil, fmt.Errorf("обработчик для аннотации '%s': %w", annotationType, ErrProcessorNotFound)
	}

	return handler(ctx, req)
}

// Register регистрирует обработчик для типа аннотации.
func (p *localProvider) Register(annotationType string, handler Handler) error {
	if annotationType == "" {
		return ErrEmptyAnnotationType
	}
	if handler == nil {
		return ErrNilProcessor
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if _, exists := p.handlers[annotationType]; exists {
		return fmt.Errorf("обработчик для аннотации '%s': %w", annotationType, ErrAlreadyRegistered)
	}

	p.handlers[annotationType] = handler
	return nil
}

// AnnotationTypes возвращает отсортированный список зарегистрированных типов аннотаций.
func (p *localProvider) AnnotationTypes() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	types := make([]string, 0, len(p.handlers))
	for annotationType := range p.handlers {
		types = append(types, annotationType)
	}
	sort.Strings(types)
	return types
}

// Shutdown закрывает провайдер для новых регистраций и вызовов.
func (p *localProvider) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	return nil
}
