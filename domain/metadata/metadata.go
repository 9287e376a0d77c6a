// Package metadata определяет точку расширения, через которую аннотированные
// параметры доменных функций превращаются в определения метаданных.
//
// Процессор параметров ключуется типом аннотации — строковым дискриминатором.
// Процессоры явно регистрируются в реестре, а реестр выбирает процессор по типу
// аннотации, найденной на параметре.
package metadata

import (
	"context"
	"fmt"
)

// Annotation определяет минимальный контракт аннотации параметра.
type Annotation interface {
	// AnnotationType возвращает дискриминатор, по которому выбирается процессор.
	AnnotationType() string
}

// Definition — непрозрачное значение метаданных, созданное процессором.
type Definition any

// Owner описывает тип, объявляющий функцию.
type Owner struct {
	Name    string
	PkgPath string
}

// String возвращает полное имя типа.
func (o Owner) String() string {
	if o.PkgPath == "" {
		return o.Name
	}
	return o.PkgPath + "." + o.Name
}

// Function описывает функцию или метод, которому принадлежит параметр.
type Function struct {
	Name  string
	Owner Owner
}

// String возвращает квалифицированное имя функции.
func (f Function) String() string {
	if f.Owner.Name == "" {
		return f.Name
	}
	return f.Owner.String() + "." + f.Name
}

// Parameter описывает параметр функции.
type Parameter struct {
	Name  string
	Index int
	// Type — строковое представление типа параметра.
	Type string
}

// String возвращает имя параметра с позицией.
func (p Parameter) String() string {
	return fmt.Sprintf("%s#%d", p.Name, p.Index)
}

// Request объединяет все данные, которые получает процессор.
type Request struct {
	Owner      Owner
	Function   Function
	Parameter  Parameter
	Annotation Annotation
}

// Handler — обработчик запроса со стертым типом аннотации.
type Handler func(ctx context.Context, req Request) (Definition, error)

// ParameterProcessor определяет процессор аннотаций типа A.
type ParameterProcessor[A Annotation] interface {
	// ProcessingAnnotation возвращает тип аннотации, который обрабатывает процессор.
	// Значение должно быть постоянным для экземпляра.
	ProcessingAnnotation() string

	// Process создает определение метаданных для параметра param функции fn,
	// объявленной в owner и помеченного аннотацией annotation.
	Process(ctx context.Context, owner Owner, fn Function, param Parameter, annotation A) (Definition, error)
}

// ProcessFunc — функция, реализующая обработку аннотации типа A.
type ProcessFunc[A Annotation] func(ctx context.Context, owner Owner, fn Function, param Parameter, annotation A) (Definition, error)

// processorFunc адаптирует ProcessFunc к интерфейсу ParameterProcessor.
type processorFunc[A Annotation] struct {
	annotationType string
	fn             ProcessFunc[A]
}

// NewProcessor создает процессор из обычной функции.
func NewProcessor[A Annotation](annotationType string, fn ProcessFunc[A]) ParameterProcessor[A] {
	return &processorFunc[A]{
		annotationType: annotationType,
		fn:             fn,
	}
}

// ProcessingAnnotation возвращает тип аннотации, заданный при создании.
func (p *processorFunc[A]) ProcessingAnnotation() string {
	return p.annotationType
}

// isNil сообщает, что процессор создан без функции обработки.
func (p *processorFunc[A]) isNil() bool {
	return p.fn == nil
}

// Process вызывает обернутую функцию.
func (p *processorFunc[A]) Process(ctx context.Context, owner Owner, fn Function, param Parameter, annotation A) (Definition, error) {
	return p.fn(ctx, owner, fn, param, annotation)
}

// AnnotatedParameter — параметр вместе с найденными на нем аннотациями.
type AnnotatedParameter struct {
	Parameter   Parameter
	Annotations []Annotation
}

// Result — определение, созданное для одной аннотации параметра.
type Result struct {
	Parameter      Parameter
	AnnotationType string
	Definition     Definition
}

// Metadatable определяет интерфейс для аннотаций, которые могут нести метаданные
// (например, контекст трассировки).
type Metadatable interface {
	Metadata() map[string]string
}
