package metadata

import (
	"fmt"
	"strings"
	"sync"

	"github.com/goccy/go-reflect"
)

// TagName — имя тега структуры, в котором перечисляются аннотации параметра.
const TagName = "domain"

// Decoder создает аннотацию из значения в теге. Для записи без значения
// value равен пустой строке.
type Decoder func(value string) (Annotation, error)

// Scanner извлекает аннотированные параметры из структуры параметров функции.
// Каждое экспортируемое поле структуры — это параметр, а тег вида
//
//	domain:"comparable;default:0"
//
// перечисляет аннотации через ';', значение аннотации отделяется ':'.
type Scanner struct {
	decoders map[string]Decoder
	mu       sync.RWMutex
}

// NewScanner создает сканер без зарегистрированных декодеров.
func NewScanner() *Scanner {
	return &Scanner{
		decoders: make(map[string]Decoder),
	}
}

// Decode регистрирует декодер для типа аннотации.
func (s *Scanner) Decode(annotationType string, decoder Decoder) error {
	if annotationType == "" {
		return ErrEmptyAnnotationType
	}
	if decoder == nil {
		return fmt.Errorf("декодер для аннотации '%s' не задан", annotationType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.decoders[annotationType]; exists {
		return fmt.Errorf("декодер для аннотации '%s': %w", annotationType, ErrAlreadyRegistered)
	}
	s.decoders[annotationType] = decoder
	return nil
}

// Owner возвращает описание типа структуры параметров.
func (s *Scanner) Owner(params any) (Owner, error) {
	t, err := structType(params)
	if err != nil {
		return Owner{}, err
	}
	return Owner{Name: t.Name(), PkgPath: t.PkgPath()}, nil
}

// Scan возвращает параметры с аннотациями в порядке объявления полей.
// Поля без тега и неэкспортируемые поля пропускаются.
func (s *Scanner) Scan(params any) ([]AnnotatedParameter, error) {
	t, err := structType(params)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]AnnotatedParameter, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue
		}
		tag, ok := field.Tag.Lookup(TagName)
		if !ok {
			continue
		}

		annotations, err := s.decodeTag(tag)
		if err != nil {
			return nil, fmt.Errorf("поле '%s': %w", field.Name, err)
		}

		result = append(result, AnnotatedParameter{
			Parameter: Parameter{
				Name:  field.Name,
				Index: i,
				Type:  field.Type.String(),
			},
			Annotations: annotations,
		})
	}
	return result, nil
}

// decodeTag разбирает значение тега в список аннотаций.
func (s *Scanner) decodeTag(tag string) ([]Annotation, error) {
	pairs := strings.Split(strings.TrimSpace(tag), ";")
	annotations := make([]Annotation, 0, len(pairs))
	for _, pair := range pairs {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		annotationType, value, _ := strings.Cut(pair, ":")
		annotationType = strings.TrimSpace(annotationType)

		decoder, ok := s.decoders[annotationType]
		if !ok {
			return nil, fmt.Errorf("'%s': %w", annotationType, ErrUnknownAnnotation)
		}
		annotation, err := decoder(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("не удалось декодировать аннотацию '%s': %w", annotationType, err)
		}
		annotations = append(annotations, annotation)
	}
	return annotations, nil
}

// structType возвращает тип структуры, разыменовывая указатель.
func structType(params any) (reflect.Type, error) {
	if params == nil {
		return nil, ErrNotStruct
	}
	t := reflect.TypeOf(params)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w, получен тип %s", ErrNotStruct, t)
	}
	return t, nil
}
