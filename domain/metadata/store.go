package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// Record представляет определение метаданных, сохраненное в хранилище.
type Record struct {
	ID             uuid.UUID       `validate:"required"` // Уникальный идентификатор записи
	AnnotationType string          `validate:"required"` // Тип обработанной аннотации
	Owner          string          // Тип, объявляющий функцию
	Function       string          `validate:"required"` // Квалифицированное имя функции
	Parameter      string          `validate:"required"` // Параметр в формате name#index
	Definition     json.RawMessage `validate:"required"` // Сериализованное определение
	CreatedAt      time.Time       `validate:"required"` // Время создания
}

// Validate проверяет обязательные поля записи.
func (r *Record) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("некорректная запись метаданных: %w", err)
	}
	return nil
}

// NewRecord создает запись для результата обработки запроса.
func NewRecord(req Request, def Definition) (*Record, error) {
	payload, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("не удалось сериализовать определение: %w", err)
	}

	return &Record{
		ID:             uuid.New(),
		AnnotationType: getAnnotationType(req.Annotation),
		Owner:          req.Owner.String(),
		Function:       req.Function.String(),
		Parameter:      req.Parameter.String(),
		Definition:     payload,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// Store определяет контракт для персистентного хранения определений.
// Все операции должны быть потокобезопасными.
type Store interface {
	// Save сохраняет запись в хранилище.
	Save(ctx context.Context, rec *Record) error

	// List возвращает записи для указанного типа-владельца в порядке сохранения.
	// Пустой owner возвращает все записи.
	List(ctx context.Context, owner string) ([]*Record, error)
}

// MemoryStore — это хранилище определений в памяти процесса.
type MemoryStore struct {
	records []*Record
	mu      sync.RWMutex
}

// NewMemoryStore создает пустое хранилище в памяти.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save проверяет и сохраняет запись.
func (s *MemoryStore) Save(ctx context.Context, rec *Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *rec
	copied.Definition = bytes.Clone(rec.Definition)
	s.records = append(s.records, &copied)
	return nil
}

// List возвращает копии сохраненных записей.
func (s *MemoryStore) List(ctx context.Context, owner string) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		if owner != "" && rec.Owner != owner {
			continue
		}
		copied := *rec
		copied.Definition = bytes.Clone(rec.Definition)
		records = append(records, &copied)
	}
	return records, nil
}

// NewStoreMiddleware создает middleware, которое сохраняет каждое успешно
// созданное определение в store.
func NewStoreMiddleware(store Store) Middleware {
	if store == nil {
		return &noopMiddleware{}
	}
	return MiddlewareFunc(func(next Provider) Provider {
		return &storeProvider{
			next:  next,
			store: store,
		}
	})
}

// storeProvider - это обертка над провайдером, которая пишет результаты в Store.
type storeProvider struct {
	next  Provider
	store Store
}

// Process выполняет обработку и сохраняет результат.
func (p *storeProvider) Process(ctx context.Context, req Request) (Definition, error) {
	def, err := p.next.Process(ctx, req)
	if err != nil {
		return nil, err
	}

	rec, err := NewRecord(req, def)
	if err != nil {
		return nil, err
	}
	if err := p.store.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("не удалось сохранить определение для аннотации '%s': %w", rec.AnnotationType, err)
	}

	return def, nil
}

// Register делегирует вызов.
func (p *storeProvider) Register(annotationType string, handler Handler) error {
	return p.next.Register(annotationType, handler)
}

// Shutdown делегирует вызов.
func (p *storeProvider) Shutdown(ctx context.Context) error {
	return p.next.Shutdown(ctx)
}
