package predicate

import (
	"encoding/json"
	"fmt"
	"math/bits"
	"strings"
)

// Set — неизменяемое множество видов предикатов. Все операции возвращают
// новое значение, равные множества сравниваются оператором ==.
// Биты вне объявленных видов игнорируются всеми операциями.
type Set uint8

// allMask содержит биты всех объявленных видов.
const allMask Set = 1<<Equality - 1

// NewSet создает множество из перечисленных видов. Недопустимые значения игнорируются.
func NewSet(types ...Type) Set {
	var s Set
	for _, t := range types {
		s = s.Add(t)
	}
	return s
}

func (t Type) bit() Set {
	return 1 << (t - 1)
}

// Contains сообщает, входит ли вид в множество.
func (s Set) Contains(t Type) bool {
	return t.Valid() && s&t.bit() != 0
}

// Add возвращает множество с добавленным видом.
func (s Set) Add(t Type) Set {
	if !t.Valid() {
		return s & allMask
	}
	return (s | t.bit()) & allMask
}

// Remove возвращает множество без указанного вида.
func (s Set) Remove(t Type) Set {
	if !t.Valid() {
		return s & allMask
	}
	return (s &^ t.bit()) & allMask
}

// Union возвращает объединение множеств.
func (s Set) Union(other Set) Set {
	return (s | other) & allMask
}

// Intersect возвращает пересечение множеств.
func (s Set) Intersect(other Set) Set {
	return s & other & allMask
}

// IsSubsetOf сообщает, содержится ли s целиком в other.
func (s Set) IsSubsetOf(other Set) bool {
	return s&allMask&^other == 0
}

// Len возвращает количество видов в множестве.
func (s Set) Len() int {
	return bits.OnesCount8(uint8(s & allMask))
}

// IsEmpty сообщает, пусто ли множество.
func (s Set) IsEmpty() bool {
	return s&allMask == 0
}

// Types возвращает элементы множества в порядке объявления видов.
func (s Set) Types() []Type {
	types := make([]Type, 0, s.Len())
	for _, t := range Values() {
		if s.Contains(t) {
			types = append(types, t)
		}
	}
	return types
}

// String возвращает представление вида {NULLNESS, EQUALITY}.
func (s Set) String() string {
	names := make([]string, 0, s.Len())
	for _, t := range s.Types() {
		names = append(names, t.String())
	}
	return "{" + strings.Join(names, ", ") + "}"
}

// MarshalJSON кодирует множество как массив имен.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Types())
}

// UnmarshalJSON декодирует множество из массива имен.
func (s *Set) UnmarshalJSON(data []byte) error {
	var types []Type
	if err := json.Unmarshal(data, &types); err != nil {
		return fmt.Errorf("не удалось декодировать множество предикатов: %w", err)
	}
	*s = NewSet(types...)
	return nil
}
