// Package predicate определяет закрытый словарь видов предикатов, которые
// поддерживают доменные функции и операторы, и предвычисленные группы этих видов.
package predicate

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownType возвращается при разборе неизвестного имени вида предиката.
var ErrUnknownType = errors.New("неизвестный вид предиката")

// Type описывает вид предиката. Нулевое значение не является допустимым видом.
type Type uint8

const (
	// Nullness — проверка на NULL.
	Nullness Type = iota + 1
	// Collection — принадлежность коллекции.
	Collection
	// Relational — отношение порядка (<, <=, >, >=).
	Relational
	// Equality — проверка на равенство.
	Equality
)

var typeNames = [...]string{
	Nullness:   "NULLNESS",
	Collection: "COLLECTION",
	Relational: "RELATIONAL",
	Equality:   "EQUALITY",
}

// Values возвращает все виды предикатов в порядке объявления.
func Values() []Type {
	return []Type{Nullness, Collection, Relational, Equality}
}

// Valid сообщает, является ли значение одним из объявленных видов.
func (t Type) Valid() bool {
	return t >= Nullness && t <= Equality
}

// String возвращает каноническое имя вида.
func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
	return typeNames[t]
}

// Parse разбирает имя вида без учета регистра.
func Parse(name string) (Type, error) {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	for _, t := range Values() {
		if typeNames[t] == normalized {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: '%s'", ErrUnknownType, name)
}

// MarshalText реализует encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, uint8(t))
	}
	return []byte(typeNames[t]), nil
}

// UnmarshalText реализует encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ComparableTypes возвращает виды предикатов, применимые к сравнимым значениям:
// все виды, кроме Collection.
func ComparableTypes() Set {
	return NewSet(Relational, Equality, Nullness)
}

// EqualityTypes возвращает виды предикатов, применимые к значениям,
// поддерживающим только проверку на равенство.
func EqualityTypes() Set {
	return NewSet(Equality, Nullness)
}

// AllTypes возвращает множество всех видов предикатов.
func AllTypes() Set {
	return NewSet(Values()...)
}
