package metadata_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/x-research-team/dtx-domain/domain/metadata"
	"github.com/x-research-team/dtx-domain/domain/predicate"
)

// Тестовая аннотация, перечисляющая поддерживаемые виды предикатов.
type predicatesAnnotation struct {
	Types predicate.Set
}

func (predicatesAnnotation) AnnotationType() string { return "predicates" }

// Тестовая аннотация с именем параметра.
type nameAnnotation struct {
	Name string
	meta map[string]string
}

func (nameAnnotation) AnnotationType() string { return "name" }

func (a nameAnnotation) Metadata() map[string]string { return a.meta }

// Аннотация с тем же дискриминатором, что и predicatesAnnotation, но другим Go-типом.
type fakePredicatesAnnotation struct{}

func (fakePredicatesAnnotation) AnnotationType() string { return "predicates" }

// Аннотация с указательным получателем.
type pointerAnnotation struct{}

func (*pointerAnnotation) AnnotationType() string { return "pointer" }

// Тестовое определение, создаваемое процессором имени.
type nameDefinition struct {
	Function  string `json:"function"`
	Parameter string `json:"parameter"`
	Name      string `json:"name"`
}

// Процессор, считающий вызовы ProcessingAnnotation.
type countingProcessor struct {
	calls int
}

func (p *countingProcessor) ProcessingAnnotation() string {
	p.calls++
	return "predicates"
}

func (p *countingProcessor) Process(ctx context.Context, owner metadata.Owner, fn metadata.Function, param metadata.Parameter, a predicatesAnnotation) (metadata.Definition, error) {
	return a.Types, nil
}

func predicatesProcessor() metadata.ParameterProcessor[predicatesAnnotation] {
	return metadata.NewProcessor[predicatesAnnotation]("predicates", func(ctx context.Context, owner metadata.Owner, fn metadata.Function, param metadata.Parameter, a predicatesAnnotation) (metadata.Definition, error) {
		return a.Types, nil
	})
}

func nameProcessor() metadata.ParameterProcessor[nameAnnotation] {
	return metadata.NewProcessor[nameAnnotation]("name", func(ctx context.Context, owner metadata.Owner, fn metadata.Function, param metadata.Parameter, a nameAnnotation) (metadata.Definition, error) {
		if a.Name == "" {
			return nil, fmt.Errorf("пустое имя параметра")
		}
		return nameDefinition{Function: fn.String(), Parameter: param.Name, Name: a.Name}, nil
	})
}

// decodePredicates разбирает список видов предикатов через запятую.
func decodePredicates(value string) (metadata.Annotation, error) {
	var set predicate.Set
	for _, name := range strings.Split(value, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		t, err := predicate.Parse(name)
		if err != nil {
			return nil, err
		}
		set = set.Add(t)
	}
	return predicatesAnnotation{Types: set}, nil
}

func decodeName(value string) (metadata.Annotation, error) {
	return nameAnnotation{Name: value}, nil
}

var (
	testOwner    = metadata.Owner{Name: "Money", PkgPath: "example.com/domain"}
	testFunction = metadata.Function{Name: "Between", Owner: testOwner}
	testParam    = metadata.Parameter{Name: "lower", Index: 0, Type: "int64"}
)
