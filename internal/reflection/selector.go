package reflection

import (
	"fmt"
	"reflect"

	"github.com/puzpuzpuz/xsync/v3"
)

// ConstructorSelector chooses the constructor used to build a type.
//
// Candidates come from an explicit list or from the selector's catalog of
// known constructors, keyed by result type. A type with no catalog entry
// falls back to its synthesized parameterless constructor when it has one.
//
// Tie-break: the eligible constructor with the most parameters wins. Several
// eligible constructors of that arity are ambiguous, unless non-public
// constructors are permitted and exactly one of them is public.
type ConstructorSelector struct {
	analyzer       *Analyzer
	catalog        *xsync.MapOf[reflect.Type, []FactoryAdapter]
	allowNonPublic bool
}

// NewConstructorSelector creates a selector with an empty catalog.
func NewConstructorSelector(analyzer *Analyzer, allowNonPublic bool) *ConstructorSelector {
	if analyzer == nil {
		analyzer = New()
	}

	return &ConstructorSelector{
		analyzer:       analyzer,
		catalog:        xsync.NewMapOf[reflect.Type, []FactoryAdapter](),
		allowNonPublic: allowNonPublic,
	}
}

// Analyzer returns the analyzer used for constructor functions.
func (s *ConstructorSelector) Analyzer() *Analyzer {
	return s.analyzer
}

// AllowNonPublic reports whether non-public constructors are eligible.
func (s *ConstructorSelector) AllowNonPublic() bool {
	return s.allowNonPublic
}

// AddConstructors records constructor functions in the catalog under their result type.
func (s *ConstructorSelector) AddConstructors(constructors ...any) error {
	for _, c := range constructors {
		adapter, err := NewFuncAdapter(s.analyzer, c)
		if err != nil {
			return fmt.Errorf("constructor %T: %w", c, err)
		}

		s.catalog.Compute(adapter.ResultType(), func(old []FactoryAdapter, _ bool) ([]FactoryAdapter, bool) {
			next := make([]FactoryAdapter, len(old), len(old)+1)
			copy(next, old)
			return append(next, adapter), false
		})
	}

	return nil
}

// Candidates returns the known constructors of t.
func (s *ConstructorSelector) Candidates(t reflect.Type) []FactoryAdapter {
	if known, ok := s.catalog.Load(t); ok && len(known) > 0 {
		return known
	}

	if zero := NewZeroValueAdapter(t); zero != nil {
		return []FactoryAdapter{zero}
	}

	return nil
}

// CanConstruct reports whether t has at least one known constructor.
func (s *ConstructorSelector) CanConstruct(t reflect.Type) bool {
	return len(s.Candidates(t)) > 0
}

// SelectConstructor picks the constructor for t from its known candidates.
func (s *ConstructorSelector) SelectConstructor(t reflect.Type) (FactoryAdapter, error) {
	return s.Select(t, s.Candidates(t))
}

// Select applies the tie-break rule to an explicit candidate list.
func (s *ConstructorSelector) Select(t reflect.Type, candidates []FactoryAdapter) (FactoryAdapter, error) {
	eligible := make([]FactoryAdapter, 0, len(candidates))
	for _, c := range candidates {
		if c.Public() || s.allowNonPublic {
			eligible = append(eligible, c)
		}
	}

	if len(eligible) == 0 {
		return nil, NoUsableConstructorError{Type: t, Rejected: len(candidates)}
	}

	arity := -1
	var best []FactoryAdapter
	for _, c := range eligible {
		switch n := len(c.Parameters()); {
		case n > arity:
			arity = n
			best = []FactoryAdapter{c}
		case n == arity:
			best = append(best, c)
		}
	}

	if len(best) == 1 {
		return best[0], nil
	}

	if s.allowNonPublic {
		var public []FactoryAdapter
		for _, c := range best {
			if c.Public() {
				public = append(public, c)
			}
		}
		if len(public) == 1 {
			return public[0], nil
		}
	}

	names := make([]string, len(best))
	for i, c := range best {
		names[i] = c.String()
	}

	return nil, AmbiguousConstructorError{Type: t, Arity: arity, Candidates: names}
}
