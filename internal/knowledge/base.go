// Package knowledge holds the Condition Knowledge Base: a read-only catalog
// mapping condition names to their descriptions and treatment task lists.
//
// The catalog is a versioned data asset. Lookup misses are a soft failure by
// design: an upgraded classifier can start emitting labels before the catalog
// ships an entry for them, and callers degrade to a generic treatment event
// instead of failing the plan.
package knowledge

import (
	"sort"

	"plantcare/internal/types"
)

// Base is an immutable condition catalog. Safe for unsynchronized concurrent
// reads after construction.
type Base struct {
	conditions map[string]types.Condition
}

// New builds a Base from the given conditions. Later entries with a duplicate
// name override earlier ones.
func New(conditions []types.Condition) *Base {
	m := make(map[string]types.Condition, len(conditions))
	for _, c := range conditions {
		m[c.Name] = c
	}
	return &Base{conditions: m}
}

// Default returns the built-in catalog covering the supported vegetable
// varieties.
func Default() *Base {
	return New(builtinConditions)
}

// Lookup returns the condition entry for the given name. A miss returns a
// knowledge_base_miss AppError; callers treat it as a degradation signal,
// not a failure.
func (b *Base) Lookup(name string) (*types.Condition, error) {
	c, ok := b.conditions[name]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeKnowledgeBaseMiss,
			"condition not in knowledge base: "+name, nil)
	}
	return &c, nil
}

// KindOf classifies a condition label. Unknown labels are reported as
// treatable pests: a label the catalog has never seen is far more likely a
// new pest or pathogen class than a new way to say "healthy".
func (b *Base) KindOf(name string) types.ConditionKind {
	if c, ok := b.conditions[name]; ok {
		return c.Kind
	}
	return types.KindPest
}

// Names returns all catalog entries in lexicographic order.
func (b *Base) Names() []string {
	out := make([]string, 0, len(b.conditions))
	for name := range b.conditions {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
