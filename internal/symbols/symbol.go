// Package symbols models the generic constructs of a compilation
// context and the type parameters they declare.
//
// Every type parameter, whether declared in source or observed through
// another context by a Wrapper, answers the same TypeParameter queries.
// Constraint-derived facets are resolved lazily under a Guard that
// breaks cycles between mutually constrained parameters, and are
// memoized with a single atomic publish so concurrent readers never see
// a partially built value.
package symbols

import (
	"github.com/google/uuid"
)

// SymbolKind represents the kind of symbol.
type SymbolKind int

const (
	SymbolKindContext SymbolKind = iota
	SymbolKindType
	SymbolKindMethod
	SymbolKindTypeParameter
	SymbolKindSynthesized
	SymbolKindError
)

// String returns the string representation of SymbolKind.
func (sk SymbolKind) String() string {
	switch sk {
	case SymbolKindContext:
		return "context"
	case SymbolKindType:
		return "type"
	case SymbolKindMethod:
		return "method"
	case SymbolKindTypeParameter:
		return "type parameter"
	case SymbolKindSynthesized:
		return "synthesized"
	case SymbolKindError:
		return "error"
	default:
		return "unknown"
	}
}

// Symbol is a named entity. Identity is ID identity.
type Symbol interface {
	ID() uuid.UUID
	Name() string
	Kind() SymbolKind
	ContainingSymbol() Symbol
}

// Generic is a symbol that declares type parameters.
type Generic interface {
	Symbol
	TypeParameters() []TypeParameter
}

// SameSymbol reports whether a and b denote the same symbol.
func SameSymbol(a, b Symbol) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID() == b.ID()
}

// QualifiedName joins the names of s and its containers outermost first.
func QualifiedName(s Symbol) string {
	if s == nil {
		return ""
	}
	name := s.Name()
	if c := s.ContainingSymbol(); c != nil {
		return QualifiedName(c) + "::" + name
	}
	return name
}
