// Package sexpr implements parsing and serialization of the S-expression
// format used by KiCad files (boards, schematics, symbol libraries and
// library tables). Parsed trees are plain nested values: quoted string
// atoms keep their surrounding quote characters so that a tree can be
// written back without losing information about which tokens were quoted.
package sexpr

import "strings"

// Node is one element of a parsed S-expression tree: either an Atom or a
// *List. Trees are acyclic owned values; callers that mutate a tree in
// place must not assume sharing with other trees.
type Node interface {
	node()
}

// Atom is a leaf token. Quoted string literals retain their quotes, so the
// atom for `"Example Board"` is the 15-character string including both
// quote characters. Use Unquoted to get the bare value.
type Atom string

func (Atom) node() {}

// Unquoted returns the atom with any surrounding quote characters removed.
func (a Atom) Unquoted() string {
	return strings.Trim(string(a), `"`)
}

// Quote wraps a bare value in quote characters, producing the atom form
// KiCad uses for string fields.
func Quote(value string) Atom {
	return Atom(`"` + value + `"`)
}

// List is an ordered, possibly empty sequence of nodes. By convention the
// first element is a keyword atom that determines both the semantic meaning
// of the record and its serialization layout.
type List struct {
	Items []Node
}

func (*List) node() {}

// NewList builds a list node from its elements.
func NewList(items ...Node) *List {
	return &List{Items: items}
}

// Keyword returns the first element if it is an atom, or "" otherwise.
func (l *List) Keyword() string {
	if len(l.Items) == 0 {
		return ""
	}
	if a, ok := l.Items[0].(Atom); ok {
		return string(a)
	}
	return ""
}

// Atom returns the element at index i unquoted, or "" when the element is
// missing or not an atom.
func (l *List) Atom(i int) string {
	if i < 0 || i >= len(l.Items) {
		return ""
	}
	if a, ok := l.Items[i].(Atom); ok {
		return a.Unquoted()
	}
	return ""
}

// Append adds elements to the end of the list.
func (l *List) Append(items ...Node) {
	l.Items = append(l.Items, items...)
}

// Equal reports whether two trees are structurally equal: same shape and
// the same atom text (quotes included) at every position.
func Equal(a, b Node) bool {
	switch av := a.(type) {
	case Atom:
		bv, ok := b.(Atom)
		return ok && av == bv
	case *List:
		bv, ok := b.(*List)
		if !ok || len(av.Items) != len(bv.Items) {
			return false
		}
		for i := range av.Items {
			if !Equal(av.Items[i], bv.Items[i]) {
				return false
			}
		}
		return true
	}
	return a == nil && b == nil
}
