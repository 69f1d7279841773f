package sexpr

import "strings"

// LibRef identifies an asset inside a named library, the two halves of a
// "Library:Name" reference.
type LibRef struct {
	Library string
	Name    string
}

func (r LibRef) String() string {
	return r.Library + ":" + r.Name
}

// splitLibRef splits a "Library:Name" value on the first colon. ok is
// false when there is no colon or either half is empty after trimming.
func splitLibRef(value string) (LibRef, bool) {
	idx := strings.Index(value, ":")
	if idx < 0 {
		return LibRef{}, false
	}
	lib := strings.TrimSpace(value[:idx])
	name := strings.TrimSpace(value[idx+1:])
	if lib == "" || name == "" {
		return LibRef{}, false
	}
	return LibRef{Library: lib, Name: name}, true
}

// walkLists visits every list node of the tree depth-first.
func walkLists(n Node, visit func(*List)) {
	l, ok := n.(*List)
	if !ok {
		return
	}
	visit(l)
	for _, item := range l.Items {
		walkLists(item, visit)
	}
}

// FindFootprints collects every (property "Footprint" "Library:Name")
// reference in the tree. Values without both halves are ignored; duplicate
// references collapse by set semantics.
func FindFootprints(n Node) map[LibRef]struct{} {
	refs := make(map[LibRef]struct{})
	walkLists(n, func(l *List) {
		if l.Keyword() != "property" || len(l.Items) < 3 {
			return
		}
		if l.Atom(1) != "Footprint" {
			return
		}
		if ref, ok := splitLibRef(l.Atom(2)); ok {
			refs[ref] = struct{}{}
		}
	})
	return refs
}

// FindBoardFootprints collects the "Library:Name" identifiers of footprints
// placed on a board, from (footprint "Library:Name" ...) records.
func FindBoardFootprints(n Node) map[LibRef]struct{} {
	refs := make(map[LibRef]struct{})
	walkLists(n, func(l *List) {
		if l.Keyword() != "footprint" || len(l.Items) < 2 {
			return
		}
		if ref, ok := splitLibRef(l.Atom(1)); ok {
			refs[ref] = struct{}{}
		}
	})
	return refs
}

// Find3DModels returns the model paths referenced by (model "path" ...)
// records, quotes stripped. Order matters because the caller pairs old and new
// paths positionally when rewriting a footprint file, so duplicates are
// kept and document order is preserved.
func Find3DModels(n Node) []string {
	var models []string
	walkLists(n, func(l *List) {
		if l.Keyword() == "model" && len(l.Items) > 1 {
			models = append(models, l.Atom(1))
		}
	})
	return models
}

// FindLibraryURI looks up the uri of the library entry named libName in a
// parsed library table, matching (lib (name "X") (uri "Y") ...) shapes with
// name and uri sub-lists in any order. ok is false when no entry matches.
func FindLibraryURI(n Node, libName string) (string, bool) {
	var uri string
	found := false
	walkLists(n, func(l *List) {
		if found || l.Keyword() != "lib" {
			return
		}
		var entryName, entryURI string
		for _, item := range l.Items {
			sub, isList := item.(*List)
			if !isList || len(sub.Items) < 2 {
				continue
			}
			switch sub.Keyword() {
			case "name":
				entryName = sub.Atom(1)
			case "uri":
				entryURI = sub.Atom(1)
			}
		}
		if entryName == libName && entryURI != "" {
			uri = entryURI
			found = true
		}
	})
	return uri, found
}

// FindSymbolRefs collects the library symbol references used by a
// schematic, from (symbol ... (lib_id "Library:Symbol") ...) instances.
func FindSymbolRefs(n Node) map[LibRef]struct{} {
	refs := make(map[LibRef]struct{})
	walkLists(n, func(l *List) {
		if l.Keyword() != "symbol" {
			return
		}
		for _, item := range l.Items {
			sub, isList := item.(*List)
			if !isList || sub.Keyword() != "lib_id" || len(sub.Items) < 2 {
				continue
			}
			if ref, ok := splitLibRef(sub.Atom(1)); ok {
				refs[ref] = struct{}{}
			}
		}
	})
	return refs
}

// SymbolNames returns the names of the symbols defined by a parsed
// kicad_symbol_lib tree (direct children only, not sub-units).
func SymbolNames(lib Node) map[string]struct{} {
	names := make(map[string]struct{})
	l, ok := lib.(*List)
	if !ok {
		return names
	}
	for _, item := range l.Items {
		sub, isList := item.(*List)
		if isList && sub.Keyword() == "symbol" && len(sub.Items) >= 2 {
			names[sub.Atom(1)] = struct{}{}
		}
	}
	return names
}

// ExtractSymbol pulls the (symbol "name" ...) definition out of a parsed
// symbol library tree. ok is false when the library defines no such symbol.
func ExtractSymbol(lib Node, name string) (*List, bool) {
	l, isList := lib.(*List)
	if !isList {
		return nil, false
	}
	for _, item := range l.Items {
		sub, ok := item.(*List)
		if ok && sub.Keyword() == "symbol" && len(sub.Items) >= 2 && sub.Atom(1) == name {
			return sub, true
		}
	}
	return nil, false
}

// PropertyValue is one occurrence of a (property "Key" "Value" ...) record,
// paired with the name of the symbol definition that owns it ("" when the
// property is not inside a symbol definition).
type PropertyValue struct {
	Owner string
	Value string
}

// FindProperties collects every (property "key" "value" ...) occurrence in
// document order. The owner is the nearest enclosing symbol definition's
// name, kept for logging and fallback file naming; it is not part of any
// dedup key.
func FindProperties(n Node, key string) []PropertyValue {
	var out []PropertyValue
	var walk func(node Node, owner string)
	walk = func(node Node, owner string) {
		l, ok := node.(*List)
		if !ok {
			return
		}
		if l.Keyword() == "symbol" && len(l.Items) >= 2 {
			if name := l.Atom(1); name != "" {
				owner = name
			}
		}
		if l.Keyword() == "property" && len(l.Items) >= 3 && l.Atom(1) == key {
			out = append(out, PropertyValue{Owner: owner, Value: l.Atom(2)})
		}
		for _, item := range l.Items {
			walk(item, owner)
		}
	}
	walk(n, "")
	return out
}
