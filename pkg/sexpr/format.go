package sexpr

import (
	"fmt"
	"strings"
)

// Serialization is keyword-driven: the first atom of a list selects a
// layout strategy. KiCad's own writers emit different human-diff-friendly
// layouts per record kind, and the host tool re-parses and diffs these
// files, so the layouts below are an external contract rather than a
// style choice. Unknown keywords get the compact single-line form.
type formatFunc func(l *List, indent int) string

var listFormats map[string]formatFunc

func init() {
	listFormats = map[string]formatFunc{
		"fp_lib_table":     formatTable,
		"sym_lib_table":    formatTable,
		"lib":              formatLibEntry,
		"kicad_symbol_lib": formatSymbolLib,
		"symbol":           formatSymbolDef,
	}
}

// Keywords whose list is always rendered inline as (kw value ...) inside
// symbol definitions.
var inlineKeywords = map[string]bool{
	"version": true, "generator": true, "generator_version": true,
	"hide": true, "offset": true, "exclude_from_sim": true,
	"in_bom": true, "on_board": true, "at": true, "size": true,
	"justify": true, "width": true, "type": true, "length": true,
	"number": true, "embedded_fonts": true, "power": true, "xy": true,
	"start": true, "mid": true, "end": true, "radius": true, "center": true,
}

// Keywords whose trailing atom arguments stay on the opening line instead
// of being indented onto lines of their own.
var sameLineAtomKeywords = map[string]bool{
	"property": true, "pin": true, "name": true,
}

// Format serializes a tree back to S-expression text. The output re-parses
// to a structurally equal tree; whitespace is not guaranteed to match the
// original input byte for byte. Formatting is total: degenerate values
// stringify verbatim rather than failing.
func Format(n Node) string {
	return format(n, 0)
}

func format(n Node, indent int) string {
	switch v := n.(type) {
	case Atom:
		return string(v)
	case *List:
		if len(v.Items) == 0 {
			return "()"
		}
		if f, ok := listFormats[v.Keyword()]; ok {
			return f(v, indent)
		}
		return formatCompact(v, indent)
	default:
		return fmt.Sprintf("%v", n)
	}
}

// formatCompact renders a list on a single line with space-separated
// elements, recursing compactly into nested lists.
func formatCompact(l *List, indent int) string {
	var b strings.Builder
	b.WriteByte('(')
	for i, item := range l.Items {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(format(item, indent))
	}
	b.WriteByte(')')
	return b.String()
}

// formatTable renders library tables with one entry per line, two-space
// indented, and the closing parenthesis on its own line. Non-list children
// other than the keyword do not occur in well-formed tables and are
// skipped.
func formatTable(l *List, indent int) string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(l.Keyword())
	for _, item := range l.Items[1:] {
		if sub, ok := item.(*List); ok {
			b.WriteString("\n  ")
			b.WriteString(format(sub, indent+2))
		}
	}
	b.WriteString("\n)")
	return b.String()
}

// formatLibEntry keeps a library entry compact on one line. Child sub-lists
// are concatenated without separating spaces since each parenthesizes
// itself.
func formatLibEntry(l *List, indent int) string {
	var b strings.Builder
	b.WriteString("(lib")
	for _, item := range l.Items[1:] {
		b.WriteString(format(item, indent))
	}
	b.WriteByte(')')
	return b.String()
}

// formatSymbolLib renders a kicad_symbol_lib container multi-line with tab
// indentation, one child per line.
func formatSymbolLib(l *List, indent int) string {
	tabs := strings.Repeat("\t", indent)
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(l.Keyword())
	for _, item := range l.Items[1:] {
		b.WriteString("\n" + tabs + "\t")
		if sub, ok := item.(*List); ok {
			b.WriteString(formatSymbolNode(sub, indent+1))
		} else {
			b.WriteString("(" + string(item.(Atom)) + ")")
		}
	}
	b.WriteString("\n" + tabs + ")")
	return b.String()
}

func formatSymbolDef(l *List, indent int) string {
	return formatSymbolNode(l, indent)
}

// formatSymbolNode renders the inside of symbol definitions with the
// per-field layout KiCad's symbol editor expects: inline keywords, pts
// coordinate runs on one line, the symbol name on the opening line,
// compaction of simple pin_names/pin_numbers blocks, and deeper recursion
// only for complex children.
func formatSymbolNode(n Node, indent int) string {
	l, ok := n.(*List)
	if !ok {
		if a, isAtom := n.(Atom); isAtom {
			return string(a)
		}
		return fmt.Sprintf("%v", n)
	}
	if len(l.Items) == 0 {
		return "()"
	}

	tabs := strings.Repeat("\t", indent)
	keyword := l.Keyword()

	// Two-element lists with an atom value, and the inline keyword set,
	// render as (field value) on one line.
	twoElementAtom := len(l.Items) == 2 && isAtomNode(l.Items[1])
	if inlineKeywords[keyword] || keyword == "pts" || twoElementAtom {
		var b strings.Builder
		b.WriteByte('(')
		b.WriteString(formatSymbolNode(l.Items[0], 0))
		for _, item := range l.Items[1:] {
			b.WriteByte(' ')
			b.WriteString(formatSymbolNode(item, 0))
		}
		b.WriteByte(')')
		return b.String()
	}

	// The symbol's own name atom stays on the opening line; each child
	// field goes on its own indented line.
	if keyword == "symbol" && len(l.Items) > 1 && isAtomNode(l.Items[1]) {
		var b strings.Builder
		b.WriteString("(symbol ")
		b.WriteString(string(l.Items[1].(Atom)))
		for _, item := range l.Items[2:] {
			b.WriteString("\n" + tabs + "\t")
			b.WriteString(formatSymbolNode(item, indent+1))
		}
		b.WriteString("\n" + tabs + ")")
		return b.String()
	}

	// pin_names / pin_numbers collapse when none of their children are
	// complex (more than two elements).
	if keyword == "pin_names" || keyword == "pin_numbers" {
		if len(l.Items) == 1 {
			return "(" + keyword + ")"
		}
		hasComplex := false
		for _, item := range l.Items[1:] {
			if sub, isList := item.(*List); isList && len(sub.Items) > 2 {
				hasComplex = true
				break
			}
		}
		if !hasComplex {
			var b strings.Builder
			b.WriteString("(" + keyword)
			for _, item := range l.Items[1:] {
				b.WriteString("\n" + tabs + "\t")
				b.WriteString(formatSymbolNode(item, 0))
			}
			b.WriteString("\n" + tabs + ")")
			return b.String()
		}
	}

	// General multi-line layout: one indented line per child, recursing a
	// level deeper only for complex children.
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(formatSymbolNode(l.Items[0], 0))
	for _, item := range l.Items[1:] {
		if sub, isList := item.(*List); isList {
			b.WriteString("\n" + tabs + "\t")
			if isSimpleList(sub) {
				b.WriteString(formatSymbolNode(sub, 0))
			} else {
				b.WriteString(formatSymbolNode(sub, indent+1))
			}
			continue
		}
		if sameLineAtomKeywords[keyword] {
			b.WriteByte(' ')
			b.WriteString(string(item.(Atom)))
		} else {
			b.WriteString("\n" + tabs + "\t")
			b.WriteString(string(item.(Atom)))
		}
	}
	b.WriteString("\n" + tabs + ")")
	return b.String()
}

func isAtomNode(n Node) bool {
	_, ok := n.(Atom)
	return ok
}

// isSimpleList reports whether a list is small enough (at most three
// elements, no nested lists) to stay on a single line.
func isSimpleList(l *List) bool {
	if len(l.Items) > 3 {
		return false
	}
	for _, item := range l.Items {
		if !isAtomNode(item) {
			return false
		}
	}
	return true
}
