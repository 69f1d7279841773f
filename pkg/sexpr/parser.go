package sexpr

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the parse cache. Library tables and schematic
// sheets are re-read several times within one localization run, so caching
// by exact source text avoids redundant parses.
const DefaultCacheSize = 100

// Parser parses S-expression text into Node trees. It keeps a bounded LRU
// cache keyed on the trimmed source text; a cache hit always returns a tree
// structurally identical to a fresh parse. The cache is safe for concurrent
// use, but cached trees are shared; callers that intend to mutate a parsed
// tree should not rely on the cache returning a private copy.
type Parser struct {
	cache *lru.Cache[string, Node]
}

// NewParser creates a parser whose cache holds at most maxCache entries.
// Values below 1 fall back to DefaultCacheSize.
func NewParser(maxCache int) *Parser {
	if maxCache < 1 {
		maxCache = DefaultCacheSize
	}
	cache, _ := lru.New[string, Node](maxCache) // only errors for size < 1
	return &Parser{cache: cache}
}

// Parse converts S-expression text into a Node tree. The input is expected
// to contain at most one top-level parenthesized expression; leading and
// trailing whitespace is ignored and empty input yields an empty list.
//
// Parsing is lenient and total: malformed input never produces an error.
// Recovery behavior is deterministic: an unterminated quoted string extends
// to the end of the input, a surplus ')' at depth zero is ignored, and a
// missing ')' implicitly closes all open lists at end of input. KiCad
// exports in the wild contain enough oddities that best-effort parsing is
// deliberately preserved over strict validation.
func (p *Parser) Parse(text string) Node {
	text = strings.TrimSpace(text)

	if cached, ok := p.cache.Get(text); ok {
		return cached
	}

	result := parseText(text)
	p.cache.Add(text, result)
	return result
}

// ClearCache discards every cached parse result.
func (p *Parser) ClearCache() {
	p.cache.Purge()
}

// CacheLen returns the number of cached parse results.
func (p *Parser) CacheLen() int {
	return p.cache.Len()
}

// parseText is the single left-to-right scan behind Parse. It maintains a
// stack of in-progress lists, a pending atom buffer, and flags for quoted
// string and escape state. No backtracking; O(n) time, O(depth) stack.
func parseText(text string) Node {
	stack := []*List{{}}
	var token strings.Builder
	inString := false
	escapeNext := false

	flush := func() {
		if token.Len() == 0 {
			return
		}
		top := stack[len(stack)-1]
		top.Append(Atom(strings.TrimSpace(token.String())))
		token.Reset()
	}

	for i := 0; i < len(text); i++ {
		ch := text[i]

		// Escaped characters are kept verbatim, backslash included: the
		// parser never interprets escapes, it only stops the next character
		// (typically a quote) from toggling string state.
		if escapeNext {
			token.WriteByte(ch)
			escapeNext = false
			continue
		}
		if ch == '\\' && inString {
			token.WriteByte(ch)
			escapeNext = true
			continue
		}

		switch {
		case ch == '"':
			inString = !inString
			token.WriteByte(ch)
		case inString:
			token.WriteByte(ch)
		case ch == '(':
			flush()
			stack = append(stack, &List{})
		case ch == ')':
			flush()
			if len(stack) > 1 {
				completed := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				stack[len(stack)-1].Append(completed)
			}
			// surplus ')' at depth zero: ignored
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			flush()
		default:
			token.WriteByte(ch)
		}
	}

	// End of input: flush the pending atom and implicitly close any lists
	// still open (missing closing parentheses).
	flush()
	for len(stack) > 1 {
		completed := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stack[len(stack)-1].Append(completed)
	}

	if len(stack[0].Items) == 0 {
		return &List{}
	}
	return stack[0].Items[0]
}
