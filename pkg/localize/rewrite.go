package localize

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// RefMap maps old raw reference strings to their new project-local values.
// Keys are exactly the references that were successfully copied or
// downloaded; failed or skipped references are absent, so rewriting leaves
// them untouched.
type RefMap map[string]string

// Apply performs literal substring replacement of every old reference with
// its mapped value and returns the rewritten content with the number of
// occurrences replaced. Plain text substitution is used deliberately for
// whole-file rewrites: it is simpler and more robust than locating each
// matching sub-node, at the cost of not distinguishing two structurally
// different occurrences of an identical string. Applying the same map a
// second time changes nothing, since all matched occurrences already carry
// the new value.
func (m RefMap) Apply(content string) (string, int) {
	// Sorted key order keeps the output deterministic.
	keys := make([]string, 0, len(m))
	for old := range m {
		keys = append(keys, old)
	}
	sort.Strings(keys)

	replaced := 0
	for _, old := range keys {
		if n := strings.Count(content, old); n > 0 {
			content = strings.ReplaceAll(content, old, m[old])
			replaced += n
		}
	}
	return content, replaced
}

// ReplaceQuoted rewrites quoted occurrences positionally: the Nth old value
// maps to the Nth new value, and only the quoted literal form "old" is
// targeted to avoid partial-string collisions. Used where ordering across
// several similar sub-structures matters, e.g. the 3D model paths within
// one footprint. Extra entries in the longer slice are ignored.
func ReplaceQuoted(content string, oldRefs, newRefs []string) string {
	n := len(oldRefs)
	if len(newRefs) < n {
		n = len(newRefs)
	}
	for i := 0; i < n; i++ {
		content = strings.ReplaceAll(content, `"`+oldRefs[i]+`"`, `"`+newRefs[i]+`"`)
	}
	return content
}

// UnifiedDiff renders the change a rewrite would make to path as a unified
// diff, for dry-run previews.
func UnifiedDiff(path, before, after string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: path,
		ToFile:   path + " (localized)",
		Context:  2,
	})
	if err != nil {
		return ""
	}
	return diff
}
