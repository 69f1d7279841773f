package localize

import "strings"

// NoValueSentinel is KiCad's single-character placeholder for an unset
// property value.
const NoValueSentinel = "~"

// Verdict is the outcome of classifying one raw reference value.
type Verdict int

const (
	// VerdictAdd accepts the value for processing and records it in the
	// seen-set.
	VerdictAdd Verdict = iota
	// VerdictEmpty marks a blank value or the "~" placeholder.
	VerdictEmpty
	// VerdictLocalised marks a value a previous run already rewrote to a
	// project-local path.
	VerdictLocalised
	// VerdictNonPDF marks a value in the wrong format for the collector,
	// tallied separately from silent skips so operators can see how many
	// assets were excluded.
	VerdictNonPDF
	// VerdictDuplicate marks a value already accepted earlier in the run.
	VerdictDuplicate
)

func (v Verdict) String() string {
	switch v {
	case VerdictAdd:
		return "add"
	case VerdictEmpty:
		return "empty"
	case VerdictLocalised:
		return "localised"
	case VerdictNonPDF:
		return "non_pdf"
	case VerdictDuplicate:
		return "duplicate"
	}
	return "unknown"
}

// Seen accumulates the reference values already accepted for processing.
// It is scoped to exactly one localization run and passed explicitly so
// repeated runs cannot leak state between them. It spans every scan pass
// of the run; symbol libraries and schematics share one set so the same
// URL is not downloaded twice even when it appears in both kinds of file.
type Seen map[string]struct{}

// NewSeen returns an empty seen-set.
func NewSeen() Seen {
	return make(Seen)
}

// Classifier is the reference filtering policy shared by every localizer.
// The same four checks (blank, already-local, format, duplicate) apply
// whether the values are datasheet URLs, footprint references or model
// paths; only the parameters differ.
type Classifier struct {
	// LocalPrefix marks values a previous run already localized, e.g.
	// "${KIPRJMOD}".
	LocalPrefix string
	// Ext is the accepted local-file extension, matched case-insensitively
	// (e.g. ".pdf"). Empty accepts any extension.
	Ext string
	// AllowURL also accepts http:// and https:// values regardless of
	// extension.
	AllowURL bool
}

// DatasheetClassifier is the policy for datasheet property values: accept
// web URLs and local .pdf paths, skip anything already under ${KIPRJMOD}.
func DatasheetClassifier() Classifier {
	return Classifier{LocalPrefix: ProjectPathVar, Ext: ".pdf", AllowURL: true}
}

// Classify maps one raw reference value to a verdict. Rules are evaluated
// in order and the first match wins; only VerdictAdd mutates seen. The set
// of values classified add over a whole scan is the set of distinct valid
// values regardless of scan order; ordering only decides which occurrence
// of a repeated value gets the add verdict.
func (c Classifier) Classify(raw string, seen Seen) Verdict {
	if raw == "" || raw == NoValueSentinel {
		return VerdictEmpty
	}
	if c.LocalPrefix != "" && strings.HasPrefix(raw, c.LocalPrefix) {
		return VerdictLocalised
	}
	if !c.accepted(raw) {
		return VerdictNonPDF
	}
	if _, ok := seen[raw]; ok {
		return VerdictDuplicate
	}
	seen[raw] = struct{}{}
	return VerdictAdd
}

func (c Classifier) accepted(raw string) bool {
	if c.AllowURL && IsWebURL(raw) {
		return true
	}
	if c.Ext == "" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(raw), c.Ext)
}

// IsWebURL reports whether ref is an http or https URL.
func IsWebURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}
