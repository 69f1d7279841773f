package localize

import "testing"

func TestClassifyDatasheetRefs(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  Verdict
	}{
		{"empty string", "", VerdictEmpty},
		{"tilde placeholder", "~", VerdictEmpty},
		{"already localized", "${KIPRJMOD}/Data_Sheets/1n4001.pdf", VerdictLocalised},
		{"web url", "http://www.vishay.com/docs/88503/1n4001.pdf", VerdictAdd},
		{"https url without extension", "https://example.com/docs/view?id=42", VerdictAdd},
		{"local pdf path", "C:/Datasheets/file.pdf", VerdictAdd},
		{"local pdf uppercase extension", "/share/NE555.PDF", VerdictAdd},
		{"local non-pdf path", "/share/NE555.txt", VerdictNonPDF},
		{"local path without extension", "/share/NE555", VerdictNonPDF},
	}

	c := DatasheetClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.value, NewSeen())
			if got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.value, got, tt.want)
			}
		})
	}
}

func TestClassifyDeduplicates(t *testing.T) {
	c := DatasheetClassifier()
	seen := NewSeen()

	url := "https://example.com/ds.pdf"
	if got := c.Classify(url, seen); got != VerdictAdd {
		t.Fatalf("first Classify = %s, want add", got)
	}
	if got := c.Classify(url, seen); got != VerdictDuplicate {
		t.Errorf("second Classify = %s, want duplicate", got)
	}

	// Skipped values never enter the seen-set.
	if got := c.Classify("/share/NE555.txt", seen); got != VerdictNonPDF {
		t.Fatalf("Classify non-pdf = %s, want non_pdf", got)
	}
	if got := c.Classify("/share/NE555.txt", seen); got != VerdictNonPDF {
		t.Errorf("repeated non-pdf Classify = %s, want non_pdf again", got)
	}
}

func TestClassifyAgainstPopulatedSeenCopy(t *testing.T) {
	// Re-classifying the same values against a copy of the populated
	// seen-set yields duplicate for everything previously added.
	c := DatasheetClassifier()
	values := []string{"https://a.example/x.pdf", "https://b.example/y.pdf"}

	seen := NewSeen()
	for _, v := range values {
		if got := c.Classify(v, seen); got != VerdictAdd {
			t.Fatalf("Classify(%q) = %s, want add", v, got)
		}
	}

	copied := NewSeen()
	for v := range seen {
		copied[v] = struct{}{}
	}
	for _, v := range values {
		if got := c.Classify(v, copied); got != VerdictDuplicate {
			t.Errorf("Classify(%q) against seen copy = %s, want duplicate", v, got)
		}
	}
}

func TestClassifyOrderOnlyMovesAddVerdict(t *testing.T) {
	// The distinct values classified add over a scan do not depend on the
	// order the occurrences arrive in.
	values := []string{
		"https://a.example/x.pdf",
		"https://b.example/y.pdf",
		"https://a.example/x.pdf",
	}
	reversed := []string{values[2], values[1], values[0]}

	c := DatasheetClassifier()
	collect := func(in []string) map[string]struct{} {
		seen := NewSeen()
		added := make(map[string]struct{})
		for _, v := range in {
			if c.Classify(v, seen) == VerdictAdd {
				added[v] = struct{}{}
			}
		}
		return added
	}

	a, b := collect(values), collect(reversed)
	if len(a) != 2 || len(b) != 2 {
		t.Fatalf("expected 2 distinct adds, got %d and %d", len(a), len(b))
	}
	for v := range a {
		if _, ok := b[v]; !ok {
			t.Errorf("value %q added in one order but not the other", v)
		}
	}
}

func TestClassifyFreshSeenReclassifies(t *testing.T) {
	// A new run starts with a fresh seen-set, so a value accepted in an
	// earlier run is accepted again.
	c := DatasheetClassifier()
	url := "https://example.com/ds.pdf"

	first := NewSeen()
	if got := c.Classify(url, first); got != VerdictAdd {
		t.Fatalf("run 1 Classify = %s, want add", got)
	}
	second := NewSeen()
	if got := c.Classify(url, second); got != VerdictAdd {
		t.Errorf("run 2 Classify = %s, want add", got)
	}
}

func TestClassifierAnyExtension(t *testing.T) {
	c := Classifier{LocalPrefix: ProjectPathVar}
	if got := c.Classify("/models/box.step", NewSeen()); got != VerdictAdd {
		t.Errorf("Classify with empty Ext = %s, want add", got)
	}
}

func TestVerdictString(t *testing.T) {
	tests := []struct {
		v    Verdict
		want string
	}{
		{VerdictAdd, "add"},
		{VerdictEmpty, "empty"},
		{VerdictLocalised, "localised"},
		{VerdictNonPDF, "non_pdf"},
		{VerdictDuplicate, "duplicate"},
		{Verdict(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("Verdict(%d).String() = %q, want %q", int(tt.v), got, tt.want)
		}
	}
}
