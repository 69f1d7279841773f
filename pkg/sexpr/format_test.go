package sexpr

import (
	"strings"
	"testing"
)

func TestFormatCompact(t *testing.T) {
	p := NewParser(0)

	node := p.Parse("(lib MyLib)")
	out := Format(node)

	if !strings.Contains(out, "lib") || !strings.Contains(out, "MyLib") {
		t.Errorf("Format() = %q, missing tokens", out)
	}
	if !Equal(p.Parse(out), node) {
		t.Errorf("Format() output does not re-parse to an equal tree")
	}
}

func TestFormatTableLayout(t *testing.T) {
	p := NewParser(0)

	node := p.Parse(`(fp_lib_table (lib (name "A") (uri "/a")) (lib (name "B") (uri "/b")))`)
	out := Format(node)

	want := "(fp_lib_table\n" +
		"  (lib(name \"A\")(uri \"/a\"))\n" +
		"  (lib(name \"B\")(uri \"/b\"))\n" +
		")"
	if out != want {
		t.Errorf("Format() =\n%s\nwant:\n%s", out, want)
	}
	if !Equal(p.Parse(out), node) {
		t.Errorf("table layout does not round-trip")
	}
}

func TestFormatSymbolLayout(t *testing.T) {
	p := NewParser(0)

	input := `(kicad_symbol_lib (version 20241209) (generator kicad_symbol_editor)
		(symbol "R"
			(pin_numbers (hide yes))
			(pin_names (offset 0.76))
			(property "Reference" "R" (at 2.03 0 90))
			(symbol "R_0_1"
				(polyline
					(pts (xy 0 -2.54) (xy 0 2.54))
					(stroke (width 0.254) (type default))))))`

	node := p.Parse(input)
	out := Format(node)

	checks := []struct {
		name string
		want string
	}{
		{"version inline", "(version 20241209)"},
		{"pts coordinates on one line", "(pts (xy 0 -2.54) (xy 0 2.54))"},
		{"symbol name on opening line", "(symbol \"R\"\n"},
		{"sub-unit name on opening line", "(symbol \"R_0_1\"\n"},
		{"property atoms on the keyword line", "(property \"Reference\" \"R\"\n"},
		{"tab indentation", "\n\t(symbol \"R\""},
	}
	for _, c := range checks {
		if !strings.Contains(out, c.want) {
			t.Errorf("%s: output missing %q\noutput:\n%s", c.name, c.want, out)
		}
	}

	if !Equal(p.Parse(out), node) {
		t.Errorf("symbol layout does not round-trip")
	}
}

func TestFormatRoundTrip(t *testing.T) {
	inputs := []string{
		"(lib MyLib)",
		`(property "Footprint" "Resistor_SMD:R_0805")`,
		`(fp_lib_table (lib (name "A") (type "KiCad") (uri "${KIPRJMOD}/A.pretty") (options "") (descr "x")))`,
		`(sym_lib_table (lib (name "S") (uri "${KIPRJMOD}/MySym/S.kicad_sym")))`,
		`(kicad_symbol_lib (version 20241209) (symbol "D" (property "Datasheet" "http://x.com/a.pdf")))`,
		`(footprint "Lib:Name" (model "${KICAD9_3DMODEL_DIR}/x.step" (offset (xyz 0 0 0))))`,
		`(a (b (c (d (e)))))`,
	}

	p := NewParser(0)
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			tree := p.Parse(input)
			out := Format(tree)
			if !Equal(p.Parse(out), tree) {
				t.Errorf("round trip failed:\ninput:  %s\noutput: %s", input, out)
			}
		})
	}
}

// Re-serializing a re-parsed tree must be textually stable.
func TestFormatIdempotent(t *testing.T) {
	inputs := []string{
		`(fp_lib_table (lib (name "A") (uri "/a")) (lib (name "B") (uri "/b")))`,
		`(kicad_symbol_lib (version 20241209) (symbol "R" (pin_names (offset 0.76)) (property "Reference" "R" (at 2.03 0 90))))`,
		`(footprint "Lib:Name" (model "/m.step"))`,
	}

	p := NewParser(0)
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			first := Format(p.Parse(input))
			second := Format(p.Parse(first))
			if first != second {
				t.Errorf("formatting is not stable:\nfirst:\n%s\nsecond:\n%s", first, second)
			}
		})
	}
}

func TestFormatDegenerate(t *testing.T) {
	if got := Format(Atom("bare")); got != "bare" {
		t.Errorf("Format(Atom) = %q, want %q", got, "bare")
	}
	if got := Format(&List{}); got != "()" {
		t.Errorf("Format(empty list) = %q, want %q", got, "()")
	}
	if got := Format(Quote("v")); got != `"v"` {
		t.Errorf("Format(quoted atom) = %q, want %q", got, `"v"`)
	}
}
