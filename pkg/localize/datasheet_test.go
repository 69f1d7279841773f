package localize

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/AdrianWest/Bakery/pkg/sexpr"
)

func newDatasheetLocalizer(t *testing.T, client *http.Client) *DatasheetLocalizer {
	t.Helper()
	parser := sexpr.NewParser(0)
	d := NewDatasheetLocalizer(DefaultConfig(), NewScanner(parser, nil), NewFileWriter(false, false, nil), nil)
	if client != nil {
		d.Client = client
	}
	return d
}

func pdfServer(t *testing.T, downloads *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			atomic.AddInt32(downloads, 1)
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 fake datasheet body"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDatasheetRunDownloadsAndRewrites(t *testing.T) {
	var downloads int32
	srv := pdfServer(t, &downloads)
	url := srv.URL + "/docs/1n4001.pdf"

	projectDir := t.TempDir()
	libPath := writeTempFile(t, projectDir, "parts.kicad_sym",
		`(kicad_symbol_lib (version 20241209)
	(symbol "D1N4001"
		(property "Datasheet" "`+url+`" (at 0 0 0))
	)
)`)
	writeTempFile(t, projectDir, "test.kicad_sch",
		`(kicad_sch (version 20250114)
	(symbol (lib_id "Diode:1N4001")
		(property "Datasheet" "`+url+`" (at 0 0 0))
	)
)`)

	d := newDatasheetLocalizer(t, srv.Client())
	processed, updated, err := d.Run(projectDir, []string{libPath})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if processed != 1 {
		t.Errorf("processed %d datasheets, want 1", processed)
	}
	if updated != 2 {
		t.Errorf("updated %d files, want 2", updated)
	}
	if got := atomic.LoadInt32(&downloads); got != 1 {
		t.Errorf("downloaded %d times, want 1 (dedup across files)", got)
	}

	pdf, err := os.ReadFile(filepath.Join(projectDir, "Data_Sheets", "1n4001.pdf"))
	if err != nil {
		t.Fatalf("datasheet not downloaded: %v", err)
	}
	if !strings.HasPrefix(string(pdf), "%PDF") {
		t.Errorf("downloaded file is not a PDF: %q", pdf[:8])
	}

	want := `"${KIPRJMOD}/Data_Sheets/1n4001.pdf"`
	for _, file := range []string{libPath, filepath.Join(projectDir, "test.kicad_sch")} {
		content, _ := ReadTextFile(file)
		if !strings.Contains(content, want) {
			t.Errorf("%s missing localized reference:\n%s", filepath.Base(file), content)
		}
		if strings.Contains(content, srv.URL) {
			t.Errorf("%s still contains original URL:\n%s", filepath.Base(file), content)
		}
	}
}

func TestDatasheetRunCopiesLocalFiles(t *testing.T) {
	sourceDir := t.TempDir()
	sourcePDF := writeTempFile(t, sourceDir, "ne555.pdf", "%PDF-1.4 local datasheet")

	projectDir := t.TempDir()
	libPath := writeTempFile(t, projectDir, "parts.kicad_sym",
		`(kicad_symbol_lib
	(symbol "NE555"
		(property "Datasheet" "`+sourcePDF+`" (at 0 0 0))
	)
	(symbol "OldPart"
		(property "Datasheet" "/missing/gone.txt" (at 0 0 0))
	)
)`)

	d := newDatasheetLocalizer(t, nil)
	processed, _, err := d.Run(projectDir, []string{libPath})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if processed != 1 {
		t.Errorf("processed %d datasheets, want 1", processed)
	}

	if _, err := os.Stat(filepath.Join(projectDir, "Data_Sheets", "ne555.pdf")); err != nil {
		t.Errorf("datasheet not copied: %v", err)
	}
	content, _ := ReadTextFile(libPath)
	if !strings.Contains(content, `"${KIPRJMOD}/Data_Sheets/ne555.pdf"`) {
		t.Errorf("reference not rewritten:\n%s", content)
	}
	// The non-PDF value is left untouched.
	if !strings.Contains(content, "/missing/gone.txt") {
		t.Errorf("non-pdf reference modified:\n%s", content)
	}
}

func TestDatasheetRerunSkipsLocalizedRefs(t *testing.T) {
	var downloads int32
	srv := pdfServer(t, &downloads)
	url := srv.URL + "/docs/1n4001.pdf"

	projectDir := t.TempDir()
	libPath := writeTempFile(t, projectDir, "parts.kicad_sym",
		`(kicad_symbol_lib
	(symbol "D1N4001"
		(property "Datasheet" "`+url+`" (at 0 0 0))
	)
)`)

	d := newDatasheetLocalizer(t, srv.Client())
	if _, _, err := d.Run(projectDir, []string{libPath}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	processed, updated, err := d.Run(projectDir, []string{libPath})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if processed != 0 || updated != 0 {
		t.Errorf("second run processed=%d updated=%d, want 0 and 0", processed, updated)
	}
	if got := atomic.LoadInt32(&downloads); got != 1 {
		t.Errorf("downloaded %d times across runs, want 1", got)
	}
}

func TestDatasheetContentDispositionFilename(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="lm317"`)
		w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	projectDir := t.TempDir()
	libPath := writeTempFile(t, projectDir, "parts.kicad_sym",
		`(kicad_symbol_lib
	(symbol "LM317"
		(property "Datasheet" "`+srv.URL+`/download?part=lm317" (at 0 0 0))
	)
)`)

	d := newDatasheetLocalizer(t, srv.Client())
	if _, _, err := d.Run(projectDir, []string{libPath}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(projectDir, "Data_Sheets", "lm317.pdf")); err != nil {
		t.Errorf("datasheet not saved under header-derived name: %v", err)
	}
}

func TestDatasheetSkipsHTMLResource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html>not a datasheet</html>"))
	}))
	defer srv.Close()

	projectDir := t.TempDir()
	libPath := writeTempFile(t, projectDir, "parts.kicad_sym",
		`(kicad_symbol_lib
	(symbol "X1"
		(property "Datasheet" "`+srv.URL+`/product/x1" (at 0 0 0))
	)
)`)

	d := newDatasheetLocalizer(t, srv.Client())
	processed, _, err := d.Run(projectDir, []string{libPath})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if processed != 0 {
		t.Errorf("processed %d datasheets, want 0 for HTML resource", processed)
	}
	content, _ := ReadTextFile(libPath)
	if !strings.Contains(content, srv.URL) {
		t.Errorf("skipped reference was rewritten:\n%s", content)
	}
}

func TestDatasheetDownloadErrorLeavesRefAlone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()
	url := srv.URL + "/docs/secret.pdf"

	projectDir := t.TempDir()
	libPath := writeTempFile(t, projectDir, "parts.kicad_sym",
		`(kicad_symbol_lib
	(symbol "S1"
		(property "Datasheet" "`+url+`" (at 0 0 0))
	)
)`)

	d := newDatasheetLocalizer(t, srv.Client())
	processed, updated, err := d.Run(projectDir, []string{libPath})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if processed != 0 || updated != 0 {
		t.Errorf("processed=%d updated=%d, want 0 and 0 on download failure", processed, updated)
	}
	content, _ := ReadTextFile(libPath)
	if !strings.Contains(content, url) {
		t.Errorf("failed reference was rewritten:\n%s", content)
	}
}
