package extract

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExtractBytes_plain(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("Omelette\nBattre les oeufs"), ".txt")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Omelette\nBattre les oeufs" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_plainInvalidUTF8(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("cr\x80pe"), ".md")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "cr\uFFFDpe" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_unknownExtensionIsPlain(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("sauce tomate"), ".recipe")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "sauce tomate" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_excel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Recette")
	f.SetCellValue("Sheet1", "B1", "Ingrédients")
	f.SetCellValue("Sheet1", "A2", "Omelette")
	f.SetCellValue("Sheet1", "B2", "oeufs, beurre")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	got, err := NewExtractor().ExtractBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	want := "Recette | Ingrédients\nOmelette | oeufs, beurre"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func minimalDocx(files map[string]string) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, _ := zw.Create(name)
		_, _ = w.Write([]byte(body))
	}
	_ = zw.Close()
	return buf.Bytes()
}

func TestExtractBytes_docxParagraphs(t *testing.T) {
	doc := `<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		`<w:p w:rsidR="00A1"><w:r><w:t>Pâte à crêpes</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t xml:space="preserve">Mélanger </w:t></w:r><w:r><w:t>la farine</w:t></w:r></w:p>` +
		`</w:body></w:document>`
	content := minimalDocx(map[string]string{docxDefaultPart: doc})

	got, err := NewExtractor().ExtractBytes(content, ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	want := "Pâte à crêpes\nMélanger la farine"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractBytes_docxContentTypesOverride(t *testing.T) {
	ct := `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Override ContentType="` + docxMainType + `" PartName="/word/document2.xml"/></Types>`
	doc := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>Sauce béchamel</w:t></w:r></w:p></w:body></w:document>`
	content := minimalDocx(map[string]string{
		docxContentTypes:     ct,
		"word/document2.xml": doc,
	})

	got, err := NewExtractor().ExtractBytes(content, ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Sauce béchamel" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_docxNotZip(t *testing.T) {
	if _, err := NewExtractor().ExtractBytes([]byte("plain"), ".docx"); err == nil {
		t.Error("expected error for non-zip docx")
	}
}

func TestExtract_file(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "omelette.md")
	if err := os.WriteFile(path, []byte("# Omelette"), 0600); err != nil {
		t.Fatal(err)
	}
	got, err := NewExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "# Omelette" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_nonexistent(t *testing.T) {
	_, err := NewExtractor().Extract(filepath.Join(t.TempDir(), "missing.txt"))
	if err == nil || !strings.Contains(err.Error(), "read file") {
		t.Errorf("expected read error, got %v", err)
	}
}

func TestSupported(t *testing.T) {
	for _, ext := range []string{".txt", ".PDF", ".docx", ".xlsx", ".odt"} {
		if !Supported(ext) {
			t.Errorf("Supported(%q) = false", ext)
		}
	}
	if Supported(".pptx") {
		t.Error("pptx should not be supported")
	}
	if len(Extensions()) != 8 {
		t.Errorf("Extensions: got %v", Extensions())
	}
}
