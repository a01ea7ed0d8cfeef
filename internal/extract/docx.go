package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

const (
	docxDefaultPart  = "word/document.xml"
	docxContentTypes = "[Content_Types].xml"
	docxMainType     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

type contentTypes struct {
	Overrides []struct {
		PartName    string `xml:"PartName,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Override"`
}

// extractDOCX walks the main WordprocessingML part and emits the text of every
// <w:t> run, one line per <w:p> paragraph. lu4p/cat is not used here: its docx
// matcher misses paragraphs that carry attributes.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("docx: not a zip archive: %w", err)
	}
	part := docxMainPart(zr)
	f := findZipFile(zr, part)
	if f == nil {
		return "", fmt.Errorf("docx: %s not found", part)
	}
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("docx: open %s: %w", part, err)
	}
	defer rc.Close()

	var (
		out       strings.Builder
		paragraph []string
		inText    bool
	)
	flush := func() {
		if len(paragraph) == 0 {
			return
		}
		line := strings.TrimSpace(strings.Join(paragraph, ""))
		paragraph = paragraph[:0]
		if line == "" {
			return
		}
		if out.Len() > 0 {
			out.WriteByte('\n')
		}
		out.WriteString(line)
	}

	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("docx: parse %s: %w", part, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
			}
		case xml.CharData:
			if inText {
				paragraph = append(paragraph, string(t))
			}
		}
	}
	flush()
	return out.String(), nil
}

// docxMainPart resolves the main document part from [Content_Types].xml,
// falling back to word/document.xml.
func docxMainPart(zr *zip.Reader) string {
	f := findZipFile(zr, docxContentTypes)
	if f == nil {
		return docxDefaultPart
	}
	rc, err := f.Open()
	if err != nil {
		return docxDefaultPart
	}
	defer rc.Close()
	var ct contentTypes
	if err := xml.NewDecoder(rc).Decode(&ct); err != nil {
		return docxDefaultPart
	}
	for _, o := range ct.Overrides {
		if o.ContentType == docxMainType {
			return strings.TrimPrefix(path.Clean(o.PartName), "/")
		}
	}
	return docxDefaultPart
}

func findZipFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}
