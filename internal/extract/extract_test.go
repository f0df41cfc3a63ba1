package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"
)

func buildDocx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create document.xml: %v", err)
	}
	var doc strings.Builder
	doc.WriteString(`<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		doc.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	doc.WriteString(`</w:body></w:document>`)
	if _, err := w.Write([]byte(doc.String())); err != nil {
		t.Fatalf("write document.xml: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestTextFromBytes_DocxFromZipMime(t *testing.T) {
	data := buildDocx(t, "First paragraph", "Second paragraph")

	text, err := TextFromBytes(context.Background(), data, "application/zip", "proposal.docx")
	if err != nil {
		t.Fatalf("expected docx to extract from zip mime, got error: %v", err)
	}
	if !strings.Contains(text, "First paragraph") || !strings.Contains(text, "Second paragraph") {
		t.Fatalf("unexpected extracted text: %q", text)
	}
}

func TestTextFromBytes_PlainText(t *testing.T) {
	text, err := TextFromBytes(context.Background(), []byte("  hello spec \n"), "text/plain; charset=utf-8", "spec.txt")
	if err != nil {
		t.Fatalf("extract txt: %v", err)
	}
	if text != "hello spec" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestTextFromBytes_OctetStreamFallsBackToExtension(t *testing.T) {
	text, err := TextFromBytes(context.Background(), []byte("raw notes"), "application/octet-stream", "notes.txt")
	if err != nil {
		t.Fatalf("extract octet-stream txt: %v", err)
	}
	if text != "raw notes" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestTextFromBytes_RealZipRejected(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("notes.txt")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	_, err = TextFromBytes(context.Background(), buf.Bytes(), "application/zip", "notes.zip")
	if err == nil {
		t.Fatal("expected unsupported mime error for zip")
	}
	if !strings.Contains(err.Error(), "unsupported mime type: application/zip") {
		t.Fatalf("unexpected error: %v", err)
	}
}
