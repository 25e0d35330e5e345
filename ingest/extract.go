package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/ledongthuc/pdf"
)

// UnsupportedFormatError indicates the uploaded file extension has no
// registered extractor.
type UnsupportedFormatError struct {
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported document format %q", e.Extension)
}

// SupportedExtensions lists the document formats ExtractText accepts.
var SupportedExtensions = []string{".pdf", ".docx", ".txt", ".md", ".html", ".htm"}

// ExtractText converts an uploaded document into plain text, dispatching on
// the file extension of filename. Unknown extensions return an
// UnsupportedFormatError so callers can reject the upload up front.
func ExtractText(filename string, content []byte) (string, error) {
	extension := strings.ToLower(filepath.Ext(filename))

	switch extension {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".txt", ".md":
		return string(content), nil
	case ".html", ".htm":
		return extractHTML(content)
	default:
		return "", &UnsupportedFormatError{Extension: extension}
	}
}

// extractPDF concatenates the text content of every page, joined with blank
// lines so the chunker sees page boundaries as whitespace.
func extractPDF(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("error opening PDF: %w", err)
	}

	var text strings.Builder
	for pageNumber := 1; pageNumber <= reader.NumPage(); pageNumber++ {
		page := reader.Page(pageNumber)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("error extracting text from page %d: %w", pageNumber, err)
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}

		if text.Len() > 0 {
			text.WriteString("\n\n")
		}
		text.WriteString(pageText)
	}
	return text.String(), nil
}

// docx body XML: paragraphs (w:p) contain runs (w:r) containing text
// elements (w:t). Only those three levels matter for plain text extraction.
type docxDocument struct {
	Body struct {
		Paragraphs []struct {
			Runs []struct {
				Texts []string `xml:"t"`
			} `xml:"r"`
		} `xml:"p"`
	} `xml:"body"`
}

// extractDOCX reads word/document.xml from the docx container and joins
// paragraph text with newlines.
func extractDOCX(content []byte) (string, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("error opening docx container: %w", err)
	}

	documentFile, err := zipReader.Open("word/document.xml")
	if err != nil {
		return "", fmt.Errorf("docx container has no document body: %w", err)
	}
	defer documentFile.Close()

	documentXML, err := io.ReadAll(documentFile)
	if err != nil {
		return "", fmt.Errorf("error reading document body: %w", err)
	}

	var document docxDocument
	if err := xml.Unmarshal(documentXML, &document); err != nil {
		return "", fmt.Errorf("error parsing document body: %w", err)
	}

	var paragraphs []string
	for _, paragraph := range document.Body.Paragraphs {
		var paragraphText strings.Builder
		for _, run := range paragraph.Runs {
			for _, text := range run.Texts {
				paragraphText.WriteString(text)
			}
		}
		if paragraphText.Len() > 0 {
			paragraphs = append(paragraphs, paragraphText.String())
		}
	}
	return strings.Join(paragraphs, "\n"), nil
}

// extractHTML converts the page to Markdown rather than stripping tags, so
// headings, lists, and links keep their structure in the indexed text.
func extractHTML(content []byte) (string, error) {
	markdown, err := htmltomarkdown.ConvertString(string(content))
	if err != nil {
		return "", fmt.Errorf("error converting HTML: %w", err)
	}
	return markdown, nil
}
