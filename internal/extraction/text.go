// Package extraction pulls plain text out of syllabus and grade export
// documents so it can be handed to a language model.
package extraction

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

const (
	// DefaultMaxTextChars bounds the text forwarded to the model.
	DefaultMaxTextChars = 12000
	truncationMarker    = "\n[... text truncated for length ...]"
)

// Extractor converts document bytes to text.
type Extractor struct {
	maxChars int
}

// NewExtractor builds an extractor; maxChars <= 0 selects the default.
func NewExtractor(maxChars int) Extractor {
	if maxChars <= 0 {
		maxChars = DefaultMaxTextChars
	}
	return Extractor{maxChars: maxChars}
}

// Extract returns the document text, truncated to the configured length.
// A document without any non-blank text yields ErrNoText.
func (e Extractor) Extract(docType DocumentType, payload []byte) (string, error) {
	var (
		text string
		err  error
	)
	switch docType {
	case TypePDF:
		text, err = pdfText(payload)
	case TypeTXT, TypeCSV:
		text = decodeText(payload)
	case TypeXLSX:
		text, err = spreadsheetText(payload)
	default:
		return "", ErrUnsupportedType
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return Truncate(text, e.maxChars), nil
}

// Truncate cuts text to maxChars runes and appends the truncation marker.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxChars]) + truncationMarker
}

func pdfText(payload []byte) (text string, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: pdf: %v", ErrUnreadable, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return "", fmt.Errorf("%w: pdf: %v", ErrUnreadable, err)
	}

	parts := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: pdf page %d: %v", ErrUnreadable, i, err)
		}
		if strings.TrimSpace(content) != "" {
			parts = append(parts, content)
		}
	}
	return strings.Join(parts, "\n"), nil
}

// decodeText reads UTF-8 and falls back to Latin-1 for anything else.
func decodeText(payload []byte) string {
	payload = bytes.TrimPrefix(payload, []byte("\xef\xbb\xbf"))
	if utf8.Valid(payload) {
		return string(payload)
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(payload)
	if err != nil {
		return strings.ToValidUTF8(string(payload), "�")
	}
	return string(decoded)
}

func spreadsheetText(payload []byte) (string, error) {
	book, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: spreadsheet: %v", ErrUnreadable, err)
	}
	defer book.Close()

	var builder strings.Builder
	for _, sheet := range book.GetSheetList() {
		rows, err := book.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("%w: sheet %q: %v", ErrUnreadable, sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		fmt.Fprintf(&builder, "# %s\n", sheet)
		for _, row := range rows {
			line := strings.TrimRight(strings.Join(row, "\t"), "\t ")
			if line == "" {
				continue
			}
			builder.WriteString(line)
			builder.WriteString("\n")
		}
	}
	return builder.String(), nil
}
