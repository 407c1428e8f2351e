package extraction

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DocumentType names a supported document format.
type DocumentType string

const (
	TypePDF  DocumentType = "pdf"
	TypeTXT  DocumentType = "txt"
	TypeXLSX DocumentType = "xlsx"
	TypeCSV  DocumentType = "csv"
)

var (
	// ErrUnsupportedType indicates the extension is not allowed or the
	// content does not look like the extension claims.
	ErrUnsupportedType = errors.New("unsupported document type")
	// ErrNoText indicates a readable document that yielded no text.
	ErrNoText = errors.New("no text could be extracted from the document")
	// ErrUnreadable indicates a document whose structure could not be parsed.
	ErrUnreadable = errors.New("document could not be read")
)

// DetectType resolves the document type from the filename extension and
// confirms it by sniffing the payload. Only types listed in allowed are
// accepted.
func DetectType(filename string, payload []byte, allowed ...DocumentType) (DocumentType, error) {
	ext := DocumentType(strings.TrimPrefix(strings.ToLower(filepath.Ext(strings.TrimSpace(filename))), "."))

	permitted := false
	for _, candidate := range allowed {
		if candidate == ext {
			permitted = true
			break
		}
	}
	if !permitted {
		return "", ErrUnsupportedType
	}

	mime := mimetype.Detect(payload)
	if !contentMatches(ext, mime) {
		return "", ErrUnsupportedType
	}
	return ext, nil
}

func contentMatches(docType DocumentType, mime *mimetype.MIME) bool {
	switch docType {
	case TypePDF:
		return mime.Is("application/pdf")
	case TypeXLSX:
		// xlsx is a zip container; some writers produce archives the sniffer
		// only recognises as generic zip
		return mime.Is("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet") || mime.Is("application/zip")
	case TypeTXT, TypeCSV:
		for m := mime; m != nil; m = m.Parent() {
			if strings.HasPrefix(m.String(), "text/") {
				return true
			}
		}
		return false
	default:
		return false
	}
}
