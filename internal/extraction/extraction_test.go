package extraction

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// buildPDF assembles a single-page PDF with a correct xref table.
func buildPDF(t *testing.T, text string) []byte {
	t.Helper()
	content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, offset := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offset)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func buildWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	book := excelize.NewFile()
	defer book.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, book.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := book.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDetectType(t *testing.T) {
	pdfPayload := buildPDF(t, "Grading policy")

	docType, err := DetectType("Syllabus.PDF", pdfPayload, TypePDF, TypeTXT)
	require.NoError(t, err)
	require.Equal(t, TypePDF, docType)

	docType, err = DetectType("notes.txt", []byte("Homework 20%"), TypePDF, TypeTXT)
	require.NoError(t, err)
	require.Equal(t, TypeTXT, docType)

	docType, err = DetectType("grades.csv", []byte("name,score\nHW1,9\n"), TypePDF, TypeCSV)
	require.NoError(t, err)
	require.Equal(t, TypeCSV, docType)

	docType, err = DetectType("grades.xlsx", buildWorkbook(t, [][]interface{}{{"HW1", 9}}), TypeXLSX)
	require.NoError(t, err)
	require.Equal(t, TypeXLSX, docType)
}

func TestDetectTypeRejects(t *testing.T) {
	_, err := DetectType("syllabus.docx", []byte("text"), TypePDF, TypeTXT)
	require.ErrorIs(t, err, ErrUnsupportedType)

	_, err = DetectType("syllabus.pdf", []byte("plain text pretending"), TypePDF, TypeTXT)
	require.ErrorIs(t, err, ErrUnsupportedType)

	_, err = DetectType("grades.csv", buildPDF(t, "x"), TypePDF)
	require.ErrorIs(t, err, ErrUnsupportedType)

	_, err = DetectType("", nil, TypePDF)
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestExtractPDF(t *testing.T) {
	text, err := NewExtractor(0).Extract(TypePDF, buildPDF(t, "Homework weight 20"))
	require.NoError(t, err)
	require.Contains(t, text, "Homework weight 20")
}

func TestExtractInvalidPDF(t *testing.T) {
	_, err := NewExtractor(0).Extract(TypePDF, []byte("%PDF-1.4\nbroken"))
	require.ErrorIs(t, err, ErrUnreadable)

	_, err = NewExtractor(0).Extract(TypeXLSX, []byte("not a zip"))
	require.ErrorIs(t, err, ErrUnreadable)
}

func TestExtractTextFallsBackToLatin1(t *testing.T) {
	text, err := NewExtractor(0).Extract(TypeTXT, []byte("Caf\xe9 Participation 10"))
	require.NoError(t, err)
	require.Equal(t, "Café Participation 10", text)

	text, err = NewExtractor(0).Extract(TypeTXT, []byte("\xef\xbb\xbfQuizzes 15"))
	require.NoError(t, err)
	require.Equal(t, "Quizzes 15", text)
}

func TestExtractSpreadsheet(t *testing.T) {
	payload := buildWorkbook(t, [][]interface{}{
		{"Assignment", "Score", "Out of"},
		{"HW1", 9, 10},
		{"Midterm", 81.5, 100},
	})

	text, err := NewExtractor(0).Extract(TypeXLSX, payload)
	require.NoError(t, err)
	require.Contains(t, text, "# Sheet1\n")
	require.Contains(t, text, "Assignment\tScore\tOut of\n")
	require.Contains(t, text, "HW1\t9\t10\n")
	require.Contains(t, text, "Midterm\t81.5\t100\n")
}

func TestExtractEmptyDocument(t *testing.T) {
	_, err := NewExtractor(0).Extract(TypeTXT, []byte("  \n\t "))
	require.ErrorIs(t, err, ErrNoText)

	_, err = NewExtractor(0).Extract(DocumentType("doc"), []byte("x"))
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("é", 30)

	out, err := NewExtractor(10).Extract(TypeTXT, []byte(long))
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("é", 10)+"\n[... text truncated for length ...]", out)

	require.Equal(t, "short", Truncate("short", 10))
	require.Equal(t, long, Truncate(long, 0))
}
