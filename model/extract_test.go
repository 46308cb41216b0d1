package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visamate/types"
)

func TestExtractText_PlainText(t *testing.T) {
	content := "Form I-129 is the petition for a nonimmigrant worker.\nIt is filed by the employer."

	text, err := ExtractText([]byte("  "+content+"  "), types.FileText)

	require.NoError(t, err)
	assert.Equal(t, content, text)
}

func TestExtractText_EmptyPlainText(t *testing.T) {
	_, err := ExtractText([]byte("   \n\t "), types.FileText)
	assert.Equal(t, types.KindExtractionFailure, types.KindOf(err))
}

func TestExtractText_UnsupportedType(t *testing.T) {
	_, err := ExtractText([]byte("GIF89a..."), types.FileType("image/gif"))
	assert.Equal(t, types.KindExtractionFailure, types.KindOf(err))
}

func TestExtractText_PDFTextObjects(t *testing.T) {
	// A malformed PDF that pdfcpu rejects exercises the raw-byte fallback
	// scan: literal strings inside BT/ET text objects are recovered.
	pdf := "%PDF-1.4\n" +
		"1 0 obj\n<< /Type /Page >>\n" +
		"BT /F1 12 Tf (The H-1B visa allows US employers to hire foreign workers) Tj ET\n" +
		"BT (in specialty occupations for an initial period of three years.) Tj ET\n" +
		"endobj\ntrailer\n"

	text, err := ExtractText([]byte(pdf), types.FilePDF)

	require.NoError(t, err)
	assert.Contains(t, text, "H-1B visa allows US employers")
	assert.Contains(t, text, "specialty occupations")
}

func TestExtractText_PDFImageOnly(t *testing.T) {
	// Binary-looking payload with no recoverable text.
	data := append([]byte("%PDF-1.4\n"), 0x00, 0x01, 0xff, 0xfe, 0x03, 0x04)

	_, err := ExtractText(data, types.FilePDF)

	assert.Equal(t, types.KindExtractionFailure, types.KindOf(err))
}

func TestScrapeText_ReadableRuns(t *testing.T) {
	data := []byte("garbage\x00\x01" +
		"Applicants must maintain valid immigration status at all times during their stay" +
		"\x02\x03more garbage")

	text := scrapeText(data)

	assert.Contains(t, text, "valid immigration status")
}

func TestScrapeText_SkipsStreamMarkers(t *testing.T) {
	data := []byte("stream aaaaaaaaaaaaaaaaaaaaaaaaaaaaa endstream")
	assert.Empty(t, scrapeText(data))
}

func TestScrapeText_NormalizesWhitespace(t *testing.T) {
	data := []byte("BT (Visa   categories\nand    their\trequirements explained here today) Tj ET")

	text := scrapeText(data)

	assert.False(t, strings.Contains(text, "  "))
	assert.Contains(t, text, "Visa categories")
}
