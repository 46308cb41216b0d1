package model

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"visamate/types"
)

// pdfScanLimit bounds the raw-byte fallback scan.
const pdfScanLimit = 50000

// minExtractLength is the minimum number of recovered characters for a PDF
// extraction to count as successful.
const minExtractLength = 50

var (
	textObjectRe    = regexp.MustCompile(`(?s)BT(.*?)ET`)
	literalStringRe = regexp.MustCompile(`\(((?:\\.|[^\\()])*)\)`)
	readableRunRe   = regexp.MustCompile(`[A-Za-z0-9\s]{20,}`)
	spaceRe         = regexp.MustCompile(`\s+`)
)

var pdfEscapes = strings.NewReplacer(
	`\(`, "(",
	`\)`, ")",
	`\\`, `\`,
	`\n`, "\n",
	`\r`, " ",
	`\t`, " ",
)

// ExtractText recovers plain text from an uploaded file. Plain text is a
// direct decode; the PDF branch is best effort and will under-extract files
// that encode text as images. Callers must treat failure as recoverable.
func ExtractText(data []byte, fileType types.FileType) (string, error) {
	switch fileType {
	case types.FileText:
		text := strings.TrimSpace(strings.ToValidUTF8(string(data), " "))
		if text == "" {
			return "", types.NewFault(types.KindExtractionFailure, "no text content found in file")
		}
		return text, nil
	case types.FilePDF:
		return extractPDF(data)
	default:
		return "", types.NewFault(types.KindExtractionFailure, "only PDF and TXT files are supported")
	}
}

// extractPDF first asks pdfcpu for the decompressed page content streams and
// scrapes text from those. When pdfcpu cannot read the file at all it falls
// back to scanning the leading raw bytes, which still recovers text from
// simple uncompressed PDFs.
func extractPDF(data []byte) (string, error) {
	var text string
	if streams, err := pdfContentStreams(data); err == nil {
		text = scrapeText(streams)
	}
	if text == "" {
		limit := len(data)
		if limit > pdfScanLimit {
			limit = pdfScanLimit
		}
		text = scrapeText(data[:limit])
	}

	if len(text) < minExtractLength {
		return "", types.NewFault(types.KindExtractionFailure,
			"could not extract readable text from PDF, ensure it contains text and not just images")
	}
	return text, nil
}

func pdfContentStreams(data []byte) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "visamate-pdf-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	conf := api.LoadConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed

	if err := api.ExtractContent(bytes.NewReader(data), tmpDir, "upload", nil, conf); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		b, err := os.ReadFile(filepath.Join(tmpDir, entry.Name()))
		if err != nil {
			return nil, err
		}
		buf.Write(b)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// scrapeText pulls plausible text out of PDF syntax: literal strings inside
// BT/ET text objects first, then long printable runs anywhere in the input.
func scrapeText(data []byte) string {
	var sb strings.Builder

	for _, m := range textObjectRe.FindAllSubmatch(data, -1) {
		block := m[1]
		lits := literalStringRe.FindAllSubmatch(block, -1)
		if len(lits) > 0 {
			for _, lit := range lits {
				sb.WriteString(pdfEscapes.Replace(string(lit[1])))
				sb.WriteByte(' ')
			}
			continue
		}
		clean := strings.TrimSpace(stripNonPrintable(string(block)))
		if len(clean) > 10 {
			sb.WriteString(clean)
			sb.WriteByte(' ')
		}
	}

	for _, run := range readableRunRe.FindAll(data, -1) {
		s := string(run)
		if strings.Contains(s, "stream") {
			continue
		}
		sb.WriteString(s)
		sb.WriteByte(' ')
	}

	return strings.TrimSpace(spaceRe.ReplaceAllString(sb.String(), " "))
}

func stripNonPrintable(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return ' '
		}
		return r
	}, s)
}
