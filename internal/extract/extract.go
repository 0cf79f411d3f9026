// Package extract implements ContentExtractor (spec.md §4.5): turning raw
// plain/markdown/HTML/PDF/DOCX bodies into paragraph-chunked text ready for
// KnowledgeSync.
package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"ideagraph/internal/apperr"

	"github.com/microcosm-cc/bluemonday"
)

// Kind identifies the source body format.
type Kind string

const (
	KindPlain    Kind = "text/plain"
	KindMarkdown Kind = "text/markdown"
	KindHTML     Kind = "text/html"
	KindPDF      Kind = "application/pdf"
	KindDOCX     Kind = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// maxBodyBytes is the hard cap on input size (spec.md §4.5 "Max body 25 MB").
const maxBodyBytes = 25 * 1024 * 1024

// maxChunkChars bounds a single chunk (spec.md §4.5 "chunk ... into pieces
// of <=50 000 chars").
const maxChunkChars = 50_000

// Chunk is one piece of extracted, chunked text ready for indexing.
type Chunk struct {
	Index int
	Title string
	Text  string
}

// htmlPolicy strips every tag (and all content of script/style/comment
// nodes) via bluemonday's structural HTML parser — never regex across tag
// boundaries, so it cannot be ReDoS'd the way a naive strip-tags regex can
// (spec.md §4.5).
var htmlPolicy = bluemonday.StrictPolicy()

var whitespaceRun = regexp.MustCompile(`[ \t\r\f\v]+`)
var blankLines = regexp.MustCompile(`\n{3,}`)

// PageExtractor and ParagraphExtractor are injected seams for formats this
// module cannot parse with anything in the dependency set (no PDF/DOCX
// parser exists anywhere in the available library surface — see DESIGN.md).
// A caller wires a real implementation; in its absence the extractor falls
// back to treating the raw bytes as plain text.
type PageExtractor func(body []byte) ([]string, error)
type ParagraphExtractor func(body []byte) ([]string, error)

type Extractor struct {
	ExtractPDFPages   PageExtractor
	ExtractDOCXParas  ParagraphExtractor
}

func New() *Extractor {
	return &Extractor{}
}

// Extract turns body into title-bearing chunks, dispatching on kind.
func (e *Extractor) Extract(kind Kind, body []byte, fileID, title string) ([]Chunk, error) {
	if len(body) > maxBodyBytes {
		return nil, apperr.New(apperr.KindPermanent, fmt.Sprintf("content exceeds max body size of %d bytes", maxBodyBytes))
	}

	var text string
	var err error

	switch kind {
	case KindPlain, KindMarkdown:
		text, err = decodeText(body)
	case KindHTML:
		text, err = extractHTML(body)
	case KindPDF:
		text, err = e.extractPDF(body)
	case KindDOCX:
		text, err = e.extractDOCX(body)
	default:
		return nil, apperr.New(apperr.KindPermanent, fmt.Sprintf("unsupported content kind %q", kind))
	}
	if err != nil {
		return nil, err
	}

	return chunkParagraphs(text, fileID, title), nil
}

func extractHTML(body []byte) (string, error) {
	text, err := decodeText(body)
	if err != nil {
		return "", err
	}
	sanitized := htmlPolicy.Sanitize(text)
	return collapseWhitespace(sanitized), nil
}

func (e *Extractor) extractPDF(body []byte) (string, error) {
	if e.ExtractPDFPages == nil {
		return decodeText(body)
	}
	pages, err := e.ExtractPDFPages(body)
	if err != nil {
		return "", fmt.Errorf("extract: pdf extraction failed: %w", err)
	}
	return strings.Join(pages, "\n\n"), nil
}

func (e *Extractor) extractDOCX(body []byte) (string, error) {
	if e.ExtractDOCXParas == nil {
		return decodeText(body)
	}
	paragraphs, err := e.ExtractDOCXParas(body)
	if err != nil {
		return "", fmt.Errorf("extract: docx extraction failed: %w", err)
	}
	return strings.Join(paragraphs, "\n\n"), nil
}

func collapseWhitespace(s string) string {
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// chunkParagraphs greedily fills chunks of <=maxChunkChars, never splitting
// a paragraph, per spec.md §4.5.
func chunkParagraphs(text string, fileID, title string) []Chunk {
	paragraphs := strings.Split(text, "\n\n")

	var chunks []string
	var current strings.Builder
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+2+len(p) > maxChunkChars {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		// A single paragraph longer than the cap is hard-split; this is the
		// rare pathological case, not the common path.
		for len(p) > maxChunkChars {
			chunks = append(chunks, p[:maxChunkChars])
			p = p[maxChunkChars:]
		}
		current.WriteString(p)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	if len(chunks) == 0 {
		chunks = []string{""}
	}

	result := make([]Chunk, len(chunks))
	for i, c := range chunks {
		chunkTitle := title
		if len(chunks) > 1 {
			chunkTitle = fmt.Sprintf("%s (Part %d/%d)", title, i+1, len(chunks))
		}
		result[i] = Chunk{Index: i, Title: chunkTitle, Text: c}
	}
	return result
}

// decodeText applies the UTF-8 -> UTF-16 -> latin-1 fallback chain
// (spec.md §4.5).
func decodeText(body []byte) (string, error) {
	if utf8.Valid(body) {
		return string(body), nil
	}
	if s, ok := decodeUTF16(body); ok {
		return s, nil
	}
	return decodeLatin1(body), nil
}

func decodeUTF16(body []byte) (string, bool) {
	if len(body)%2 != 0 || len(body) == 0 {
		return "", false
	}
	little := true
	offset := 0
	if len(body) >= 2 {
		switch {
		case body[0] == 0xFF && body[1] == 0xFE:
			little, offset = true, 2
		case body[0] == 0xFE && body[1] == 0xFF:
			little, offset = false, 2
		}
	}

	units := make([]uint16, 0, (len(body)-offset)/2)
	for i := offset; i+1 < len(body); i += 2 {
		if little {
			units = append(units, uint16(body[i])|uint16(body[i+1])<<8)
		} else {
			units = append(units, uint16(body[i+1])|uint16(body[i])<<8)
		}
	}

	var b strings.Builder
	for _, r := range utf16Decode(units) {
		b.WriteRune(r)
	}
	return b.String(), true
}

func utf16Decode(units []uint16) []rune {
	runes := make([]rune, 0, len(units))
	for i := 0; i < len(units); i++ {
		u := units[i]
		switch {
		case u >= 0xD800 && u <= 0xDBFF && i+1 < len(units) && units[i+1] >= 0xDC00 && units[i+1] <= 0xDFFF:
			r := (rune(u)-0xD800)<<10 | (rune(units[i+1]) - 0xDC00) + 0x10000
			runes = append(runes, r)
			i++
		default:
			runes = append(runes, rune(u))
		}
	}
	return runes
}

func decodeLatin1(body []byte) string {
	var b strings.Builder
	b.Grow(len(body))
	for _, c := range body {
		b.WriteRune(rune(c))
	}
	return b.String()
}
