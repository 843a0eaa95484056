package candidates

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"code.sajari.com/docconv"
	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// ErrEmptyText is returned when a document parses but holds no text.
var ErrEmptyText = errors.New("document contains no extractable text")

// Extractor turns raw resume bytes into plain text.
type Extractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, data []byte) (string, error)

func (f ExtractorFunc) ExtractText(ctx context.Context, data []byte) (string, error) {
	return f(ctx, data)
}

const (
	mimePDF  = "application/pdf"
	mimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeODT  = "application/vnd.oasis.opendocument.text"
	mimeDoc  = "application/msword"
	mimeRTF  = "text/rtf"
)

// DocumentExtractor dispatches on the sniffed MIME type: PDF through
// ledongthuc/pdf, office formats through docconv, text as is.
type DocumentExtractor struct {
	logger *zap.Logger
}

func NewDocumentExtractor(logger *zap.Logger) *DocumentExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentExtractor{logger: logger}
}

func (e *DocumentExtractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	mt := mimetype.Detect(data)
	e.logger.Debug("extracting resume text", zap.String("mime", mt.String()), zap.Int("size", len(data)))

	var (
		text string
		err  error
	)
	switch {
	case mt.Is(mimePDF):
		text, err = pdfText(data)
	case mt.Is(mimeDocx), mt.Is(mimeODT), mt.Is(mimeDoc), mt.Is(mimeRTF):
		text, err = officeText(data, mt.String())
	case isText(mt):
		text = decodeText(data)
	default:
		return "", fmt.Errorf("unsupported resume format %s", mt.String())
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	return text, nil
}

func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "text/") {
			return true
		}
	}
	return false
}

// pdfText recovers from parser panics on malformed documents.
func pdfText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	buf := &bytes.Buffer{}
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

func officeText(data []byte, mimeType string) (string, error) {
	res, err := docconv.Convert(bytes.NewReader(data), mimeType, false)
	if err != nil {
		return "", fmt.Errorf("convert document: %w", err)
	}
	return res.Body, nil
}

var bom = []byte{0xEF, 0xBB, 0xBF}

// decodeText reads bytes as UTF-8, dropping a byte order mark and replacing invalid sequences.
func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, bom)
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "�")
}
