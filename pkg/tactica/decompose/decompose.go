// Package decompose turns a PDF into markdown plus the raster images
// embedded in it.
package decompose

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
)

// BBox is an image's bounding box on its page in PDF points.
type BBox struct {
	Left   float64 `json:"l"`
	Top    float64 `json:"t"`
	Right  float64 `json:"r"`
	Bottom float64 `json:"b"`
}

// Image is one extracted picture, normalized to PNG.
type Image struct {
	Key   string
	Index int
	Page  int
	BBox  *BBox
	PNG   []byte
}

// Page is the plain text of one page, used for indexing.
type Page struct {
	Number int
	Text   string
}

// Document is the decomposer's output. Images are ordered by Index, which
// follows document order.
type Document struct {
	Markdown  string
	PageCount int
	Pages     []Page
	Images    []Image
}

// Decomposer converts PDF bytes to a Document.
type Decomposer interface {
	Decompose(ctx context.Context, pdf []byte, filename string) (*Document, error)
}

// ErrNotPDF reports input without a PDF header.
var ErrNotPDF = errors.New("decompose: input is not a PDF")

var pdfMagic = []byte("%PDF-")

// CheckPDF verifies the PDF header within the first KiB, where readers
// tolerate leading junk.
func CheckPDF(data []byte) error {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	if !bytes.Contains(head, pdfMagic) {
		return ErrNotPDF
	}
	return nil
}

var pageObjRE = regexp.MustCompile(`/Type\s*/Page[^s]`)

// CountPages estimates the page count from page objects in the raw file.
// Compressed object streams hide pages, so 0 means unknown.
func CountPages(pdf []byte) int {
	return len(pageObjRE.FindAllIndex(pdf, -1))
}

// ImageKey names the i-th extracted image.
func ImageKey(i int) string {
	return fmt.Sprintf("diagram_%03d", i)
}
