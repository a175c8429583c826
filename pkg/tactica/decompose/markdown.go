package decompose

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Bundle serves documents that were converted ahead of time. For an upload
// named "book.pdf" it reads Dir/book.md and the pictures under Dir/book/ in
// lexical order. Pages in the markdown may be separated by form feeds.
type Bundle struct {
	Dir string
}

func (b *Bundle) Decompose(ctx context.Context, pdf []byte, filename string) (*Document, error) {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if stem == "" || stem == "." {
		return nil, fmt.Errorf("bundle: invalid filename %q", filename)
	}
	raw, err := os.ReadFile(filepath.Join(b.Dir, stem+".md"))
	if err != nil {
		return nil, fmt.Errorf("bundle: %w", err)
	}
	markdown := strings.ReplaceAll(string(raw), "\r\n", "\n")

	doc := &Document{}
	for i, text := range strings.Split(markdown, "\f") {
		doc.Pages = append(doc.Pages, Page{Number: i + 1, Text: strings.TrimSpace(text)})
	}
	doc.Markdown = strings.ReplaceAll(markdown, "\f", "\n")
	doc.PageCount = max(CountPages(pdf), len(doc.Pages))

	entries, err := os.ReadDir(filepath.Join(b.Dir, stem))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("bundle: %w", err)
	}
	var names []string
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg", ".gif":
			if !e.IsDir() {
				names = append(names, e.Name())
			}
		}
	}
	sort.Strings(names)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(b.Dir, stem, name))
		if err != nil {
			return nil, fmt.Errorf("bundle: %w", err)
		}
		png, err := NormalizePNG(data, 1)
		if err != nil {
			return nil, fmt.Errorf("bundle: %s: %w", name, err)
		}
		i := len(doc.Images)
		doc.Images = append(doc.Images, Image{Key: ImageKey(i), Index: i, PNG: png})
	}
	return doc, nil
}
