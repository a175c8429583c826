package decompose

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"github.com/cognicore/tactica/internal/logger"
)

// DocAIConfig selects a Document AI layout processor.
type DocAIConfig struct {
	ProjectID        string
	Location         string
	ProcessorID      string
	ProcessorVersion string
}

// DocAI decomposes PDFs with a Google Document AI processor. Headings come
// from the processor's document layout; pictures are cropped from the
// rendered page images using the detected visual elements.
type DocAI struct {
	cfg    DocAIConfig
	client *documentai.DocumentProcessorClient
	log    *logger.Logger
}

// NewDocAI dials the regional Document AI endpoint.
func NewDocAI(ctx context.Context, cfg DocAIConfig, log *logger.Logger, opts ...option.ClientOption) (*DocAI, error) {
	if log == nil {
		log = logger.NewNop()
	}
	cfg.Location = strings.TrimSpace(cfg.Location)
	if cfg.Location == "" {
		cfg.Location = "us"
	}
	if processorName(cfg) == "" {
		return nil, errors.New("docai: project and processor id required")
	}
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)
	opts = append([]option.ClientOption{option.WithEndpoint(endpoint)}, opts...)
	c, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}
	log.Info("document ai initialized", "endpoint", endpoint)
	return &DocAI{cfg: cfg, client: c, log: log}, nil
}

// Close releases the gRPC connection.
func (d *DocAI) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *DocAI) Decompose(ctx context.Context, pdf []byte, filename string) (*Document, error) {
	name := processorName(d.cfg)
	resp, err := d.client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  pdf,
				MimeType: "application/pdf",
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("documentai ProcessDocument: %w", err)
	}
	doc := buildDocument(resp.GetDocument(), d.log)
	if doc.PageCount == 0 {
		doc.PageCount = CountPages(pdf)
	}
	d.log.Info("document ai decomposition complete", "file", filename,
		"processor", name, "pages", doc.PageCount, "images", len(doc.Images))
	return doc, nil
}

func buildDocument(src *documentaipb.Document, log *logger.Logger) *Document {
	doc := &Document{}
	if src == nil {
		return doc
	}
	doc.PageCount = len(src.GetPages())

	var md strings.Builder
	for _, b := range src.GetDocumentLayout().GetBlocks() {
		writeBlock(&md, b)
	}

	for _, p := range src.GetPages() {
		pageNum := int(p.GetPageNumber())
		var text strings.Builder
		for _, para := range p.GetParagraphs() {
			t := strings.TrimSpace(textFromAnchor(src.GetText(), para.GetLayout().GetTextAnchor()))
			if t == "" {
				continue
			}
			text.WriteString(t)
			text.WriteString("\n")
		}
		pageText := strings.TrimSpace(text.String())
		doc.Pages = append(doc.Pages, Page{Number: pageNum, Text: pageText})

		for _, el := range pictureElements(p) {
			png, bbox, err := cropPicture(p, el)
			if err != nil {
				log.Warn("docai picture skipped", "page", pageNum, "error", err)
				continue
			}
			i := len(doc.Images)
			doc.Images = append(doc.Images, Image{Key: ImageKey(i), Index: i, Page: pageNum, BBox: bbox, PNG: png})
		}
	}

	doc.Markdown = strings.TrimSpace(md.String())
	if doc.Markdown == "" {
		// Processors without layout output still return paragraphs.
		var parts []string
		for _, p := range doc.Pages {
			if p.Text != "" {
				parts = append(parts, p.Text)
			}
		}
		doc.Markdown = strings.Join(parts, "\n\n")
	}
	return doc
}

// writeBlock renders a layout block as markdown. Heading types map to
// header levels; everything else becomes a paragraph.
func writeBlock(md *strings.Builder, b *documentaipb.Document_DocumentLayout_DocumentLayoutBlock) {
	if tb := b.GetTextBlock(); tb != nil {
		if text := strings.TrimSpace(tb.GetText()); text != "" {
			if level := headingLevel(tb.GetType()); level > 0 {
				md.WriteString(strings.Repeat("#", level) + " " + text + "\n\n")
			} else {
				md.WriteString(text + "\n\n")
			}
		}
		for _, child := range tb.GetBlocks() {
			writeBlock(md, child)
		}
		return
	}
	if lb := b.GetListBlock(); lb != nil {
		for _, entry := range lb.GetListEntries() {
			for _, child := range entry.GetBlocks() {
				if tb := child.GetTextBlock(); tb != nil && strings.TrimSpace(tb.GetText()) != "" {
					md.WriteString("- " + strings.TrimSpace(tb.GetText()) + "\n")
				}
			}
		}
		md.WriteString("\n")
	}
}

func headingLevel(blockType string) int {
	switch t := strings.ToLower(blockType); {
	case t == "title":
		return 1
	case t == "subtitle":
		return 2
	case strings.HasPrefix(t, "heading-"):
		var n int
		if _, err := fmt.Sscanf(t, "heading-%d", &n); err == nil && n >= 1 {
			return min(n+1, 6)
		}
		return 2
	}
	return 0
}

func pictureElements(p *documentaipb.Document_Page) []*documentaipb.Document_Page_VisualElement {
	var out []*documentaipb.Document_Page_VisualElement
	for _, el := range p.GetVisualElements() {
		switch strings.ToLower(el.GetType()) {
		case "image", "figure", "picture", "chart", "diagram":
			out = append(out, el)
		}
	}
	// Reading order: top to bottom, then left to right.
	sort.SliceStable(out, func(i, j int) bool {
		ti, li := topLeft(out[i])
		tj, lj := topLeft(out[j])
		if ti != tj {
			return ti < tj
		}
		return li < lj
	})
	return out
}

func topLeft(el *documentaipb.Document_Page_VisualElement) (float32, float32) {
	top, left := float32(1), float32(1)
	for _, v := range el.GetLayout().GetBoundingPoly().GetNormalizedVertices() {
		top = min(top, v.GetY())
		left = min(left, v.GetX())
	}
	return top, left
}

func cropPicture(p *documentaipb.Document_Page, el *documentaipb.Document_Page_VisualElement) ([]byte, *BBox, error) {
	if len(p.GetImage().GetContent()) == 0 {
		return nil, nil, errors.New("page image missing")
	}
	verts := el.GetLayout().GetBoundingPoly().GetNormalizedVertices()
	if len(verts) == 0 {
		return nil, nil, errors.New("visual element has no bounding box")
	}
	box := Rect{Left: 1, Top: 1}
	for _, v := range verts {
		box.Left = min(box.Left, float64(v.GetX()))
		box.Top = min(box.Top, float64(v.GetY()))
		box.Right = max(box.Right, float64(v.GetX()))
		box.Bottom = max(box.Bottom, float64(v.GetY()))
	}
	png, err := CropPNG(p.GetImage().GetContent(), box)
	if err != nil {
		return nil, nil, err
	}
	bbox := &BBox{Left: box.Left, Top: box.Top, Right: box.Right, Bottom: box.Bottom}
	if dim := p.GetDimension(); dim != nil {
		w, h := float64(dim.GetWidth()), float64(dim.GetHeight())
		bbox = &BBox{Left: box.Left * w, Top: box.Top * h, Right: box.Right * w, Bottom: box.Bottom * h}
	}
	return png, bbox, nil
}

func textFromAnchor(full string, anchor *documentaipb.Document_TextAnchor) string {
	if anchor == nil || len(anchor.GetTextSegments()) == 0 || full == "" {
		return ""
	}
	var b strings.Builder
	for _, seg := range anchor.GetTextSegments() {
		start := int(seg.GetStartIndex())
		end := min(int(seg.GetEndIndex()), len(full))
		if start < 0 {
			start = 0
		}
		if start >= end {
			continue
		}
		b.WriteString(full[start:end])
	}
	return b.String()
}

func processorName(cfg DocAIConfig) string {
	project := strings.TrimSpace(cfg.ProjectID)
	location := strings.TrimSpace(cfg.Location)
	processor := strings.TrimSpace(cfg.ProcessorID)
	if project == "" || location == "" || processor == "" {
		return ""
	}
	base := fmt.Sprintf("projects/%s/locations/%s/processors/%s", project, location, processor)
	if v := strings.TrimSpace(cfg.ProcessorVersion); v != "" {
		return base + "/processorVersions/" + v
	}
	return base
}
