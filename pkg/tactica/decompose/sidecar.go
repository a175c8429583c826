package decompose

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cognicore/tactica/internal/logger"
)

// Sidecar calls an HTTP conversion service that wraps a layout-aware PDF
// converter. The service receives the PDF base64-encoded and returns
// markdown, per-page text and pictures rendered at the requested scale.
type Sidecar struct {
	BaseURL    string
	OCR        bool
	Scale      float64
	HTTPClient *http.Client
	Log        *logger.Logger
}

type sidecarRequest struct {
	Filename    string  `json:"filename"`
	PDF         string  `json:"pdf_base64"`
	OCR         bool    `json:"do_ocr"`
	ImagesScale float64 `json:"images_scale"`
}

type sidecarResponse struct {
	Markdown  string `json:"markdown"`
	PageCount int    `json:"page_count"`
	Pages     []struct {
		PageNumber int    `json:"page_number"`
		Text       string `json:"text"`
	} `json:"pages"`
	Images []struct {
		PageNumber int    `json:"page_number"`
		BBox       *BBox  `json:"bbox"`
		Data       string `json:"png_base64"`
	} `json:"images"`
	Error string `json:"error"`
}

func (s *Sidecar) Decompose(ctx context.Context, pdf []byte, filename string) (*Document, error) {
	if strings.TrimSpace(s.BaseURL) == "" {
		return nil, errors.New("decompose: sidecar base URL required")
	}
	scale := s.Scale
	if scale <= 0 {
		scale = DefaultScale
	}
	body, err := json.Marshal(sidecarRequest{
		Filename:    filename,
		PDF:         base64.StdEncoding.EncodeToString(pdf),
		OCR:         s.OCR,
		ImagesScale: scale,
	})
	if err != nil {
		return nil, err
	}
	endpoint := strings.TrimRight(s.BaseURL, "/") + "/v1/decompose"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("sidecar request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sidecar read: %w", err)
	}
	var payload sidecarResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		if resp.StatusCode >= http.StatusMultipleChoices {
			return nil, fmt.Errorf("sidecar: http %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("sidecar decode: %w", err)
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("sidecar: %s", payload.Error)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("sidecar: http %d", resp.StatusCode)
	}

	doc := &Document{Markdown: payload.Markdown, PageCount: payload.PageCount}
	for _, p := range payload.Pages {
		doc.Pages = append(doc.Pages, Page{Number: p.PageNumber, Text: p.Text})
	}
	for _, img := range payload.Images {
		data, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil {
			s.log().Warn("sidecar image skipped", "page", img.PageNumber, "error", err)
			continue
		}
		// Pictures arrive already rendered at scale; only the encoding is normalized.
		png, err := NormalizePNG(data, 1)
		if err != nil {
			s.log().Warn("sidecar image skipped", "page", img.PageNumber, "error", err)
			continue
		}
		i := len(doc.Images)
		doc.Images = append(doc.Images, Image{Key: ImageKey(i), Index: i, Page: img.PageNumber, BBox: img.BBox, PNG: png})
	}
	if doc.PageCount == 0 {
		doc.PageCount = max(len(doc.Pages), CountPages(pdf))
	}
	s.log().Info("sidecar decomposition complete", "file", filename,
		"pages", doc.PageCount, "images", len(doc.Images))
	return doc, nil
}

func (s *Sidecar) httpClient() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	return &http.Client{Timeout: 5 * time.Minute}
}

func (s *Sidecar) log() *logger.Logger {
	if s.Log != nil {
		return s.Log
	}
	return logger.NewNop()
}
