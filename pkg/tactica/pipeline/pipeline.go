// Package pipeline runs one ingest request end to end: decomposition,
// diagram analysis, drill extraction, enrichment, persistence and
// best-effort indexing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/tactica/internal/logger"
	"github.com/cognicore/tactica/pkg/tactica/decompose"
	"github.com/cognicore/tactica/pkg/tactica/enrich"
	"github.com/cognicore/tactica/pkg/tactica/extract"
	"github.com/cognicore/tactica/pkg/tactica/imagestore"
	"github.com/cognicore/tactica/pkg/tactica/index"
	"github.com/cognicore/tactica/pkg/tactica/internalerr"
	"github.com/cognicore/tactica/pkg/tactica/schema"
	"github.com/cognicore/tactica/pkg/tactica/store"
	"github.com/cognicore/tactica/pkg/tactica/vlm"
)

// Config bounds a single ingest.
type Config struct {
	MaxUploadBytes int64
	IngestTimeout  time.Duration
	VLMConcurrency int
	IndexTimeout   time.Duration
	IndexWait      time.Duration
}

// DefaultConfig mirrors the service defaults.
func DefaultConfig() Config {
	return Config{
		MaxUploadBytes: 50 << 20,
		IngestTimeout:  300 * time.Second,
		VLMConcurrency: 2,
		IndexTimeout:   120 * time.Second,
		IndexWait:      5 * time.Second,
	}
}

// IndexStatus records the outcome of the best-effort indexing stage.
type IndexStatus string

const (
	IndexDisabled IndexStatus = "disabled"
	IndexPending  IndexStatus = "pending"
	IndexDone     IndexStatus = "indexed"
	IndexFailed   IndexStatus = "failed"
)

// Result is returned for every successful ingest.
type Result struct {
	Plan        schema.SessionPlan    `json:"session_plan"`
	Indexed     bool                  `json:"indexed"`
	IndexStatus IndexStatus           `json:"index_status"`
	Warnings    []internalerr.Warning `json:"warnings"`
	Images      int                   `json:"images"`
	Diagrams    int                   `json:"diagrams"`
	Degraded    int                   `json:"degraded"`
}

// Options wires the pipeline's collaborators. Images and Indexer are
// optional.
type Options struct {
	Config     Config
	Decomposer decompose.Decomposer
	Analyzer   *vlm.Analyzer
	Extractor  *extract.Extractor
	Enricher   *enrich.Enricher
	Store      store.Store
	Images     imagestore.Store
	Indexer    index.Indexer
	IDs        *schema.IDGenerator
	Log        *logger.Logger
}

// Pipeline is safe for concurrent ingests.
type Pipeline struct {
	cfg        Config
	decomposer decompose.Decomposer
	analyzer   *vlm.Analyzer
	extractor  *extract.Extractor
	enricher   *enrich.Enricher
	store      store.Store
	images     imagestore.Store
	indexer    index.Indexer
	ids        *schema.IDGenerator
	log        *logger.Logger
}

// New validates opts and fills defaults.
func New(opts Options) (*Pipeline, error) {
	if opts.Decomposer == nil || opts.Analyzer == nil || opts.Store == nil {
		return nil, fmt.Errorf("%w: pipeline needs a decomposer, analyzer and store", internalerr.ErrInvalidConfig)
	}
	cfg := opts.Config
	def := DefaultConfig()
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = def.MaxUploadBytes
	}
	if cfg.IngestTimeout <= 0 {
		cfg.IngestTimeout = def.IngestTimeout
	}
	if cfg.VLMConcurrency <= 0 {
		cfg.VLMConcurrency = def.VLMConcurrency
	}
	if cfg.IndexTimeout <= 0 {
		cfg.IndexTimeout = def.IndexTimeout
	}
	if cfg.IndexWait < 0 {
		cfg.IndexWait = 0
	}
	p := &Pipeline{
		cfg:        cfg,
		decomposer: opts.Decomposer,
		analyzer:   opts.Analyzer,
		extractor:  opts.Extractor,
		enricher:   opts.Enricher,
		store:      opts.Store,
		images:     opts.Images,
		indexer:    opts.Indexer,
		ids:        opts.IDs,
		log:        opts.Log,
	}
	if p.extractor == nil {
		p.extractor = extract.NewExtractor(extract.DefaultVocabulary())
	}
	if p.enricher == nil {
		p.enricher = enrich.Default()
	}
	if p.ids == nil {
		p.ids = schema.NewIDGenerator()
	}
	if p.log == nil {
		p.log = logger.NewNop()
	}
	return p, nil
}

// Ingest turns one PDF into a persisted session plan. It fails only when
// the input is rejected, decomposition or persistence fails, or the
// deadline passes before the plan is committed.
func (p *Pipeline) Ingest(ctx context.Context, pdf []byte, filename string) (*Result, error) {
	if int64(len(pdf)) > p.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%s: %d bytes > %d: %w", filename, len(pdf), p.cfg.MaxUploadBytes, internalerr.ErrOversized)
	}
	if err := decompose.CheckPDF(pdf); err != nil {
		return nil, internalerr.New(internalerr.KindDecomposition, "check "+filename, err)
	}
	log := p.log.With("file", filename)
	start := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, p.cfg.IngestTimeout)
	defer cancel()

	doc, err := p.decomposer.Decompose(runCtx, pdf, filename)
	if err != nil {
		return nil, p.stageError(runCtx, internalerr.KindDecomposition, "decompose", err)
	}
	log.Info("document decomposed", "pages", doc.PageCount, "images", len(doc.Images))

	diagrams, err := p.analyze(runCtx, doc.Images)
	if err != nil {
		return nil, p.stageError(runCtx, internalerr.KindTimeout, "analyze images", err)
	}

	res := &Result{Images: len(doc.Images)}
	for _, d := range diagrams {
		if d.IsDiagram {
			res.Diagrams++
		}
		if d.Degraded {
			res.Degraded++
		}
	}
	if res.Degraded > 0 {
		res.Warnings = append(res.Warnings, internalerr.Warn(internalerr.KindVLM,
			"%d of %d image analyses returned degraded results", res.Degraded, len(diagrams)))
	}
	log.Info("images analyzed", "images", res.Images, "diagrams", res.Diagrams, "degraded", res.Degraded)

	plan, warns := p.extractor.ExtractPlan(doc.Markdown, filename, doc.PageCount)
	res.Warnings = append(res.Warnings, warns...)
	plan.ID = p.ids.New()
	vlm.Merge(plan.Drills, diagrams, nil)
	stored, warns := p.storeImages(runCtx, plan.ID, doc.Images, plan.Drills)
	res.Warnings = append(res.Warnings, warns...)
	res.Warnings = append(res.Warnings, p.enricher.EnrichPlan(&plan)...)
	p.ids.AssignIDs(&plan)
	plan.Normalize()
	log.Info("session plan built", "plan", plan.ID, "drills", len(plan.Drills))

	if err := runCtx.Err(); err != nil {
		p.discardImages(stored)
		return nil, p.stageError(runCtx, internalerr.KindTimeout, "before commit", err)
	}
	if err := p.store.SaveSessionPlan(runCtx, plan); err != nil {
		p.discardImages(stored)
		return nil, p.stageError(runCtx, internalerr.KindPersistence, "save session plan", err)
	}
	log.Info("session plan committed", "plan", plan.ID, "elapsed", time.Since(start).Round(time.Millisecond))

	res.Plan = plan
	res.IndexStatus, err = p.index(ctx, plan.ID, indexPages(doc, diagrams))
	res.Indexed = res.IndexStatus == IndexDone
	if err != nil {
		res.Warnings = append(res.Warnings, internalerr.Warn(internalerr.KindIndexing, "%v", err))
	}
	if res.Warnings == nil {
		res.Warnings = []internalerr.Warning{}
	}
	return res, nil
}

// stageError wraps err with kind, reporting a timeout instead when the
// run deadline caused it.
func (p *Pipeline) stageError(runCtx context.Context, kind internalerr.Kind, op string, err error) error {
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return internalerr.New(internalerr.KindTimeout, op, fmt.Errorf("ingest deadline of %s exceeded: %w", p.cfg.IngestTimeout, err))
	}
	return internalerr.New(kind, op, err)
}

// analyze runs both VLM passes per image on a bounded pool. Results are
// stored by image position so completion order never matters.
func (p *Pipeline) analyze(ctx context.Context, images []decompose.Image) ([]schema.DiagramInfo, error) {
	results := make([]schema.DiagramInfo, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.VLMConcurrency)
	for i, img := range images {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.analyzer.Analyze(gctx, img.PNG, img.Key, img.Index, img.Page)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// storeImages uploads the diagrams that Merge assigned to drills and
// swaps each drill's image key for the stored reference. Unassigned
// diagrams are never uploaded. A failed upload leaves the drill without an
// image reference. Without an image store drills keep the image key.
func (p *Pipeline) storeImages(ctx context.Context, planID string, images []decompose.Image, drills []schema.DrillBlock) ([]string, []internalerr.Warning) {
	if p.images == nil {
		return nil, nil
	}
	byKey := make(map[string]decompose.Image, len(images))
	for _, img := range images {
		byKey[img.Key] = img
	}
	var (
		stored   []string
		warnings []internalerr.Warning
	)
	for i := range drills {
		if drills[i].ImageRef == nil {
			continue
		}
		key := *drills[i].ImageRef
		drills[i].ImageRef = nil
		img, ok := byKey[key]
		if !ok {
			p.log.Warn("assigned image missing", "image", key)
			continue
		}
		ref, err := p.images.Put(ctx, imagestore.ObjectKey(planID, key), img.PNG)
		if err != nil {
			p.log.Warn("image upload failed", "image", key, "error", err)
			warnings = append(warnings, internalerr.Warn(internalerr.KindPersistence, "image %s not stored: %v", key, err))
			continue
		}
		drills[i].ImageRef = schema.StringPtr(ref)
		stored = append(stored, ref)
	}
	return stored, warnings
}

// discardImages removes uploads belonging to a plan that was never
// committed.
func (p *Pipeline) discardImages(refs []string) {
	if p.images == nil || len(refs) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, ref := range refs {
		if err := p.images.Delete(ctx, ref); err != nil {
			p.log.Warn("image cleanup failed", "ref", ref, "error", err)
		}
	}
}

// index dispatches indexing after commit. The task runs under its own
// deadline detached from the caller; the caller waits at most IndexWait.
func (p *Pipeline) index(ctx context.Context, planID string, pages []index.Page) (IndexStatus, error) {
	if p.indexer == nil {
		return IndexDisabled, nil
	}
	done := make(chan error, 1)
	go func() {
		ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.IndexTimeout)
		defer cancel()
		err := p.indexer.Index(ictx, planID, pages)
		if err != nil {
			p.log.Warn("indexing failed", "plan", planID, "error", err)
		} else {
			p.log.Debug("indexing finished", "plan", planID, "pages", len(pages))
		}
		done <- err
	}()

	timer := time.NewTimer(p.cfg.IndexWait)
	defer timer.Stop()
	select {
	case err := <-done:
		if err != nil {
			return IndexFailed, internalerr.New(internalerr.KindIndexing, "index "+planID, err)
		}
		return IndexDone, nil
	case <-timer.C:
		return IndexPending, nil
	case <-ctx.Done():
		return IndexPending, nil
	}
}

// indexPages pairs each page's text with the descriptions of the diagrams
// found on it.
func indexPages(doc *decompose.Document, diagrams []schema.DiagramInfo) []index.Page {
	byPage := make(map[int][]string)
	for _, d := range diagrams {
		if d.IsDiagram && strings.TrimSpace(d.Description) != "" {
			byPage[d.Page] = append(byPage[d.Page], vlm.MergedDescription(d))
		}
	}
	pages := make([]index.Page, 0, len(doc.Pages))
	seen := make(map[int]bool)
	for _, pg := range doc.Pages {
		text := strings.TrimSpace(strings.Join(append([]string{pg.Text}, byPage[pg.Number]...), "\n"))
		pages = append(pages, index.Page{Number: pg.Number, Text: text})
		seen[pg.Number] = true
	}
	extra := make([]int, 0, len(byPage))
	for num := range byPage {
		if !seen[num] {
			extra = append(extra, num)
		}
	}
	sort.Ints(extra)
	for _, num := range extra {
		pages = append(pages, index.Page{Number: num, Text: strings.Join(byPage[num], "\n")})
	}
	if len(pages) == 0 && strings.TrimSpace(doc.Markdown) != "" {
		pages = append(pages, index.Page{Number: 1, Text: doc.Markdown})
	}
	return pages
}
