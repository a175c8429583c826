// Package tactica is the facade over the ingest pipeline and the plan
// store: it ingests coaching PDFs and serves the resulting session plans.
package tactica

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cognicore/tactica/internal/llm"
	"github.com/cognicore/tactica/internal/logger"
	"github.com/cognicore/tactica/internal/vlmcache"
	"github.com/cognicore/tactica/pkg/tactica/analytics"
	"github.com/cognicore/tactica/pkg/tactica/config"
	"github.com/cognicore/tactica/pkg/tactica/decompose"
	"github.com/cognicore/tactica/pkg/tactica/enrich"
	"github.com/cognicore/tactica/pkg/tactica/imagestore"
	"github.com/cognicore/tactica/pkg/tactica/index"
	"github.com/cognicore/tactica/pkg/tactica/internalerr"
	"github.com/cognicore/tactica/pkg/tactica/maintenance"
	"github.com/cognicore/tactica/pkg/tactica/pipeline"
	"github.com/cognicore/tactica/pkg/tactica/schema"
	"github.com/cognicore/tactica/pkg/tactica/store"
	"github.com/cognicore/tactica/pkg/tactica/store/memstore"
	"github.com/cognicore/tactica/pkg/tactica/store/postgres"
	"github.com/cognicore/tactica/pkg/tactica/store/sqlite"
	"github.com/cognicore/tactica/pkg/tactica/vlm"
)

// Tactica is the main facade.
type Tactica struct {
	store    store.Store
	pipeline *pipeline.Pipeline
	enricher *enrich.Enricher
	images   imagestore.Store
	indexer  index.Indexer
	log      *logger.Logger
	closers  []func() error
}

// Options wires a Tactica instance. Images and Indexer are optional.
type Options struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Enricher *enrich.Enricher
	Images   imagestore.Store
	Indexer  index.Indexer
	Log      *logger.Logger
}

// New creates a Tactica instance with the given dependencies.
func New(opts Options) *Tactica {
	t := &Tactica{
		store:    opts.Store,
		pipeline: opts.Pipeline,
		enricher: opts.Enricher,
		images:   opts.Images,
		indexer:  opts.Indexer,
		log:      opts.Log,
	}
	if t.enricher == nil {
		t.enricher = enrich.Default()
	}
	if t.log == nil {
		t.log = logger.NewNop()
	}
	return t
}

// Open builds every collaborator from app configuration. On error,
// anything already opened is closed.
func Open(ctx context.Context, app config.App, log *logger.Logger) (_ *Tactica, err error) {
	if log == nil {
		log = logger.NewNop()
	}
	var closers []func() error
	defer func() {
		if err != nil {
			closeAll(closers)
		}
	}()

	comps, err := (&config.Loader{VocabularyPath: app.VocabularyPath, TaxonomyPath: app.TaxonomyPath}).Load()
	if err != nil {
		return nil, err
	}

	backend, closeCache, err := openVLM(ctx, app, log)
	if err != nil {
		return nil, err
	}
	if closeCache != nil {
		closers = append(closers, closeCache)
	}

	decomposer, closeDecomposer, err := openDecomposer(ctx, app.Decomposer, log)
	if err != nil {
		return nil, err
	}
	if closeDecomposer != nil {
		closers = append(closers, closeDecomposer)
	}

	st, err := openStore(ctx, app.Store)
	if err != nil {
		return nil, err
	}
	closers = append(closers, st.Close)

	images, err := openImages(ctx, app.Images, log)
	if err != nil {
		return nil, err
	}

	var indexer index.Indexer
	if app.Index.Enabled {
		b, err := index.OpenBleve(app.Index.Path, log)
		if err != nil {
			return nil, err
		}
		closers = append(closers, b.Close)
		indexer = b
	}

	p, err := pipeline.New(pipeline.Options{
		Config: pipeline.Config{
			MaxUploadBytes: app.MaxUploadBytes,
			IngestTimeout:  app.IngestTimeout,
			VLMConcurrency: app.VLM.Concurrency,
			IndexTimeout:   app.Index.Timeout,
			IndexWait:      app.Index.Wait,
		},
		Decomposer: decomposer,
		Analyzer:   vlm.NewAnalyzer(backend, log, app.VLM.PositionsEnabled),
		Extractor:  comps.Extractor,
		Enricher:   comps.Enricher,
		Store:      st,
		Images:     images,
		Indexer:    indexer,
		Log:        log,
	})
	if err != nil {
		return nil, err
	}

	t := New(Options{Store: st, Pipeline: p, Enricher: comps.Enricher, Images: images, Indexer: indexer, Log: log})
	t.closers = closers
	return t, nil
}

func openVLM(ctx context.Context, app config.App, log *logger.Logger) (vlm.Backend, func() error, error) {
	client, err := llm.NewClient(llm.Config{
		Provider: llm.Provider(app.VLM.Provider),
		BaseURL:  app.VLM.URL,
		APIKey:   app.VLM.APIKey,
		Model:    app.VLM.Model,
		Timeout:  app.VLM.Timeout,
	}, llm.WithRetryMaxAttempts(app.VLM.MaxAttempts))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	switch app.Cache.Backend {
	case "memory":
		return vlmcache.Wrap(client, vlmcache.NewMemory(app.Cache.MaxEntries), client.Model(), log), nil, nil
	case "redis":
		r, err := vlmcache.NewRedis(ctx, vlmcache.RedisConfig{
			Addr:     app.Cache.RedisAddr,
			Password: app.Cache.RedisPassword,
			DB:       app.Cache.RedisDB,
			Prefix:   "tactica:vlm:",
			TTL:      app.Cache.TTL,
		})
		if err != nil {
			return nil, nil, err
		}
		return vlmcache.Wrap(client, r, client.Model(), log), r.Close, nil
	}
	return client, nil, nil
}

func openDecomposer(ctx context.Context, cfg config.DecomposerConfig, log *logger.Logger) (decompose.Decomposer, func() error, error) {
	switch cfg.Backend {
	case "docai":
		d, err := decompose.NewDocAI(ctx, decompose.DocAIConfig{
			ProjectID:        cfg.DocAI.ProjectID,
			Location:         cfg.DocAI.Location,
			ProcessorID:      cfg.DocAI.ProcessorID,
			ProcessorVersion: cfg.DocAI.ProcessorVersion,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil
	case "bundle":
		if strings.TrimSpace(cfg.BundleDir) == "" {
			return nil, nil, fmt.Errorf("%w: decomposer.bundle_dir is required", internalerr.ErrInvalidConfig)
		}
		return &decompose.Bundle{Dir: cfg.BundleDir}, nil, nil
	}
	return &decompose.Sidecar{BaseURL: cfg.SidecarURL, OCR: cfg.OCR, Scale: 2, Log: log}, nil, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "postgres":
		return postgres.Open(ctx, cfg.DSN)
	case "memory":
		return memstore.New(), nil
	}
	return sqlite.OpenSQLite(ctx, cfg.DSN)
}

func openImages(ctx context.Context, cfg config.ImagesConfig, log *logger.Logger) (imagestore.Store, error) {
	if cfg.Backend == "s3" {
		return imagestore.NewS3(ctx, imagestore.S3Config{
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		}, log)
	}
	return imagestore.NewFS(cfg.Dir)
}

func closeAll(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close cleanly shuts down the Tactica instance.
func (t *Tactica) Close() error {
	if t.closers != nil {
		return closeAll(t.closers)
	}
	return t.store.Close()
}

// Ingest runs the pipeline on one PDF.
func (t *Tactica) Ingest(ctx context.Context, pdf []byte, filename string) (*pipeline.Result, error) {
	if t.pipeline == nil {
		return nil, fmt.Errorf("%w: no ingest pipeline configured", internalerr.ErrInvalidConfig)
	}
	return t.pipeline.Ingest(ctx, pdf, filename)
}

// ListSessions pages through stored plans, newest first.
func (t *Tactica) ListSessions(ctx context.Context, opts store.ListOptions) ([]store.PlanSummary, error) {
	return t.store.ListSessionPlans(ctx, opts)
}

// GetSession returns one plan with its drills.
func (t *Tactica) GetSession(ctx context.Context, id string) (schema.SessionPlan, error) {
	return t.store.GetSessionPlan(ctx, id)
}

// UpdateSession replaces a stored plan. Drills are re-enriched so their
// tactical context always reflects the edited text; drills without an id
// get a fresh one.
func (t *Tactica) UpdateSession(ctx context.Context, plan schema.SessionPlan) (schema.SessionPlan, []internalerr.Warning, error) {
	if !schema.ValidID(plan.ID) {
		return schema.SessionPlan{}, nil, fmt.Errorf("%w: session plan id %q", internalerr.ErrInvalidInput, plan.ID)
	}
	current, err := t.store.GetSessionPlan(ctx, plan.ID)
	if err != nil {
		return schema.SessionPlan{}, nil, err
	}
	plan = plan.Clone()
	plan.Source = current.Source
	warnings := t.enricher.EnrichPlan(&plan)
	schema.NewIDGenerator().AssignIDs(&plan)
	plan.Normalize()
	if err := t.store.UpdateSessionPlan(ctx, plan); err != nil {
		return schema.SessionPlan{}, nil, err
	}
	return plan, warnings, nil
}

// DeleteSession removes a plan, its stored diagrams and its page index
// entries. Only the store deletion is fatal.
func (t *Tactica) DeleteSession(ctx context.Context, id string) error {
	plan, err := t.store.GetSessionPlan(ctx, id)
	if err != nil {
		return err
	}
	if err := t.store.DeleteSessionPlan(ctx, id); err != nil {
		return err
	}
	if t.images != nil {
		for _, d := range plan.Drills {
			if d.ImageRef == nil {
				continue
			}
			if err := t.images.Delete(ctx, *d.ImageRef); err != nil {
				t.log.Warn("delete diagram failed", "plan", id, "ref", *d.ImageRef, "error", err)
			}
		}
	}
	if t.indexer != nil {
		if err := t.indexer.Delete(ctx, id); err != nil {
			t.log.Warn("delete index entries failed", "plan", id, "error", err)
		}
	}
	return nil
}

// Drills lists the drills of one plan in document order.
func (t *Tactica) Drills(ctx context.Context, planID string) ([]schema.DrillBlock, error) {
	return t.store.ListDrills(ctx, planID)
}

// FindDrills filters drills across plans by tactical context.
func (t *Tactica) FindDrills(ctx context.Context, filter store.DrillFilter) ([]store.DrillMatch, error) {
	return t.store.FindDrills(ctx, filter)
}

// Image returns the stored diagram behind a drill's image reference.
func (t *Tactica) Image(ctx context.Context, ref string) ([]byte, error) {
	if t.images == nil {
		return nil, fmt.Errorf("image %s: %w", ref, internalerr.ErrNotFound)
	}
	return t.images.Get(ctx, ref)
}

// Taxonomy returns the active classification tables.
func (t *Tactica) Taxonomy() enrich.Taxonomy {
	return t.enricher.Taxonomy()
}

// SearchHit is a page hit resolved to its session plan.
type SearchHit struct {
	PlanID     string  `json:"plan_id"`
	PlanTitle  string  `json:"plan_title"`
	PageNumber int     `json:"page_number"`
	Score      float64 `json:"score"`
}

// Search queries the page index and resolves hits to plans. Hits for
// plans that no longer exist are dropped.
func (t *Tactica) Search(ctx context.Context, query string, topK int) ([]SearchHit, error) {
	if t.indexer == nil {
		return nil, internalerr.New(internalerr.KindIndexing, "search", errors.New("page index disabled"))
	}
	hits, err := t.indexer.Search(ctx, query, topK)
	if err != nil {
		return nil, internalerr.New(internalerr.KindIndexing, "search", err)
	}
	titles := make(map[string]string)
	missing := make(map[string]bool)
	out := make([]SearchHit, 0, len(hits))
	for _, h := range hits {
		if missing[h.DocumentID] {
			continue
		}
		title, ok := titles[h.DocumentID]
		if !ok {
			plan, err := t.store.GetSessionPlan(ctx, h.DocumentID)
			if errors.Is(err, internalerr.ErrNotFound) {
				missing[h.DocumentID] = true
				continue
			}
			if err != nil {
				return nil, err
			}
			title = plan.Metadata.Title
			titles[h.DocumentID] = title
		}
		out = append(out, SearchHit{PlanID: h.DocumentID, PlanTitle: title, PageNumber: h.PageNumber, Score: h.Score})
	}
	return out, nil
}

// Stats aggregates tactical counts over every stored plan.
func (t *Tactica) Stats(ctx context.Context) (analytics.Stats, error) {
	a := analytics.NewAnalyzer()
	for offset := 0; ; offset += store.DefaultListLimit {
		page, err := t.store.ListSessionPlans(ctx, store.ListOptions{Limit: store.DefaultListLimit, Offset: offset})
		if err != nil {
			return analytics.Stats{}, err
		}
		for _, p := range page {
			plan, err := t.store.GetSessionPlan(ctx, p.ID)
			if errors.Is(err, internalerr.ErrNotFound) {
				continue
			}
			if err != nil {
				return analytics.Stats{}, err
			}
			a.Process(plan)
		}
		if len(page) < store.DefaultListLimit {
			return a.Snapshot(), nil
		}
	}
}

// Reenrich reclassifies stored drills with the active taxonomy.
func (t *Tactica) Reenrich(ctx context.Context, dryRun bool) (maintenance.Result, error) {
	c := &maintenance.Cleaner{Store: t.store, Enricher: t.enricher, Log: t.log, DryRun: dryRun}
	return c.Clean(ctx)
}
