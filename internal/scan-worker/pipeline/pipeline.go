// Package pipeline é o corpo de um job de varredura: abre a sessão, carrega a
// página, indexa, extrai propriedades e screenshots, roda OCR e matching, e
// grava as evidências da Task.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/compliance/matcher"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/ocr"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/scan-worker/browser"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/scan-worker/dedup"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/scan-worker/extractor"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/scan-worker/indexer"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/scan-worker/screenshot"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/logger"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/metrics"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/storage"
)

// Store é a persistência usada por todos os estágios
type Store interface {
	extractor.Store
	matcher.Store
	dedup.Store
	ListCompliances(ctx context.Context) ([]model.Compliance, error)
	CreateOCR(ctx context.Context, o *model.OCR) error
}

type Options struct {
	MaxDepth           int
	ScreenshotMaxBytes int
	OCRThreshold       float64
}

// Report resume uma execução bem-sucedida
type Report struct {
	Evidence   string
	Properties int
	Shots      int
	OCRs       int
	Matches    int
	Manifest   []ManifestEntry
}

type Pipeline struct {
	log      *zap.Logger
	launcher browser.Launcher
	store    Store
	files    storage.Store
	ocr      ocr.Recognizer
	matcher  *matcher.Matcher
	shots    *screenshot.Capturer
	dedup    *dedup.Deduplicator
	metrics  *metrics.Scan
	maxDepth int
}

func New(log *zap.Logger, launcher browser.Launcher, store Store, files storage.Store, rec ocr.Recognizer, opts Options, m *metrics.Scan) *Pipeline {
	return &Pipeline{
		log:      log,
		launcher: launcher,
		store:    store,
		files:    files,
		ocr:      rec,
		matcher:  matcher.New(log, opts.OCRThreshold),
		shots:    screenshot.New(log, opts.ScreenshotMaxBytes),
		dedup:    dedup.New(log, store),
		metrics:  m,
		maxDepth: opts.MaxDepth,
	}
}

// run carrega o estado de uma execução
type run struct {
	log   *zap.Logger
	task  *model.Task
	dir   string
	vocab []model.Compliance
	rep   *Report
}

// Run executa todos os estágios para a Task. A sessão de navegador é fechada
// exatamente uma vez, com sucesso ou erro. Zero matches não é falha.
func (p *Pipeline) Run(ctx context.Context, task *model.Task, attempt int) (*Report, error) {
	r := &run{
		log:  logger.WithTask(p.log, task, attempt),
		task: task,
		dir:  storage.EvidenceDir(task.ID, task.Bet.ID, task.CreatedAt),
		rep:  &Report{},
	}
	r.rep.Evidence = r.dir

	start := time.Now()
	sess, err := p.launcher.Launch(ctx)
	if err != nil {
		p.metrics.OnError("launch")
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			r.log.Warn("close browser session", zap.Error(cerr))
		}
	}()
	p.metrics.Observe("launch", start)

	if err := p.stage("load", func() error { return sess.Load(ctx, task.Bet.URL) }); err != nil {
		return nil, err
	}
	p.snapshot(ctx, r, sess)

	if err := p.stage("vocabulary", func() (err error) {
		r.vocab, err = p.store.ListCompliances(ctx)
		return err
	}); err != nil {
		return nil, err
	}

	var pm browser.PageMetrics
	if err := p.stage("metrics", func() (err error) {
		pm, err = sess.Metrics(ctx)
		return err
	}); err != nil {
		return nil, err
	}

	ix := indexer.New(r.log, model.Phrases(r.vocab))
	var filtered []browser.Element
	if err := p.stage("index", func() error {
		if _, err := ix.Scan(ctx, sess); err != nil {
			return err
		}
		var err error
		filtered, err = ix.Filter(ctx)
		return err
	}); err != nil {
		return nil, err
	}

	var res extractor.Result
	if err := p.stage("extract", func() (err error) {
		res, err = extractor.New(r.log, ix, p.store, p.maxDepth).Extract(ctx, task.ID, pm, filtered)
		return err
	}); err != nil {
		return nil, err
	}
	r.rep.Properties = len(res.Properties)

	var shots []screenshot.Shot
	if err := p.stage("screenshot", func() (err error) {
		shots, err = p.shots.GetScreenshots(ctx, res.Elements)
		return err
	}); err != nil {
		return nil, err
	}
	r.rep.Shots = len(shots)

	for n, shot := range shots {
		if err := p.processShot(ctx, r, n, res.Properties[shot.Index], shot); err != nil {
			p.metrics.OnError("ocr-unit")
			return nil, err
		}
	}

	if err := p.writeManifest(ctx, r); err != nil {
		r.log.Warn("write evidence manifest", zap.Error(err))
	}

	r.log.Info("scan finished",
		zap.Int("properties", r.rep.Properties),
		zap.Int("screenshots", r.rep.Shots),
		zap.Int("ocrs", r.rep.OCRs),
		zap.Int("matches", r.rep.Matches),
		zap.Duration("took", time.Since(start)),
	)
	return r.rep, nil
}

// stage mede o estágio e conta o erro pelo nome
func (p *Pipeline) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	p.metrics.Observe(name, start)
	if err != nil {
		p.metrics.OnError(name)
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// snapshot guarda initial.png e page.pdf; falha aqui não derruba a Task
func (p *Pipeline) snapshot(ctx context.Context, r *run, sess browser.Session) {
	shot, err := sess.Screenshot(ctx)
	if err == nil {
		_, err = p.files.Put(ctx, storage.Key(r.dir, "initial.png"), shot, "image/png")
	}
	if err != nil {
		r.log.Warn("initial screenshot not saved", zap.Error(err))
	}
	if _, err := sess.SavePageContent(ctx, p.files, storage.Key(r.dir, "page.pdf")); err != nil {
		r.log.Warn("page snapshot not saved", zap.Error(err))
	}
}

// processShot cria a unidade OCR do recorte, endereça a imagem pelo hash e roda
// OCR + matching. Só erros de persistência sobem; o resto pula o recorte.
// n é a ordem entre os recortes aceitos, então os arquivos vão de 0 a count-1.
func (p *Pipeline) processShot(ctx context.Context, r *run, n int, prop model.Property, shot screenshot.Shot) error {
	name := fmt.Sprintf("%d.png", n)
	log := r.log.With(zap.String("screenshot", name))

	path, err := p.files.Put(ctx, storage.Key(r.dir, name), shot.Data, "image/png")
	if err != nil {
		log.Warn("screenshot not stored, skipping", zap.Error(err))
		return nil
	}
	hash, err := screenshot.Hash(shot.Data)
	if err != nil {
		log.Warn("screenshot not decodable, skipping", zap.Error(err))
		return nil
	}

	unit := &model.OCR{TaskID: r.task.ID, Geometry: prop.Geometry}
	if err := p.store.CreateOCR(ctx, unit); err != nil {
		return fmt.Errorf("create ocr: %w", err)
	}
	r.rep.OCRs++
	r.rep.Manifest = append(r.rep.Manifest, newManifestEntry(name, path, prop.Geometry))

	img, err := p.dedup.Attach(ctx, hash, path, unit.ID)
	if err != nil {
		return fmt.Errorf("attach image: %w", err)
	}

	if img.Content == nil {
		lines, err := p.recognize(ctx, shot.Data)
		if errors.Is(err, model.ErrOCRService) {
			// fica sem conteúdo; o ocr-backfill tenta de novo
			p.metrics.OnError("ocr")
			log.Warn("ocr unavailable, image left for backfill", zap.Int64("image_id", img.ID), zap.Error(err))
			return nil
		}
		if err != nil {
			log.Warn("screenshot not normalized, skipping ocr", zap.Error(err))
			return nil
		}
		if err := p.store.SetImageContent(ctx, img.ID, lines); err != nil {
			return fmt.Errorf("store ocr content: %w", err)
		}
	}

	matched, err := p.matcher.Apply(ctx, p.store, unit.ID, r.vocab)
	if err != nil {
		return err
	}
	r.rep.Matches += len(matched)
	if p.metrics != nil {
		for _, c := range matched {
			p.metrics.Matches.WithLabelValues(string(c.Type)).Inc()
		}
	}
	return nil
}

func (p *Pipeline) recognize(ctx context.Context, data []byte) ([]string, error) {
	start := time.Now()
	defer p.metrics.Observe("ocr", start)

	norm, err := screenshot.Normalize(data)
	if err != nil {
		return nil, err
	}
	return p.ocr.Recognize(ctx, norm)
}
