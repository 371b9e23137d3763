package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
)

// Options configura o navegador headless
type Options struct {
	Bin               string
	Headless          bool
	Viewport          model.Size
	NavigationTimeout time.Duration
	IdleWindow        time.Duration // janela sem requisições para considerar a rede ociosa
	UserAgent         string
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// fingerprintJS roda antes de qualquer script da página
const fingerprintJS = `() => {
	Object.defineProperty(navigator, 'webdriver', { get: () => false });
	Object.defineProperty(navigator, 'languages', { get: () => ['pt-BR', 'pt', 'en-US', 'en'] });
	Object.defineProperty(navigator, 'platform', { get: () => 'Win32' });
	Object.defineProperty(navigator, 'plugins', { get: () => [
		{ name: 'PDF Viewer', filename: 'internal-pdf-viewer' },
		{ name: 'Chrome PDF Viewer', filename: 'internal-pdf-viewer' },
		{ name: 'Chromium PDF Viewer', filename: 'internal-pdf-viewer' },
	] });
	window.chrome = window.chrome || { runtime: {} };
}`

// RodLauncher sobe um processo de navegador por sessão (perfil temporário próprio)
type RodLauncher struct {
	opts Options
	log  *zap.Logger
}

func NewRodLauncher(opts Options, log *zap.Logger) *RodLauncher {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.IdleWindow <= 0 {
		opts.IdleWindow = 500 * time.Millisecond
	}
	return &RodLauncher{opts: opts, log: log}
}

// Launch inicia uma sessão endurecida com viewport fixo e fingerprint falsificado
func (l *RodLauncher) Launch(ctx context.Context) (Session, error) {
	ln := launcher.New().
		Context(ctx).
		Headless(l.opts.Headless).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage").
		Set("no-first-run").
		Set("lang", "pt-BR").
		Delete("enable-automation")
	if l.opts.Bin != "" {
		ln = ln.Bin(l.opts.Bin)
	}

	controlURL, err := ln.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	s := &rodSession{launcher: ln, opts: l.opts, log: l.log}
	s.browser = rod.New().ControlURL(controlURL)
	if err := s.browser.Connect(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}
	s.page = page

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             int(l.opts.Viewport.Width),
		Height:            int(l.opts.Viewport.Height),
		DeviceScaleFactor: 1,
	}); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      l.opts.UserAgent,
		AcceptLanguage: "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7",
		Platform:       "Win32",
	}); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("set user agent: %w", err)
	}
	if _, err := page.EvalOnNewDocument(fingerprintJS); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("install fingerprint: %w", err)
	}
	return s, nil
}

type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	opts     Options
	log      *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// Load navega e espera a rede ficar ociosa; falha com ErrNavigation caso contrário
func (s *rodSession) Load(ctx context.Context, url string) error {
	nctx, cancel := context.WithTimeout(ctx, s.opts.NavigationTimeout)
	defer cancel()

	p := s.page.Context(nctx)
	wait := p.WaitRequestIdle(s.opts.IdleWindow, nil, nil, nil)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("%w: navigate %s: %v", model.ErrNavigation, url, err)
	}
	wait()
	if err := nctx.Err(); err != nil {
		return fmt.Errorf("%w: network never idle for %s: %v", model.ErrNavigation, url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("%w: load event for %s: %v", model.ErrNavigation, url, err)
	}
	return nil
}

func (s *rodSession) Elements(ctx context.Context) ([]Element, error) {
	els, err := s.page.Context(ctx).Elements("*")
	if err != nil {
		return nil, fmt.Errorf("query elements: %w", err)
	}
	return wrap(els), nil
}

const metricsJS = `() => {
	const d = document.documentElement, b = document.body || d;
	return {
		vw: window.innerWidth, vh: window.innerHeight,
		sx: window.scrollX, sy: window.scrollY,
		pw: Math.max(b.scrollWidth, d.scrollWidth, b.offsetWidth, d.offsetWidth, b.clientWidth, d.clientWidth),
		ph: Math.max(b.scrollHeight, d.scrollHeight, b.offsetHeight, d.offsetHeight, b.clientHeight, d.clientHeight),
	};
}`

func (s *rodSession) Metrics(ctx context.Context) (PageMetrics, error) {
	res, err := s.page.Context(ctx).Eval(metricsJS)
	if err != nil {
		return PageMetrics{}, fmt.Errorf("page metrics: %w", err)
	}
	v := res.Value
	return PageMetrics{
		Viewport:   model.Size{Width: v.Get("vw").Num(), Height: v.Get("vh").Num()},
		ScrollX:    v.Get("sx").Num(),
		ScrollY:    v.Get("sy").Num(),
		PageWidth:  v.Get("pw").Num(),
		PageHeight: v.Get("ph").Num(),
	}, nil
}

func (s *rodSession) Screenshot(ctx context.Context) ([]byte, error) {
	b, err := s.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("full page screenshot: %w", err)
	}
	return b, nil
}

// SavePageContent grava um PDF paginado da página atual
func (s *rodSession) SavePageContent(ctx context.Context, w ObjectWriter, key string) (string, error) {
	r, err := s.page.Context(ctx).PDF(&proto.PagePrintToPDF{PrintBackground: true})
	if err != nil {
		return "", fmt.Errorf("print pdf: %w", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read pdf stream: %w", err)
	}
	return w.Put(ctx, key, data, "application/pdf")
}

// Close libera página, navegador e perfil temporário; chamadas extras são no-op
func (s *rodSession) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.page != nil {
			if err := s.page.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if s.browser != nil {
			if err := s.browser.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if s.launcher != nil {
			s.launcher.Kill()
			s.launcher.Cleanup()
		}
		s.closeErr = errors.Join(errs...)
		if s.closeErr != nil && s.log != nil {
			s.log.Warn("browser close", zap.Error(s.closeErr))
		}
	})
	return s.closeErr
}

type rodElement struct {
	el      *rod.Element
	keyOnce sync.Once
	key     string
}

func wrap(els rod.Elements) []Element {
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, newRodElement(el))
	}
	return out
}

func newRodElement(el *rod.Element) *rodElement {
	return &rodElement{el: el}
}

// Key usa o BackendNodeID, estável entre handles do mesmo nó
func (e *rodElement) Key() string {
	e.keyOnce.Do(func() {
		e.key = string(e.el.Object.ObjectID)
		if node, err := e.el.Describe(0, false); err == nil && node != nil {
			e.key = "node:" + strconv.Itoa(int(node.BackendNodeID))
		}
	})
	return e.key
}

func (e *rodElement) eval(ctx context.Context, js string, args ...interface{}) (*proto.RuntimeRemoteObject, error) {
	res, err := e.el.Context(ctx).Eval(js, args...)
	if err != nil {
		return nil, stale(err)
	}
	return res, nil
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	res, err := e.eval(ctx, `() => this.textContent || ""`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (e *rodElement) Children(ctx context.Context) ([]Element, error) {
	els, err := e.el.Context(ctx).Elements(":scope > *")
	if err != nil {
		return nil, stale(err)
	}
	return wrap(els), nil
}

func (e *rodElement) HasChildNodes(ctx context.Context) (bool, error) {
	res, err := e.eval(ctx, `() => this.hasChildNodes()`)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

const layersJS = `(max) => {
	const out = [];
	for (let n = this, d = 0; n && n.nodeType === 1 && d < max; n = n.parentElement, d++) {
		const s = getComputedStyle(n);
		out.push({ background: s.backgroundColor, opacity: parseFloat(s.opacity) });
	}
	return out;
}`

func (e *rodElement) Layers(ctx context.Context, maxDepth int) ([]Layer, error) {
	res, err := e.eval(ctx, layersJS, maxDepth)
	if err != nil {
		return nil, err
	}
	arr := res.Value.Arr()
	out := make([]Layer, 0, len(arr))
	for _, item := range arr {
		out = append(out, Layer{Background: item.Get("background").Str(), Opacity: item.Get("opacity").Num()})
	}
	return out, nil
}

func (e *rodElement) TextColor(ctx context.Context) (string, error) {
	res, err := e.eval(ctx, `() => getComputedStyle(this).color`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (e *rodElement) BoundingBox(ctx context.Context) (*model.Box, error) {
	shape, err := e.el.Context(ctx).Shape()
	if err != nil {
		return nil, stale(err)
	}
	box := shape.Box()
	if box == nil {
		return nil, nil
	}
	return &model.Box{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height}, nil
}

func (e *rodElement) Screenshot(ctx context.Context) ([]byte, error) {
	b, err := e.el.Context(ctx).Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return nil, stale(err)
	}
	return b, nil
}

func (e *rodElement) IsVisible(ctx context.Context) (bool, error) {
	v, err := e.el.Context(ctx).Visible()
	if err != nil {
		return false, stale(err)
	}
	return v, nil
}

func (e *rodElement) IsHidden(ctx context.Context) (bool, error) {
	res, err := e.eval(ctx, `() => {
		const s = getComputedStyle(this);
		return s.visibility === 'hidden' || s.display === 'none' || this.getClientRects().length === 0;
	}`)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

func (e *rodElement) IsIntersectingViewport(ctx context.Context) (bool, error) {
	res, err := e.eval(ctx, `() => {
		const r = this.getBoundingClientRect();
		return r.width > 0 && r.height > 0 && r.bottom > 0 && r.right > 0 &&
			r.top < window.innerHeight && r.left < window.innerWidth;
	}`)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

var staleMarkers = []string{
	"could not find node",
	"no node with given id",
	"node is detached",
	"cannot find context",
	"not attached",
	"object reference chain is too long",
	"cannot find object",
}

// stale traduz erros de nó desanexado para ErrElementStale
func stale(err error) error {
	msg := strings.ToLower(err.Error())
	for _, m := range staleMarkers {
		if strings.Contains(msg, m) {
			return fmt.Errorf("%w: %v", model.ErrElementStale, err)
		}
	}
	return err
}
