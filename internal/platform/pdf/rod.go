package pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/hansupo/shad-label/internal/platform/config"
)

// A4 at 96 DPI.
const (
	ViewportWidth  = 794
	ViewportHeight = 1123
	ScaleFactor    = 2

	a4WidthInches  = 8.27
	a4HeightInches = 11.69
	idleWait       = 2 * time.Second
)

// ErrRendererClosed is returned after Close.
var ErrRendererClosed = errors.New("pdf: renderer closed")

// Renderer turns a complete HTML document into PDF bytes.
type Renderer interface {
	Render(ctx context.Context, document string) ([]byte, error)
}

// RodRenderer drives Chromium over the DevTools protocol. It connects lazily, reconnects when the
// browser goes away and opens one page per render.
type RodRenderer struct {
	cfg    config.PDFConfig
	logger *zap.Logger

	mu       sync.Mutex
	browser  *rod.Browser
	launched *launcher.Launcher
	closed   bool
}

type RodOption func(*RodRenderer)

func WithLogger(logger *zap.Logger) RodOption {
	return func(r *RodRenderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRodRenderer(cfg config.PDFConfig, opts ...RodOption) *RodRenderer {
	r := &RodRenderer{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Render prints document with A4 paper, background graphics and CSS page size honoured.
func (r *RodRenderer) Render(ctx context.Context, document string) ([]byte, error) {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	browser, err := r.connect(ctx)
	if err != nil {
		return nil, err
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		r.reset()
		return nil, fmt.Errorf("pdf: open page: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			r.logger.Debug("close page failed", zap.Error(cerr))
		}
	}()

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             ViewportWidth,
		Height:            ViewportHeight,
		DeviceScaleFactor: ScaleFactor,
		Mobile:            false,
	}).Call(page); err != nil {
		return nil, fmt.Errorf("pdf: set viewport: %w", err)
	}
	if err := page.SetDocumentContent(document); err != nil {
		return nil, fmt.Errorf("pdf: set content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("pdf: wait load: %w", err)
	}
	if err := page.WaitIdle(idleWait); err != nil {
		r.logger.Debug("page did not go idle before print", zap.Error(err))
	}
	if err := (proto.EmulationSetEmulatedMedia{Media: "screen"}).Call(page); err != nil {
		return nil, fmt.Errorf("pdf: emulate media: %w", err)
	}

	stream, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PreferCSSPageSize: true,
		PaperWidth:        float(a4WidthInches),
		PaperHeight:       float(a4HeightInches),
		MarginTop:         float(0),
		MarginBottom:      float(0),
		MarginLeft:        float(0),
		MarginRight:       float(0),
	})
	if err != nil {
		return nil, fmt.Errorf("pdf: print: %w", err)
	}
	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("pdf: read stream: %w", err)
	}
	return data, nil
}

// Ping reports whether the browser answers a version request.
func (r *RodRenderer) Ping(ctx context.Context) error {
	browser, err := r.connect(ctx)
	if err != nil {
		return err
	}
	if _, err := browser.Context(ctx).Version(); err != nil {
		r.reset()
		return fmt.Errorf("pdf: browser version: %w", err)
	}
	return nil
}

// Close disconnects and kills a browser this renderer launched.
func (r *RodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return r.resetLocked()
}

func (r *RodRenderer) connect(ctx context.Context) (*rod.Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRendererClosed
	}
	if r.browser != nil {
		return r.browser, nil
	}

	controlURL, err := r.controlURL()
	if err != nil {
		return nil, err
	}
	// The connection outlives the request that opened it; ctx only bounds the work done per call.
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		_ = r.resetLocked()
		return nil, fmt.Errorf("pdf: connect to browser: %w", err)
	}
	r.browser = browser
	r.logger.Info("connected to browser", zap.Bool("launched", r.launched != nil))
	return browser, nil
}

func (r *RodRenderer) controlURL() (string, error) {
	if remote := strings.TrimSpace(r.cfg.BrowserURL); remote != "" {
		resolved := remote
		if strings.HasPrefix(remote, "http://") || strings.HasPrefix(remote, "https://") {
			u, err := launcher.ResolveURL(remote)
			if err != nil {
				return "", fmt.Errorf("pdf: resolve browser url: %w", err)
			}
			resolved = u
		}
		return withToken(resolved, r.cfg.BrowserToken)
	}

	l := launcher.New().Headless(true).NoSandbox(true)
	if bin := strings.TrimSpace(r.cfg.BrowserBin); bin != "" {
		l = l.Bin(bin)
	}
	u, err := l.Launch()
	if err != nil {
		return "", fmt.Errorf("pdf: launch browser: %w", err)
	}
	r.launched = l
	return u, nil
}

func (r *RodRenderer) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.resetLocked()
}

func (r *RodRenderer) resetLocked() error {
	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.launched != nil {
		r.launched.Kill()
		r.launched = nil
	}
	return err
}

func withToken(controlURL, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return controlURL, nil
	}
	u, err := url.Parse(controlURL)
	if err != nil {
		return "", fmt.Errorf("pdf: parse browser url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func float(v float64) *float64 { return &v }
