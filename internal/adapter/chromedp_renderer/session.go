package chromedp_renderer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/user/listing-pipeline/internal/proxy"
	"github.com/user/listing-pipeline/internal/repository"
)

type Config struct {
	PageLoadTimeout time.Duration
	ChromePath      string
	AcceptLanguage  string
}

// Provider starts one headless browser per session.
type Provider struct {
	cfg     Config
	proxies *proxy.Manager
	logger  *zap.Logger
}

func NewProvider(cfg Config, proxies *proxy.Manager, logger *zap.Logger) *Provider {
	if cfg.PageLoadTimeout <= 0 {
		cfg.PageLoadTimeout = 60 * time.Second
	}
	if cfg.AcceptLanguage == "" {
		cfg.AcceptLanguage = "es-CO,es;q=0.9,en;q=0.8"
	}
	return &Provider{cfg: cfg, proxies: proxies, logger: logger}
}

var _ repository.SessionProvider = (*Provider)(nil)

// NewSession launches a browser and opens its first tab so that a broken
// Chrome installation surfaces here rather than on the first page.
func (p *Provider) NewSession(ctx context.Context) (repository.RenderSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(p.proxies.GetUserAgent()),
		chromedp.WSURLReadTimeout(p.cfg.PageLoadTimeout),
	)
	if px := p.proxies.NextProxy(); px != "" {
		opts = append(opts, chromedp.ProxyServer(px))
	}
	if p.cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(p.cfg.ChromePath))
	}

	// The browser lives as long as the session, not the caller's context.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(p.logger.Sugar().Debugf))

	// The first Run starts the browser and ties it to the context it is
	// given, so it must receive browserCtx itself rather than a derived one.
	err := chromedp.Run(browserCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": p.cfg.AcceptLanguage}),
	)
	if err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &Session{
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
		timeout:       p.cfg.PageLoadTimeout,
		logger:        p.logger,
	}, nil
}

// Session is a single browser tab. Render calls are serialized.
type Session struct {
	mu            sync.Mutex
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
	timeout       time.Duration
	logger        *zap.Logger
	closed        bool
}

func (s *Session) Render(ctx context.Context, url string, settle time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", fmt.Errorf("render %s: session closed", url)
	}

	taskCtx, cancel := context.WithTimeout(s.browserCtx, s.timeout+settle)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if settle > 0 {
		actions = append(actions, chromedp.Sleep(settle))
	}
	var html string
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	start := time.Now()
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	s.logger.Debug("page rendered",
		zap.String("url", url),
		zap.Duration("settle", settle),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	return html, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := chromedp.Cancel(s.browserCtx)
	s.cancelBrowser()
	s.cancelAlloc()
	return err
}
