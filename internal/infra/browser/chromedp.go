// Package browser provides the chromedp-backed implementation of the
// headless-browser interfaces consumed by registration strategies.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	core "github.com/nminhdao/registrar/internal/browser"
)

// Config holds browser engine configuration.
type Config struct {
	Headless  bool   `yaml:"headless"`
	ExecPath  string `yaml:"exec_path"`
	UserAgent string `yaml:"user_agent"`
}

// ChromeBrowser runs a single Chrome process and hands out one tab per page
// session. The process is started lazily on the first OpenPage call.
type ChromeBrowser struct {
	cfg Config

	mu        sync.Mutex
	allocCtx  context.Context
	cancelAll context.CancelFunc
	closed    bool
}

// NewChromeBrowser creates a browser engine with the given configuration.
func NewChromeBrowser(cfg Config) *ChromeBrowser {
	return &ChromeBrowser{cfg: cfg}
}

func (b *ChromeBrowser) allocator() (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("browser is closed")
	}
	if b.allocCtx != nil {
		return b.allocCtx, nil
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !b.cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if b.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.cfg.ExecPath))
	}
	if b.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.cfg.UserAgent))
	}

	b.allocCtx, b.cancelAll = chromedp.NewExecAllocator(context.Background(), opts...)
	return b.allocCtx, nil
}

// OpenPage opens a fresh tab. The returned page must be closed exactly once.
func (b *ChromeBrowser) OpenPage(ctx context.Context) (core.Page, error) {
	allocCtx, err := b.allocator()
	if err != nil {
		return nil, err
	}

	tabCtx, cancel := chromedp.NewContext(allocCtx)

	// Start the tab now so OpenPage fails fast when Chrome cannot launch.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	return &chromePage{ctx: tabCtx, cancel: cancel}, nil
}

// Close tears down the browser process and all open tabs.
func (b *ChromeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	if b.cancelAll != nil {
		b.cancelAll()
		b.cancelAll = nil
		b.allocCtx = nil
	}
	return nil
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
}

// run executes actions on the tab, bounded by the caller's context.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	runCtx := p.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(p.ctx, deadline)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) Goto(ctx context.Context, url string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := p.run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

func (p *chromePage) Exists(ctx context.Context, selector string) (bool, error) {
	var found bool
	err := p.run(ctx, chromedp.Evaluate(
		fmt.Sprintf("document.querySelector(%q) !== null", selector), &found,
	))
	if err != nil {
		return false, fmt.Errorf("selector check failed: %w", err)
	}
	return found, nil
}

func (p *chromePage) Fill(ctx context.Context, selector, value string) error {
	err := p.run(ctx,
		chromedp.SetValue(selector, value, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("fill %s failed: %w", selector, err)
	}
	return nil
}

func (p *chromePage) Click(ctx context.Context, selector string) error {
	if err := p.run(ctx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("click %s failed: %w", selector, err)
	}
	return nil
}

func (p *chromePage) Text(ctx context.Context, selector string) (string, error) {
	var text string
	if err := p.run(ctx, chromedp.Text(selector, &text, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("text %s failed: %w", selector, err)
	}
	return text, nil
}

func (p *chromePage) Content(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("content read failed: %w", err)
	}
	return html, nil
}

func (p *chromePage) Close() error {
	p.closeOnce.Do(p.cancel)
	return nil
}
