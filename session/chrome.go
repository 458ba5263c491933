package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-detmir/config"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// ChromeProvider opens the catalog page in headless Chrome and returns the
// cookies the anti-bot layer set for it. Every call starts a new browser.
type ChromeProvider struct {
	ExecPath string
	Timeout  time.Duration
}

// NewChromeProvider configures a provider from cfg.
func NewChromeProvider(cfg *config.Config) *ChromeProvider {
	return &ChromeProvider{
		ExecPath: cfg.ChromePath,
		Timeout:  cfg.BrowserTimeout,
	}
}

// Cookies navigates to pageURL and reads its cookies.
func (p *ChromeProvider) Cookies(ctx context.Context, pageURL string) (map[string]string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if p.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(p.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()
	if p.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		browserCtx, cancelTimeout = context.WithTimeout(browserCtx, p.Timeout)
		defer cancelTimeout()
	}

	var cookies []*network.Cookie
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("browser session for %s: %w", pageURL, err)
	}

	out := cookieMap(cookies)
	if len(out) == 0 {
		slog.Warn("browser session returned no cookies", slog.String("url", pageURL))
	}
	slog.Debug("browser session ready", slog.String("url", pageURL), slog.Int("cookies", len(out)))
	return out, nil
}

func cookieMap(cookies []*network.Cookie) map[string]string {
	out := make(map[string]string, len(cookies))
	for _, c := range cookies {
		if c == nil || c.Name == "" {
			continue
		}
		out[c.Name] = c.Value
	}
	return out
}
