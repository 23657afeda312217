package tab

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/seckatie/linksaver/internal/core"
)

// BrowserResolver loads the page in a real Chrome/Chromium browser (via the
// DevTools protocol) so that JS-heavy pages have a chance to set their final
// title and icon before they are read.
type BrowserResolver struct {
	// ChromePath optionally overrides the Chrome/Chromium executable path.
	// If empty, chromedp will try to find a browser on PATH / default locations.
	ChromePath string
	// Headless controls whether Chrome runs without a visible window.
	// Set to false to debug resolving in a real window ("headful").
	Headless bool
	// Timeout is the per-page deadline for navigation + rendering.
	// If <= 0, core.DefaultResolveTimeout is used.
	Timeout time.Duration
	// WaitSelector optionally waits for a CSS selector to become visible
	// before the page is read.
	WaitSelector string
	// InlineIcon replaces the favicon URL with a data URI when the icon can
	// be fetched.
	InlineIcon bool
}

// Resolve navigates to rawURL, waits for network idle and <body>, then reads
// the final URL, document.title and the rendered HTML.
//
// This does not attempt to bypass paywalls/CAPTCHAs/login walls; failures are
// returned as errors.
func (r *BrowserResolver) Resolve(ctx context.Context, rawURL string) (Tab, error) {
	if err := ValidateURL(rawURL); err != nil {
		return Tab{}, err
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = core.DefaultResolveTimeout
	}
	log.Printf("Resolving %s in browser", rawURL)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, r.allocatorOptions()...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, timeout)
	defer cancelRun()

	var html, title, finalURL string

	actions := []chromedp.Action{
		chromedp.ActionFunc(navigateAndWaitIdle(rawURL)),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if strings.TrimSpace(r.WaitSelector) != "" {
		actions = append(actions, chromedp.WaitVisible(r.WaitSelector, chromedp.ByQuery))
	}
	// Small delay to allow any final JS execution after network idle
	actions = append(actions,
		chromedp.Sleep(core.DefaultNetworkIdleDelay),
		chromedp.Location(&finalURL),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)

	if err := chromedp.Run(runCtx, actions...); err != nil {
		return Tab{}, fmt.Errorf("failed to render %s: %w", rawURL, err)
	}
	if finalURL == "" {
		finalURL = rawURL
	}

	t, err := parsePage(html, finalURL)
	if err != nil {
		return Tab{}, err
	}
	// The live document title wins over the served <title>.
	if title = collapseSpace(title); title != "" {
		t.Title = title
	}
	if r.InlineIcon {
		t.FavIconURL = inlineIcon(ctx, &http.Client{Timeout: core.DefaultFetchTimeout}, t.FavIconURL)
	}
	return t, nil
}

func (r *BrowserResolver) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoFirstRun,
	)
	if r.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.ChromePath))
	}
	if r.Headless {
		opts = append(opts, chromedp.Headless)
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	return opts
}

// navigateAndWaitIdle navigates to url and blocks until the page reports the
// networkIdle lifecycle event.
func navigateAndWaitIdle(url string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := page.SetLifecycleEventsEnabled(true).Do(ctx); err != nil {
			return err
		}

		idle := make(chan struct{}, 1)
		chromedp.ListenTarget(ctx, func(ev interface{}) {
			if e, ok := ev.(*page.EventLifecycleEvent); ok && e.Name == "networkIdle" {
				select {
				case idle <- struct{}{}:
				default:
				}
			}
		})

		if err := chromedp.Navigate(url).Do(ctx); err != nil {
			return err
		}

		select {
		case <-idle:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
