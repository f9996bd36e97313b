package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prowl/internal/common"
	"github.com/ternarybob/prowl/internal/interfaces"
)

// ChromeDriver renders pages through a pool of headless browser
// contexts with round-robin allocation. It implements PageDriver.
type ChromeDriver struct {
	browsers         []context.Context
	browserCancels   []context.CancelFunc
	allocatorCancels []context.CancelFunc
	currentIndex     int
	mu               sync.Mutex
	userAgent        string
	logger           arbor.ILogger
}

// NewChromeDriver starts poolSize browser instances configured from the
// crawler section of the app config.
func NewChromeDriver(config common.CrawlerConfig, logger arbor.ILogger) (*ChromeDriver, error) {
	poolSize := config.BrowserPoolSize
	if poolSize <= 0 {
		poolSize = 1
	}

	d := &ChromeDriver{
		userAgent: config.UserAgent,
		logger:    logger,
	}

	for i := 0; i < poolSize; i++ {
		allocatorOpts := append(
			chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", config.Headless),
			chromedp.Flag("disable-gpu", config.DisableGPU),
			chromedp.Flag("no-sandbox", config.NoSandbox),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(config.UserAgent),
		)

		allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), allocatorOpts...)
		browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

		d.browsers = append(d.browsers, browserCtx)
		d.browserCancels = append(d.browserCancels, browserCancel)
		d.allocatorCancels = append(d.allocatorCancels, allocatorCancel)
	}

	logger.Info().
		Int("pool_size", poolSize).
		Str("user_agent", config.UserAgent).
		Bool("headless", config.Headless).
		Msg("Browser pool initialized")

	return d, nil
}

// nextBrowser returns the next browser context round-robin
func (d *ChromeDriver) nextBrowser() context.Context {
	d.mu.Lock()
	defer d.mu.Unlock()

	browser := d.browsers[d.currentIndex]
	d.currentIndex = (d.currentIndex + 1) % len(d.browsers)
	return browser
}

// Navigate loads the URL in a fresh tab and captures a snapshot. The
// caller's context deadline bounds the whole navigation.
func (d *ChromeDriver) Navigate(ctx context.Context, pageURL string, headers map[string]string) (*interfaces.PageSnapshot, error) {
	tabCtx, cancel := chromedp.NewContext(d.nextBrowser())
	defer cancel()

	if deadline, ok := ctx.Deadline(); ok {
		var timeoutCancel context.CancelFunc
		tabCtx, timeoutCancel = context.WithDeadline(tabCtx, deadline)
		defer timeoutCancel()
	}

	start := time.Now()

	var title, html, text string
	var links []string
	var statusCode int

	var tasks []chromedp.Action
	if len(headers) > 0 {
		extra := make(network.Headers, len(headers))
		for key, value := range headers {
			extra[key] = value
		}
		tasks = append(tasks, network.Enable(), network.SetExtraHTTPHeaders(extra))
	}
	tasks = append(tasks,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html),
		chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text),
		chromedp.Evaluate(`Array.from(document.querySelectorAll('a[href]')).map(a => a.href)`, &links),
		chromedp.Evaluate(`window.performance.getEntriesByType('navigation').length > 0 ? (window.performance.getEntriesByType('navigation')[0].responseStatus || 200) : 200`, &statusCode),
	)

	if err := chromedp.Run(tabCtx, tasks...); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", pageURL, err)
	}

	if statusCode == 0 {
		statusCode = 200
	}

	return &interfaces.PageSnapshot{
		URL:        pageURL,
		StatusCode: statusCode,
		Title:      title,
		HTML:       html,
		Text:       text,
		Links:      links,
		LoadTime:   time.Since(start),
	}, nil
}

// Shutdown closes all browser contexts
func (d *ChromeDriver) Shutdown() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, cancel := range d.browserCancels {
		cancel()
	}
	for _, cancel := range d.allocatorCancels {
		cancel()
	}
	d.browsers = nil

	d.logger.Info().Msg("Browser pool shut down")
	return nil
}
