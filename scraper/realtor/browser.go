package realtor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"realty-scanner/utils"
)

// searchEndpoint identifies the responses that carry result batches.
const searchEndpoint = "PropertySearch"

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// BrowserOptions selects how the browser is reached.
type BrowserOptions struct {
	// CDPURL attaches to an already running browser when set.
	CDPURL string
	// ChromeBin overrides the local browser binary lookup.
	ChromeBin string
	Headless  bool
}

// runFunc executes actions against the target bound to ctx.
type runFunc func(ctx context.Context, actions ...chromedp.Action) error

// Browser owns the browser process (or the remote attachment) and opens one
// tab per search.
type Browser struct {
	logger        *utils.Logger
	cancelAlloc   context.CancelFunc
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	run           runFunc
}

// NewBrowser starts a local headless browser, or attaches to opts.CDPURL.
func NewBrowser(opts BrowserOptions, logger *utils.Logger) (*Browser, error) {
	var (
		allocCtx    context.Context
		cancelAlloc context.CancelFunc
	)

	if opts.CDPURL != "" {
		logger.Info("[browser] Attaching to %s", opts.CDPURL)
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(context.Background(), opts.CDPURL)
	} else {
		chromeBin := opts.ChromeBin
		if chromeBin == "" {
			chromeBin = findChromeBinary()
		}
		logger.Info("[browser] Using browser binary: %s", chromeBin)

		execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-setuid-sandbox", true),
			chromedp.UserAgent(userAgent),
		)
		if chromeBin != "" {
			execOpts = append(execOpts, chromedp.ExecPath(chromeBin))
		}
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(context.Background(), execOpts...)
	}

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("%w: start browser: %v", ErrSessionLost, err)
	}

	return &Browser{
		logger:        logger,
		cancelAlloc:   cancelAlloc,
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		run:           chromedp.Run,
	}, nil
}

// Open creates a new tab with response capture enabled.
//
// The first Run on a tab context attaches the target and runs its message
// loop for as long as the context passed to that Run lives, so it must be the
// tab context itself. Caller cancellation only aborts the attach.
func (b *Browser) Open(ctx context.Context) (Session, error) {
	if b.browserCtx.Err() != nil {
		return nil, fmt.Errorf("%w: browser closed", ErrSessionLost)
	}

	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	s := newBrowserSession(tabCtx, cancel, b.run, b.logger)
	chromedp.ListenTarget(tabCtx, s.onEvent)

	stop := context.AfterFunc(ctx, cancel)
	err := b.run(tabCtx, network.Enable())
	if !stop() {
		cancel()
		return nil, ctx.Err()
	}
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: open tab: %v", ErrSessionLost, err)
	}
	return s, nil
}

// Close closes the browser, or detaches from a remote one.
func (b *Browser) Close() error {
	err := chromedp.Cancel(b.browserCtx)
	b.cancelBrowser()
	b.cancelAlloc()
	return err
}

type browserSession struct {
	ctx    context.Context
	cancel context.CancelFunc
	run    runFunc
	fetch  func(ctx context.Context, id network.RequestID) ([]byte, error)
	logger *utils.Logger

	batches chan []byte
	wg      sync.WaitGroup

	// mu guards pending and closed; wg.Add only happens under mu while open.
	mu      sync.Mutex
	pending map[network.RequestID]struct{}
	closed  bool
}

func newBrowserSession(ctx context.Context, cancel context.CancelFunc, run runFunc, logger *utils.Logger) *browserSession {
	s := &browserSession{
		ctx:     ctx,
		cancel:  cancel,
		run:     run,
		logger:  logger,
		batches: make(chan []byte, 64),
		pending: make(map[network.RequestID]struct{}),
	}
	s.fetch = s.responseBody
	return s
}

// onEvent runs on chromedp's event loop and must not block.
func (s *browserSession) onEvent(ev interface{}) {
	switch e := ev.(type) {
	case *network.EventResponseReceived:
		if e.Response != nil && strings.Contains(e.Response.URL, searchEndpoint) {
			s.mu.Lock()
			s.pending[e.RequestID] = struct{}{}
			s.mu.Unlock()
		}
	case *network.EventLoadingFinished:
		s.mu.Lock()
		_, ok := s.pending[e.RequestID]
		delete(s.pending, e.RequestID)
		if ok && !s.closed {
			s.wg.Add(1)
			go s.fetchBody(e.RequestID)
		}
		s.mu.Unlock()
	case *network.EventLoadingFailed:
		s.mu.Lock()
		delete(s.pending, e.RequestID)
		s.mu.Unlock()
	}
}

func (s *browserSession) responseBody(ctx context.Context, id network.RequestID) ([]byte, error) {
	var body []byte
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		body, err = network.GetResponseBody(id).Do(ctx)
		return err
	}))
	return body, err
}

func (s *browserSession) fetchBody(id network.RequestID) {
	defer s.wg.Done()

	body, err := s.fetch(s.ctx, id)
	if err != nil {
		s.logger.Debug("[browser] Response body %s unavailable: %v", id, err)
		return
	}

	select {
	case s.batches <- body:
	case <-s.ctx.Done():
	}
}

// bind derives an operation context that ends with either the tab or ctx.
func (s *browserSession) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithCancel(s.ctx)
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

func (s *browserSession) classify(ctx context.Context, kind error, op string, err error) error {
	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("realtor: %s: %w", op, ctx.Err())
	case s.ctx.Err() != nil:
		return fmt.Errorf("%w: %s: %v", ErrSessionLost, op, err)
	default:
		return fmt.Errorf("%w: %s: %v", kind, op, err)
	}
}

func (s *browserSession) Navigate(ctx context.Context, url string) error {
	opCtx, done := s.bind(ctx)
	defer done()
	if err := s.run(opCtx, chromedp.Navigate(url)); err != nil {
		return s.classify(ctx, ErrNavigation, "navigate", err)
	}
	return nil
}

func (s *browserSession) Advance(ctx context.Context, a Affordance) (bool, error) {
	opCtx, done := s.bind(ctx)
	defer done()
	var ok bool
	if err := s.run(opCtx, chromedp.Evaluate(a.Script, &ok)); err != nil {
		return false, s.classify(ctx, ErrNavigation, a.Name, err)
	}
	return ok, nil
}

func (s *browserSession) RenderedHTML(ctx context.Context) (string, error) {
	opCtx, done := s.bind(ctx)
	defer done()
	var html string
	if err := s.run(opCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", s.classify(ctx, ErrTransport, "rendered html", err)
	}
	return html, nil
}

func (s *browserSession) RenderedText(ctx context.Context) (string, error) {
	opCtx, done := s.bind(ctx)
	defer done()
	var text string
	if err := s.run(opCtx, chromedp.Evaluate(`document.body ? document.body.innerText : ''`, &text)); err != nil {
		return "", s.classify(ctx, ErrTransport, "rendered text", err)
	}
	return text, nil
}

func (s *browserSession) Batches() <-chan []byte { return s.batches }

func (s *browserSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	err := chromedp.Cancel(s.ctx)
	s.cancel()
	s.wg.Wait()
	return err
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
