package realtor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"realty-scanner/models"
	"realty-scanner/utils"
)

// Coercer turns a raw listing into a typed one, reporting false for entries
// that carry no identifier.
type Coercer interface {
	CleanOne(r models.RawListing) (models.Listing, bool)
}

// CollectorOptions bounds how long a single search may take.
type CollectorOptions struct {
	MaxPages int
	// PageTimeout bounds one pagination iteration across all affordances.
	PageTimeout time.Duration
	// InitialSettle is how long batches are gathered after navigation.
	InitialSettle time.Duration
	// BatchTimeout bounds the wait for a batch after one interaction.
	BatchTimeout time.Duration
	// BatchSettle is how long stragglers are drained after a batch arrives.
	BatchSettle time.Duration
	// MaxAttempts caps affordance attempts for the whole search. Zero means
	// MaxPages times the number of affordances.
	MaxAttempts int
}

// DefaultCollectorOptions returns the limits the scanner ships with.
func DefaultCollectorOptions() CollectorOptions {
	return CollectorOptions{
		MaxPages:      30,
		PageTimeout:   30 * time.Second,
		InitialSettle: 5 * time.Second,
		BatchTimeout:  8 * time.Second,
		BatchSettle:   1500 * time.Millisecond,
	}
}

// Collector reconstructs a search's result set from the batches its session
// delivers while being paged through.
type Collector struct {
	opener  Opener
	coercer Coercer
	opts    CollectorOptions
	logger  *utils.Logger
}

// NewCollector creates a Collector. Zero durations and a non-positive
// MaxPages take their DefaultCollectorOptions values.
func NewCollector(opener Opener, coercer Coercer, opts CollectorOptions, logger *utils.Logger) *Collector {
	def := DefaultCollectorOptions()
	if opts.MaxPages < 1 {
		opts.MaxPages = def.MaxPages
	}
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = def.PageTimeout
	}
	if opts.InitialSettle <= 0 {
		opts.InitialSettle = def.InitialSettle
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = def.BatchTimeout
	}
	if opts.BatchSettle <= 0 {
		opts.BatchSettle = def.BatchSettle
	}
	return &Collector{opener: opener, coercer: coercer, opts: opts, logger: logger}
}

// accumulator is owned by the goroutine driving the session.
type accumulator struct {
	coercer   Coercer
	logger    *utils.Logger
	seen      *utils.IDSet
	listings  []models.Listing
	total     int
	batches   int
	malformed int
}

func newAccumulator(coercer Coercer, logger *utils.Logger) *accumulator {
	return &accumulator{coercer: coercer, logger: logger, seen: utils.NewIDSet(), listings: []models.Listing{}}
}

func (a *accumulator) size() int { return a.seen.Size() }

func (a *accumulator) add(body []byte) {
	b, err := DecodeBatch(body)
	if err != nil {
		a.malformed++
		a.logger.Debug("[realtor] Skipping batch: %v", err)
		return
	}
	a.batches++
	if b.Total > a.total {
		a.total = b.Total
	}
	added := a.merge(b.Listings)
	a.logger.Debug("[realtor] Batch +%d (unique %d/%d)", added, a.size(), a.total)
}

func (a *accumulator) merge(raw []models.RawListing) int {
	added := 0
	for _, r := range raw {
		l, ok := a.coercer.CleanOne(r)
		if !ok || !a.seen.Add(l.ID) {
			continue
		}
		a.listings = append(a.listings, l)
		added++
	}
	return added
}

func (a *accumulator) reachedTotal() bool {
	return a.total > 0 && a.size() >= a.total
}

// Collect runs one search. The returned error is non-nil only when the run
// must stop: the session was lost or ctx is done. Any other failure yields a
// Collection with Source set to SourceError and the listings gathered so far.
func (c *Collector) Collect(ctx context.Context, spec models.SearchSpec) (*models.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.logger.Info("[realtor] 🔍 %s", spec.Name)

	sess, err := c.opener.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("realtor: open session for %s: %w", spec.Key, err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			c.logger.Debug("[realtor] Closing session: %v", cerr)
		}
	}()

	col := &models.Collection{Search: spec.Key}
	acc := newAccumulator(c.coercer, c.logger)

	err = c.bounded(ctx, ErrNavigation, "navigate", func(ctx context.Context) error {
		return sess.Navigate(ctx, spec.SearchURL())
	})
	if err != nil {
		return c.abort(ctx, spec, col, acc, err)
	}
	c.drain(ctx, sess, acc, c.opts.InitialSettle)

	var switched bool
	err = c.bounded(ctx, ErrNavigation, ListView.Name, func(ctx context.Context) error {
		var err error
		switched, err = sess.Advance(ctx, ListView)
		return err
	})
	switch {
	case err != nil && (ctx.Err() != nil || errors.Is(err, ErrSessionLost)):
		return c.abort(ctx, spec, col, acc, err)
	case err != nil:
		c.logger.Warn("[realtor] List view unavailable: %v", err)
	case switched:
		c.drain(ctx, sess, acc, c.opts.BatchSettle)
	default:
		c.logger.Debug("[realtor] Could not switch to list view")
	}

	if err := c.paginate(ctx, sess, acc, col); err != nil {
		return c.abort(ctx, spec, col, acc, err)
	}

	col.Batches = acc.batches
	col.TotalReported = acc.total
	if acc.batches > 0 {
		col.Source = models.SourceAPI
		col.Listings = acc.listings
		c.logger.Info("[realtor] ✅ %d unique listings collected (%d reported, %d pages)", len(col.Listings), acc.total, col.Pages)
		return col, nil
	}

	c.logger.Warn("[realtor] No result batches captured, trying rendered page")
	return c.fallback(ctx, spec, sess, col, acc)
}

func (c *Collector) paginate(ctx context.Context, sess Session, acc *accumulator, col *models.Collection) error {
	ceiling := c.opts.MaxAttempts
	if ceiling <= 0 {
		ceiling = c.opts.MaxPages * len(PageAffordances(2))
	}
	attempts := 0

	for page := 1; page <= c.opts.MaxPages; page++ {
		if acc.reachedTotal() {
			c.logger.Debug("[realtor] Reported total %d reached", acc.total)
			return nil
		}
		grew, err := c.advance(ctx, sess, acc, page+1, &attempts, ceiling)
		if err != nil {
			return err
		}
		if !grew {
			if attempts >= ceiling {
				c.logger.Warn("[realtor] Attempt ceiling (%d) hit at page %d (%d listings)", ceiling, page, acc.size())
			} else {
				c.logger.Warn("[realtor] %v: pagination stopped at page %d (%d listings)", ErrNavigation, page, acc.size())
			}
			return nil
		}
		col.Pages = page
	}
	return nil
}

// advance tries each affordance for target until one grows the unique count.
// All attempts share one PageTimeout budget.
func (c *Collector) advance(ctx context.Context, sess Session, acc *accumulator, target int, attempts *int, ceiling int) (bool, error) {
	pageCtx, cancel := context.WithTimeout(ctx, c.opts.PageTimeout)
	defer cancel()

	for _, a := range PageAffordances(target) {
		if *attempts >= ceiling || pageCtx.Err() != nil {
			break
		}
		*attempts++

		before := acc.size()
		ok, err := sess.Advance(pageCtx, a)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrSessionLost) {
				return false, err
			}
			if pageCtx.Err() != nil {
				break
			}
			c.logger.Debug("[realtor] Affordance %s failed: %v", a.Name, err)
			continue
		}
		if !ok {
			continue
		}

		c.await(pageCtx, sess, acc)
		if acc.size() > before {
			c.logger.Debug("[realtor] Page %d via %s (%d listings)", target, a.Name, acc.size())
			return true, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return false, nil
}

// await does a single bounded receive, then drains stragglers for BatchSettle.
func (c *Collector) await(ctx context.Context, sess Session, acc *accumulator) {
	t := time.NewTimer(c.opts.BatchTimeout)
	defer t.Stop()

	select {
	case body := <-sess.Batches():
		acc.add(body)
	case <-t.C:
		return
	case <-ctx.Done():
		return
	}
	c.drain(ctx, sess, acc, c.opts.BatchSettle)
}

// drain merges every batch arriving within window.
func (c *Collector) drain(ctx context.Context, sess Session, acc *accumulator, window time.Duration) {
	if window <= 0 {
		window = time.Millisecond
	}
	t := time.NewTimer(window)
	defer t.Stop()

	for {
		select {
		case body := <-sess.Batches():
			acc.add(body)
		case <-t.C:
			return
		case <-ctx.Done():
			return
		}
	}
}

// bounded runs one session call under PageTimeout. Overrunning the budget
// fails the call with kind; only the caller's ctx ending stays a context error.
func (c *Collector) bounded(ctx context.Context, kind error, op string, fn func(ctx context.Context) error) error {
	stepCtx, cancel := context.WithTimeout(ctx, c.opts.PageTimeout)
	defer cancel()

	err := fn(stepCtx)
	if err != nil && ctx.Err() == nil && stepCtx.Err() != nil && !errors.Is(err, ErrSessionLost) {
		return fmt.Errorf("%w: %s: no answer within %v", kind, op, c.opts.PageTimeout)
	}
	return err
}

func (c *Collector) fallback(ctx context.Context, spec models.SearchSpec, sess Session, col *models.Collection, acc *accumulator) (*models.Collection, error) {
	var html string
	err := c.bounded(ctx, ErrTransport, "rendered html", func(ctx context.Context) error {
		var err error
		html, err = sess.RenderedHTML(ctx)
		return err
	})
	if err != nil {
		return c.abort(ctx, spec, col, acc, err)
	}
	cards, err := ExtractCards(html)
	if err != nil {
		c.logger.Warn("[realtor] %v", err)
	}
	if acc.merge(cards) > 0 {
		col.Source = models.SourceDOM
		col.Listings = acc.listings
		c.logger.Info("[realtor] Found %d DOM listings", len(col.Listings))
		return col, nil
	}

	var text string
	err = c.bounded(ctx, ErrTransport, "rendered text", func(ctx context.Context) error {
		var err error
		text, err = sess.RenderedText(ctx)
		return err
	})
	if err != nil {
		return c.abort(ctx, spec, col, acc, err)
	}
	col.Source = models.SourceText
	col.Text = text
	col.Listings = []models.Listing{}
	c.logger.Warn("[realtor] Falling back to page text (%d chars)", len(text))
	return col, nil
}

func (c *Collector) abort(ctx context.Context, spec models.SearchSpec, col *models.Collection, acc *accumulator, err error) (*models.Collection, error) {
	if ctx.Err() != nil {
		return nil, fmt.Errorf("realtor: %s: %w", spec.Key, ctx.Err())
	}
	if errors.Is(err, ErrSessionLost) {
		return nil, fmt.Errorf("realtor: %s: %w", spec.Key, err)
	}
	c.logger.Error("[realtor] %s ended early: %v", spec.Name, err)
	col.Source = models.SourceError
	col.Err = err
	col.Batches = acc.batches
	col.TotalReported = acc.total
	col.Listings = acc.listings
	if col.Listings == nil {
		col.Listings = []models.Listing{}
	}
	return col, nil
}
