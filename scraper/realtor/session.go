package realtor

import "context"

// Session is one live browsing tab pointed at the listing service.
//
// Batches carries the raw bodies of search responses the page fetched on its
// own; the channel is fed by the session's listener and read only by the
// collector driving the session.
type Session interface {
	Navigate(ctx context.Context, url string) error
	// Advance performs one page-advance affordance. It reports false when the
	// control the affordance targets is not present.
	Advance(ctx context.Context, a Affordance) (bool, error)
	RenderedHTML(ctx context.Context) (string, error)
	RenderedText(ctx context.Context) (string, error)
	Batches() <-chan []byte
	Close() error
}

// Opener opens a fresh session per search.
type Opener interface {
	Open(ctx context.Context) (Session, error)
}
