package turn

import (
	"context"
	"time"

	"github.com/malonaz/ragchat/internal/render"
)

// Sink receives the output of a turn's stream. It is called from the stream goroutine and
// from the render timer, never from the UI loop.
type Sink interface {
	// Render delivers a throttled snapshot of the content received so far.
	Render(id ID, content string)
	// Done delivers the terminal outcome with the final content. err is nil on success.
	Done(id ID, content string, err error)
}

// Options configures a Controller.
type Options struct {
	RenderInterval    time.Duration
	NearBottomLines   int
	ScrollResumeDelay time.Duration
	// Scheduler overrides the render timer.
	Scheduler render.Scheduler
}

// Controller owns the runtime resources of one turn: its render coordinator, its scroll
// tracker and the cancellation of its stream. It implements rag.Handler.
type Controller struct {
	id     ID
	turn   *Turn
	sink   Sink
	ctx    context.Context
	cancel context.CancelFunc

	coordinator *render.Coordinator
	scroll      *render.ScrollTracker
}

// NewController returns a controller for t. The stream of the turn must run with Context().
func NewController(parent context.Context, t *Turn, opts Options, sink Sink) *Controller {
	ctx, cancel := context.WithCancel(parent)
	c := &Controller{
		id:     t.ID,
		turn:   t,
		sink:   sink,
		ctx:    ctx,
		cancel: cancel,
		scroll: render.NewScrollTracker(opts.NearBottomLines, opts.ScrollResumeDelay),
	}
	var renderOpts []render.Option
	if opts.Scheduler != nil {
		renderOpts = append(renderOpts, render.WithScheduler(opts.Scheduler))
	}
	id := t.ID
	c.coordinator = render.NewCoordinator(opts.RenderInterval, func(content string) {
		sink.Render(id, content)
	}, renderOpts...)
	return c
}

// ID of the controlled turn.
func (c *Controller) ID() ID { return c.id }

// Turn returns the controlled turn. It must only be read and mutated on the UI loop.
func (c *Controller) Turn() *Turn { return c.turn }

// Context of the turn's stream.
func (c *Controller) Context() context.Context { return c.ctx }

// Scroll returns the turn's scroll tracker.
func (c *Controller) Scroll() *render.ScrollTracker { return c.scroll }

// Accepts returns true if a message tagged with id targets this controller's turn and the
// turn has not reached a terminal phase. Nil controllers accept nothing.
func (c *Controller) Accepts(id ID) bool {
	return c != nil && c.id == id && !c.turn.Phase.Terminal()
}

// OnFragment implements rag.Handler.
func (c *Controller) OnFragment(text string) {
	c.coordinator.Push(text)
}

// OnComplete implements rag.Handler.
func (c *Controller) OnComplete() {
	c.sink.Done(c.id, c.coordinator.Close(), nil)
}

// OnError implements rag.Handler.
func (c *Controller) OnError(err error) {
	c.sink.Done(c.id, c.coordinator.Close(), err)
}

// Cancel aborts the stream. The terminal outcome still reaches the sink.
func (c *Controller) Cancel() {
	c.cancel()
}

// Release tears the turn's resources down. It is safe to call more than once.
func (c *Controller) Release() {
	c.cancel()
	c.coordinator.Close()
}
