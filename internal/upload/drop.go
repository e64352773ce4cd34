package upload

import (
	"context"
	"sync"

	"filedrop/pkg/logger"
)

// DropEventType tags a DropEvent.
type DropEventType int

const (
	DropHoverStarted DropEventType = iota
	DropCancelled
	DropCompleted
)

func (t DropEventType) String() string {
	switch t {
	case DropHoverStarted:
		return "hover"
	case DropCancelled:
		return "cancelled"
	case DropCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// DropEvent is one notification from the host's drag-and-drop channel.
// Paths is set only for DropCompleted.
type DropEvent struct {
	Type  DropEventType
	Paths []string
}

// DropChannel delivers drop events. The returned function releases the
// subscription and must be called exactly once.
type DropChannel interface {
	Subscribe() (<-chan DropEvent, func())
}

// DropState is the hover state of the widget.
type DropState int

const (
	DropIdle DropState = iota
	DropHovering
)

// DropController feeds one drop subscription into a session through the
// shared import pipeline.
type DropController struct {
	importer *Importer
	log      *logger.Logger

	mu            sync.Mutex
	state         DropState
	onHoverChange func(hovering bool)

	events      <-chan DropEvent
	unsubscribe func()
	closeOnce   sync.Once
}

// NewDropController subscribes to channel immediately. Call Close when the
// widget is torn down.
func NewDropController(channel DropChannel, importer *Importer) *DropController {
	events, unsubscribe := channel.Subscribe()
	return &DropController{
		importer:    importer,
		log:         logger.GetInstance(),
		events:      events,
		unsubscribe: unsubscribe,
	}
}

// SetOnHoverChange sets the callback for hover state transitions.
func (dc *DropController) SetOnHoverChange(fn func(hovering bool)) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	dc.onHoverChange = fn
}

// State returns the current hover state.
func (dc *DropController) State() DropState {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.state
}

// Run dispatches events until ctx is done or the channel is closed.
func (dc *DropController) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-dc.events:
			if !ok {
				return
			}
			dc.Handle(ctx, ev)
		}
	}
}

// Handle applies a single event. Run calls it for each received event.
func (dc *DropController) Handle(ctx context.Context, ev DropEvent) {
	switch ev.Type {
	case DropHoverStarted:
		dc.setState(DropHovering)
	case DropCancelled:
		dc.setState(DropIdle)
	case DropCompleted:
		dc.setState(DropIdle)
		dc.log.Infof("drop received with %d paths", len(ev.Paths))
		dc.importer.Import(ctx, ev.Paths)
	}
}

// Close releases the drop subscription. It is safe to call more than once.
func (dc *DropController) Close() {
	dc.closeOnce.Do(func() {
		if dc.unsubscribe != nil {
			dc.unsubscribe()
		}
	})
}

func (dc *DropController) setState(state DropState) {
	dc.mu.Lock()
	if dc.state == state {
		dc.mu.Unlock()
		return
	}
	dc.state = state
	fn := dc.onHoverChange
	dc.mu.Unlock()

	if fn != nil {
		fn(state == DropHovering)
	}
}
