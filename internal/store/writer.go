package store

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coopsweeper/server/internal/game"
)

// saveTimeout bounds a single Save so a stuck backend cannot wedge the queue.
const saveTimeout = 5 * time.Second

// Writer persists snapshots asynchronously, in the order they were enqueued.
// Enqueue never blocks, so it is safe to call from an engine listener.
type Writer struct {
	st    Store
	queue chan *game.Snapshot
}

// NewWriter creates a Writer with a queue of the given capacity.
func NewWriter(st Store, capacity int) *Writer {
	if capacity <= 0 {
		capacity = 256
	}
	return &Writer{st: st, queue: make(chan *game.Snapshot, capacity)}
}

// Enqueue schedules s for saving. It reports false (and logs) when the queue is full;
// the live game is unaffected, only history may lag.
func (w *Writer) Enqueue(s *game.Snapshot) bool {
	if s == nil {
		return false
	}
	select {
	case w.queue <- s:
		return true
	default:
		log.Warn().Str("component", "writer").Str("gameId", s.ID).Msg("snapshot queue full, dropping write")
		return false
	}
}

// Listener adapts the writer to game.Listener.
func (w *Writer) Listener() game.Listener {
	return func(ev game.Event) { w.Enqueue(ev.Snapshot) }
}

// Run saves queued snapshots until ctx is cancelled, then drains what is left.
func (w *Writer) Run(ctx context.Context) error {
	log.Info().Str("component", "writer").Msg("snapshot writer running")
	for {
		select {
		case s := <-w.queue:
			w.save(context.Background(), s)
		case <-ctx.Done():
			w.drain()
			log.Info().Str("component", "writer").Msg("snapshot writer stopped")
			return nil
		}
	}
}

func (w *Writer) drain() {
	for {
		select {
		case s := <-w.queue:
			w.save(context.Background(), s)
		default:
			return
		}
	}
}

func (w *Writer) save(parent context.Context, s *game.Snapshot) {
	ctx, cancel := context.WithTimeout(parent, saveTimeout)
	defer cancel()
	if err := w.st.Save(ctx, s); err != nil {
		log.Warn().Err(err).Str("component", "writer").Str("gameId", s.ID).Str("status", string(s.Status)).
			Msg("persist snapshot")
	}
}
