package profit

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Persister stores and loads documents.
//
// Load returns an error wrapping fs.ErrNotExist when nothing was saved yet.
type Persister interface {
	Save(ctx context.Context, doc *Document) error
	Load(ctx context.Context) (*Document, error)
}

// autosaver saves documents on its own goroutine. Only the most recent
// pending document is kept: a document submitted while another one is
// waiting replaces it.
type autosaver struct {
	p    Persister
	log  zerolog.Logger
	ch   chan *Document
	done chan struct{}

	mu  sync.Mutex
	err error // last save error
}

func newAutosaver(p Persister, log zerolog.Logger) *autosaver {
	a := &autosaver{
		p:    p,
		log:  log,
		ch:   make(chan *Document, 1),
		done: make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *autosaver) run() {
	defer close(a.done)
	for doc := range a.ch {
		err := a.p.Save(context.Background(), doc)
		if err != nil {
			a.log.Error().Err(err).Msg("autosave failed")
		} else {
			a.log.Debug().Int("transactions", len(doc.Transactions)).Msg("autosaved")
		}
		a.mu.Lock()
		a.err = err
		a.mu.Unlock()
	}
}

// submit queues doc for saving without blocking. Callers must serialize
// calls to submit and close.
func (a *autosaver) submit(doc *Document) {
	for {
		select {
		case a.ch <- doc:
			return
		default:
		}
		// drop the pending document, doc supersedes it.
		select {
		case <-a.ch:
		default:
		}
	}
}

// close saves the pending document, stops the goroutine and returns the
// error of the last save.
func (a *autosaver) close() error {
	close(a.ch)
	<-a.done
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}
