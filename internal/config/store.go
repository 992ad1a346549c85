package config

import (
	"log/slog"
	"sync"
)

// Persister saves a snapshot of the document to durable storage. Save must
// replace the previous document atomically.
type Persister interface {
	Save(doc *Document) error
}

// FilePersister persists the document as JSON via temp-file rename.
type FilePersister struct {
	Path string
}

// Save implements Persister.
func (p *FilePersister) Save(doc *Document) error {
	return writeDocument(p.Path, doc)
}

// Store owns the document and is the single mutation boundary. Reads take
// the read lock; every mutation happens under the write lock and marks the
// store dirty. Persistence is write-behind: a background flusher saves a
// snapshot after mutations, so no disk I/O ever happens under the lock.
type Store struct {
	mu      sync.RWMutex
	doc     *Document
	persist Persister

	dirty chan struct{}
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once
}

// NewStore wraps doc. A nil persister disables persistence (tests).
func NewStore(doc *Document, persist Persister) *Store {
	s := &Store{
		doc:     doc,
		persist: persist,
		dirty:   make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if persist != nil {
		go s.flushLoop()
	} else {
		close(s.done)
	}
	return s
}

// View runs fn with the document under the read lock. fn must not retain or
// mutate the document.
func (s *Store) View(fn func(*Document)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.doc)
}

// Update runs fn with the document under the write lock and schedules
// persistence when fn succeeds.
func (s *Store) Update(fn func(*Document) error) error {
	s.mu.Lock()
	err := fn(s.doc)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.markDirty()
	return nil
}

// MaterializeGroupBlock lazily copies the default template block for class
// into group groupID. The check and the copy happen under the write lock so
// two concurrent first touches of the same group cannot duplicate the block.
// Returns true when a copy was made; once materialized, the block is an
// independent persisted copy and later edits to the template do not reach it.
func (s *Store) MaterializeGroupBlock(groupID string, class RoleClass) bool {
	s.mu.Lock()
	node := s.doc.Groups[groupID]
	if node == nil {
		node = &ScopeNode{}
		s.doc.Groups[groupID] = node
	}
	if node.Block(class) != nil {
		s.mu.Unlock()
		return false
	}
	copied := s.doc.Groups[DefaultScopeKey].Block(class).Clone()
	if copied == nil {
		copied = &RoleBlock{}
	}
	node.SetBlock(class, copied)
	s.mu.Unlock()

	slog.Info("materialized group role block", "group", groupID, "class", string(class))
	s.markDirty()
	return true
}

// Snapshot returns an independent deep copy of the current document.
func (s *Store) Snapshot() *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

func (s *Store) markDirty() {
	if s.persist == nil {
		return
	}
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

func (s *Store) flushLoop() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			return
		case <-s.dirty:
			if err := s.persist.Save(s.Snapshot()); err != nil {
				slog.Error("config write-behind save failed", "error", err)
			}
		}
	}
}

// Flush synchronously persists the current document.
func (s *Store) Flush() error {
	if s.persist == nil {
		return nil
	}
	return s.persist.Save(s.Snapshot())
}

// Close stops the flusher and performs a final flush.
func (s *Store) Close() error {
	s.once.Do(func() {
		close(s.quit)
	})
	<-s.done
	return s.Flush()
}
