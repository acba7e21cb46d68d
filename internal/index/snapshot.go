// Package index builds and holds the searchable corpus. A build pass
// normalizes articles from one or more sources into documents, de-duplicates
// across sources, and optionally attaches embeddings. The resulting snapshot
// is immutable; rebuilds publish a complete new snapshot with an atomic
// pointer swap so concurrent readers never observe partial state.
package index

import (
	"sync/atomic"
	"time"

	"github.com/lantasdev/lantas-rag/pkg/models"
)

// Snapshot is an immutable, ordered document corpus.
type Snapshot struct {
	docs    []models.Document
	builtAt time.Time
}

// NewSnapshot wraps docs in a snapshot stamped with the build time.
func NewSnapshot(docs []models.Document) *Snapshot {
	return &Snapshot{docs: docs, builtAt: time.Now().UTC()}
}

// Documents returns the ordered document slice. Callers must not mutate it.
func (s *Snapshot) Documents() []models.Document {
	if s == nil {
		return nil
	}
	return s.docs
}

// Len reports the number of indexed documents.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.docs)
}

// BuiltAt reports when the snapshot was constructed.
func (s *Snapshot) BuiltAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.builtAt
}

// Holder is the process-wide active snapshot. Reads are wait-free; a rebuild
// swaps in a new snapshot wholesale.
type Holder struct {
	ptr atomic.Pointer[Snapshot]
}

// Load returns the active snapshot. Before the first swap it returns an
// empty snapshot, never nil.
func (h *Holder) Load() *Snapshot {
	if s := h.ptr.Load(); s != nil {
		return s
	}
	return &Snapshot{}
}

// Swap atomically replaces the active snapshot.
func (h *Holder) Swap(s *Snapshot) {
	h.ptr.Store(s)
}
