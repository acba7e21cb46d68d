package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lantasdev/lantas-rag/pkg/models"
)

// Manager owns the active snapshot and coordinates rebuilds: gather sources,
// build, persist, swap.
type Manager struct {
	Builder  *Builder
	Holder   *Holder
	Sources  []Source
	Path     string
	// Resume keeps already-built documents (and their embeddings) from the
	// current snapshot instead of rebuilding them.
	Resume bool
}

// Rebuild runs one full build pass and atomically publishes the result. It
// returns the number of indexed documents.
func (m *Manager) Rebuild(ctx context.Context) (int, error) {
	var prior []models.Document
	if m.Resume {
		prior = m.Holder.Load().Documents()
	}

	snap, err := m.Builder.Build(ctx, prior, m.Sources...)
	if err != nil {
		return 0, fmt.Errorf("building index: %w", err)
	}

	if m.Path != "" {
		if err := Save(m.Path, snap.Documents()); err != nil {
			return 0, fmt.Errorf("persisting index: %w", err)
		}
	}

	m.Holder.Swap(snap)
	slog.Info("index published", "documents", snap.Len(), "path", m.Path)
	return snap.Len(), nil
}

// Restore loads the persisted index into the holder at startup. A missing
// file leaves the empty snapshot in place.
func (m *Manager) Restore() int {
	docs := Load(m.Path)
	if len(docs) == 0 {
		return 0
	}
	m.Holder.Swap(NewSnapshot(docs))
	return len(docs)
}
