package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/lantasdev/lantas-rag/pkg/models"
)

func TestManager_RebuildPublishesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	m := &Manager{
		Builder: &Builder{},
		Holder:  &Holder{},
		Path:    path,
		Sources: []Source{&StaticSource{SourceName: models.SourceFile, Items: []models.Article{
			{UU: "UU 22/2009", Pasal: "Pasal 291", LegalText: "Wajib helm standar nasional."},
			{UU: "UU 22/2009", Pasal: "Pasal 287", LegalText: "Patuhi lampu lalu lintas."},
		}}},
	}

	total, err := m.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if total != 2 {
		t.Fatalf("total = %d, want 2", total)
	}
	if m.Holder.Load().Len() != 2 {
		t.Fatal("snapshot not swapped in")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("index not persisted: %v", err)
	}

	fresh := &Manager{Holder: &Holder{}, Path: path}
	if n := fresh.Restore(); n != 2 {
		t.Fatalf("Restore = %d, want 2", n)
	}
	if fresh.Holder.Load().Len() != 2 {
		t.Fatal("restored snapshot not active")
	}
}

func TestManager_RestoreMissingFile(t *testing.T) {
	m := &Manager{Holder: &Holder{}, Path: filepath.Join(t.TempDir(), "absent.json")}
	if n := m.Restore(); n != 0 {
		t.Fatalf("Restore = %d, want 0", n)
	}
	if m.Holder.Load().Len() != 0 {
		t.Fatal("holder should stay empty")
	}
}
