package mcpserver

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/lantasdev/lantas-rag/internal/index"
	"github.com/lantasdev/lantas-rag/internal/retrieval"
	"github.com/lantasdev/lantas-rag/internal/storage/sqlite"
	"github.com/lantasdev/lantas-rag/pkg/models"
)

func testDeps(t *testing.T) (retrieval.Engine, *sqlite.Store, *index.Holder) {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "lantas.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	holder := &index.Holder{}
	holder.Swap(index.NewSnapshot([]models.Document{
		{
			ID:    "uu22-291",
			Title: "UU No. 22 Tahun 2009 Pasal 291",
			UU:    "UU No. 22 Tahun 2009",
			Pasal: "Pasal 291",
			Body:  "Setiap pengendara sepeda motor wajib mengenakan helm standar nasional.",
		},
	}))
	return &retrieval.Lexical{Snapshots: holder}, store, holder
}

func TestServer_Creation(t *testing.T) {
	search, store, holder := testDeps(t)
	s := NewServer(Config{Name: "lantas-rag", Version: "1.0.0"}, search, store, holder)

	if s == nil {
		t.Fatal("NewServer() returned nil")
	}
	if s.mcpServer == nil {
		t.Error("mcpServer should not be nil")
	}
}

func TestServer_Search(t *testing.T) {
	search, store, holder := testDeps(t)
	s := NewServer(Config{Name: "lantas-rag", Version: "1.0.0"}, search, store, holder)

	results, err := s.handleSearch(context.Background(), "wajib pakai helm", 5)
	if err != nil {
		t.Fatalf("handleSearch() error = %v", err)
	}
	if len(results) == 0 {
		t.Fatal("handleSearch() should return results for 'wajib pakai helm'")
	}
	if results[0].Pasal != "Pasal 291" {
		t.Errorf("Pasal = %q, want %q", results[0].Pasal, "Pasal 291")
	}
	if len(results[0].Body) == 0 || results[0].Score <= 0 {
		t.Errorf("result not populated: %+v", results[0])
	}
}

func TestServer_SearchEmptyIndex(t *testing.T) {
	_, store, _ := testDeps(t)
	empty := &index.Holder{}
	s := NewServer(Config{Name: "lantas-rag", Version: "1.0.0"},
		&retrieval.Lexical{Snapshots: empty}, store, empty)

	results, err := s.handleSearch(context.Background(), "helm", 5)
	if err != nil {
		t.Fatalf("handleSearch() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestServer_GetArticleFromStore(t *testing.T) {
	search, store, holder := testDeps(t)
	s := NewServer(Config{Name: "lantas-rag", Version: "1.0.0"}, search, store, holder)

	art, err := store.CreateArticle(context.Background(), models.Article{
		UU: "UU No. 22 Tahun 2009", Pasal: "Pasal 106",
		LegalText: "Pengemudi wajib mengemudikan kendaraan dengan wajar dan penuh konsentrasi.",
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.store.GetArticle(context.Background(), art.ID)
	if err != nil {
		t.Fatalf("GetArticle() error = %v", err)
	}
	if got.Pasal != "Pasal 106" {
		t.Errorf("Pasal = %q", got.Pasal)
	}

	if _, err := s.store.GetArticle(context.Background(), 9999); err == nil {
		t.Error("missing article should fail")
	}
}
