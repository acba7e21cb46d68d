package cmd

import (
	"path/filepath"

	"github.com/lantasdev/lantas-rag/internal/cache"
	"github.com/lantasdev/lantas-rag/internal/config"
	"github.com/lantasdev/lantas-rag/internal/gemini"
	"github.com/lantasdev/lantas-rag/internal/index"
	"github.com/lantasdev/lantas-rag/internal/retrieval"
	"github.com/lantasdev/lantas-rag/internal/storage/sqlite"
)

func openStore(cfg config.Config) (*sqlite.Store, error) {
	return sqlite.New(filepath.Join(cfg.Database.DataDir, "lantas.db"))
}

func newProvider(cfg config.Config) *gemini.Client {
	return gemini.New(gemini.Config{
		Enabled:            cfg.Gemini.Enabled,
		APIKey:             cfg.Gemini.APIKey,
		BaseURL:            cfg.Gemini.BaseURL,
		EmbedModel:         cfg.Gemini.EmbedModel,
		GenModel:           cfg.Gemini.GenModel,
		FallbackModels:     cfg.Gemini.FallbackModels,
		Timeout:            cfg.Gemini.Timeout,
		MaxRetries:         cfg.Gemini.MaxRetries,
		RetryBaseWait:      cfg.Gemini.RetryBaseWait,
		EmbedCacheTTL:      cfg.Cache.EmbedTTL,
		EmbedCacheCapacity: cfg.Cache.EmbedCapacity,
	})
}

func newManager(cfg config.Config, store *sqlite.Store, provider *gemini.Client, holder *index.Holder) *index.Manager {
	return &index.Manager{
		Builder: &index.Builder{
			Embedder:   provider,
			VectorMode: cfg.Retrieval.Mode == "vector" && provider.Enabled(),
			EmbedDelay: cfg.Index.EmbedDelay,
		},
		Holder: holder,
		Path:   cfg.Index.Path,
		Sources: []index.Source{
			&index.DatabaseSource{Store: store},
			&index.FileSource{Path: cfg.Index.KnowledgePath},
		},
	}
}

// newEngine returns the retrieval engine for the configured mode. Vector mode
// keeps a lexical engine behind it so provider outages degrade instead of
// failing the request.
func newEngine(cfg config.Config, holder *index.Holder, provider *gemini.Client) retrieval.Engine {
	lexical := &retrieval.Lexical{
		Snapshots:     holder,
		KeywordWeight: cfg.Retrieval.KeywordWeight,
	}
	if cfg.Retrieval.Mode != "vector" || !provider.Enabled() {
		return lexical
	}
	return &retrieval.Fallback{
		Primary: &retrieval.Vector{
			Snapshots: holder,
			Embedder:  provider,
			Results:   cache.New(cfg.Cache.ResultTTL, cfg.Cache.ResultCapacity),
		},
		Secondary: lexical,
	}
}
