package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/lantasdev/lantas-rag/internal/cache"
	"github.com/lantasdev/lantas-rag/internal/chat"
	"github.com/lantasdev/lantas-rag/internal/compose"
	"github.com/lantasdev/lantas-rag/internal/index"
	"github.com/lantasdev/lantas-rag/internal/intent"
	"github.com/lantasdev/lantas-rag/internal/mail"
	"github.com/lantasdev/lantas-rag/internal/server"
	"github.com/lantasdev/lantas-rag/internal/storage/sqlite"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP chat API",
	Long: `Start the HTTP API for traffic law consultation.

The server answers chat questions (plain and streaming), manages accounts
and chat history, serves law article CRUD, and rebuilds the retrieval index
on demand.

Example:
  lantas-rag serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	provider := newProvider(cfg)
	holder := &index.Holder{}
	manager := newManager(cfg, store, provider, holder)

	if n := manager.Restore(); n > 0 {
		slog.Info("restored persisted index", "documents", n)
	} else {
		// First run: build from whatever sources are available.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		if total, err := manager.Rebuild(ctx); err != nil {
			slog.Warn("initial index build failed", "error", err)
		} else {
			slog.Info("initial index built", "documents", total)
			store.SetMeta(ctx, sqlite.MetaIndexLastBuilt, time.Now().UTC().Format(time.RFC3339))
		}
		cancel()
	}

	classifier := &intent.Classifier{
		Threshold: cfg.Intent.SimilarityThreshold,
	}
	if examples, err := intent.LoadExamples(cfg.Intent.TrainingDataPath); err != nil {
		slog.Warn("training data unavailable, nearest-example layer disabled", "error", err)
	} else {
		classifier.Examples = examples
	}

	chatSvc := &chat.Service{
		Store:      store,
		Search:     newEngine(cfg, holder, provider),
		Classifier: classifier,
		Composer: &compose.Composer{
			Generator: provider,
			Budgets: compose.Budgets{
				MaxDocContextChars:  cfg.Chat.MaxDocContextChars,
				MaxDocBlockChars:    cfg.Chat.MaxDocBlockChars,
				MaxHistoryChars:     cfg.Chat.MaxHistoryChars,
				MaxHistoryTurnChars: cfg.Chat.MaxHistoryTurnChars,
			},
		},
		Prefs:     cache.New(cfg.Cache.PrefTTL, cfg.Cache.PrefCapacity),
		Chat:      cfg.Chat,
		Retrieval: cfg.Retrieval,
	}

	srv := server.New(cfg.Server, chatSvc, store, mail.New(cfg.Mail), manager, holder, provider)
	return srv.ListenAndServe()
}
