package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lantasdev/lantas-rag/internal/index"
	"github.com/lantasdev/lantas-rag/internal/storage/sqlite"
)

var indexResume bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the retrieval index",
	Long: `Rebuild the retrieval index from the article database and the static
knowledge file, then persist it for the next server start.

In vector mode each new document is embedded through the provider; --resume
keeps documents (and their embeddings) already present in the persisted
index and only embeds what is new.

Examples:
  # Full rebuild
  lantas-rag index

  # Incremental rebuild, reusing persisted embeddings
  lantas-rag index --resume`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)

	indexCmd.Flags().BoolVar(&indexResume, "resume", false, "Reuse documents from the persisted index")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	provider := newProvider(cfg)
	holder := &index.Holder{}
	manager := newManager(cfg, store, provider, holder)
	manager.Resume = indexResume

	if indexResume {
		if n := manager.Restore(); n > 0 {
			fmt.Printf("Resuming from %d persisted documents\n", n)
		}
	}

	total, err := manager.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if err := store.SetMeta(ctx, sqlite.MetaIndexLastBuilt, now); err != nil {
		fmt.Printf("Warning: could not record build time: %v\n", err)
	}

	fmt.Printf("\nIndex build complete:\n")
	fmt.Printf("  Documents: %d\n", total)
	fmt.Printf("  Path:      %s\n", cfg.Index.Path)
	fmt.Printf("  Built at:  %s\n", now)

	return nil
}
