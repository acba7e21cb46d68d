package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lantasdev/lantas-rag/internal/index"
)

var (
	searchLimit  int
	searchFormat string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed law articles",
	Long: `Search the persisted retrieval index from the command line.

Examples:
  # Basic search
  lantas-rag search "sanksi tidak pakai helm"

  # Limit results
  lantas-rag search "batas kecepatan" --limit 5

  # JSON output for scripting
  lantas-rag search "lampu merah" --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "Maximum number of results")
	searchCmd.Flags().StringVar(&searchFormat, "format", "text", "Output format: text or json")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	query := args[0]
	cfg := GetConfig()

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	provider := newProvider(cfg)
	holder := &index.Holder{}
	manager := newManager(cfg, store, provider, holder)
	if manager.Restore() == 0 {
		if _, err := manager.Rebuild(ctx); err != nil {
			return fmt.Errorf("no persisted index and rebuild failed: %w", err)
		}
	}

	engine := newEngine(cfg, holder, provider)
	docs, err := engine.Search(ctx, query, searchLimit, 0)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(docs) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	if searchFormat == "json" {
		output, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(docs))
	for i, doc := range docs {
		fmt.Printf("─── Result %d ───\n", i+1)
		fmt.Printf("Title:   %s\n", doc.Title)
		fmt.Printf("UU:      %s\n", doc.UU)
		fmt.Printf("Pasal:   %s\n", doc.Pasal)
		fmt.Printf("Score:   %.3f\n", doc.Score)

		body := doc.Body
		if len(body) > 500 {
			body = body[:500] + "..."
		}
		fmt.Printf("Isi:\n%s\n\n", body)
	}

	return nil
}
