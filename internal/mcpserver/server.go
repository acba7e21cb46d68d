// Package mcpserver exposes the article index over the Model Context
// Protocol so editor agents can search traffic law articles directly.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lantasdev/lantas-rag/internal/index"
	"github.com/lantasdev/lantas-rag/internal/retrieval"
	"github.com/lantasdev/lantas-rag/internal/storage/sqlite"
	"github.com/lantasdev/lantas-rag/pkg/models"
)

// Config holds MCP server identity.
type Config struct {
	Name    string
	Version string
}

// ArticleStore is the subset of the SQLite store the MCP tools need.
type ArticleStore interface {
	GetArticle(ctx context.Context, id int64) (models.Article, error)
	GetMeta(ctx context.Context, key string) (string, error)
}

// Server wraps the MCP server around the retrieval engine and article store.
type Server struct {
	mcpServer *server.MCPServer
	search    retrieval.Engine
	store     ArticleStore
	snapshots *index.Holder
}

// searchResult is the wire shape of one search hit. Embeddings are omitted
// to keep tool output small.
type searchResult struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	UU        string  `json:"uu,omitempty"`
	Pasal     string  `json:"pasal,omitempty"`
	LegalText string  `json:"legal_text,omitempty"`
	Body      string  `json:"body"`
	Score     float64 `json:"score"`
}

// NewServer creates the MCP server and registers the tools.
func NewServer(config Config, search retrieval.Engine, store ArticleStore, snapshots *index.Holder) *Server {
	mcpServer := server.NewMCPServer(
		config.Name,
		config.Version,
		server.WithToolCapabilities(true),
	)

	s := &Server{
		mcpServer: mcpServer,
		search:    search,
		store:     store,
		snapshots: snapshots,
	}

	searchTool := mcp.NewTool("search_articles",
		mcp.WithDescription("Search indexed Indonesian traffic law articles by query. Returns scored matches with legal text."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query string"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results to return (default: 5)"),
		),
	)
	mcpServer.AddTool(searchTool, s.searchHandler)

	getTool := mcp.NewTool("get_article",
		mcp.WithDescription("Get a specific law article from the database by numeric ID"),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Article ID to retrieve"),
		),
	)
	mcpServer.AddTool(getTool, s.getArticleHandler)

	statusTool := mcp.NewTool("index_status",
		mcp.WithDescription("Report how many documents are indexed and when the index was last rebuilt"),
	)
	mcpServer.AddTool(statusTool, s.indexStatusHandler)

	return s
}

// searchHandler handles the search_articles tool call.
func (s *Server) searchHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query parameter is required"), nil
	}

	limit := req.GetInt("limit", 5)

	results, err := s.handleSearch(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	payload, err := json.Marshal(results)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}

	return mcp.NewToolResultText(string(payload)), nil
}

// getArticleHandler handles the get_article tool call.
func (s *Server) getArticleHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	art, err := s.store.GetArticle(ctx, int64(id))
	if errors.Is(err, sqlite.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("article not found: %d", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get article failed: %v", err)), nil
	}

	payload, err := json.Marshal(art)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal article: %v", err)), nil
	}

	return mcp.NewToolResultText(string(payload)), nil
}

// indexStatusHandler handles the index_status tool call.
func (s *Server) indexStatusHandler(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := map[string]any{
		"indexed_documents": s.snapshots.Load().Len(),
	}
	if v, err := s.store.GetMeta(ctx, sqlite.MetaIndexLastBuilt); err == nil {
		status["last_built_at"] = v
	}

	payload, err := json.Marshal(status)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal status: %v", err)), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}

// handleSearch runs the retrieval engine without a score floor so the agent
// sees weak matches too.
func (s *Server) handleSearch(ctx context.Context, query string, limit int) ([]searchResult, error) {
	docs, err := s.search.Search(ctx, query, limit, 0)
	if err != nil {
		return nil, err
	}
	results := make([]searchResult, 0, len(docs))
	for _, d := range docs {
		results = append(results, searchResult{
			ID:        d.ID,
			Title:     d.Title,
			UU:        d.UU,
			Pasal:     d.Pasal,
			LegalText: d.LegalText,
			Body:      d.Body,
			Score:     d.Score,
		})
	}
	return results, nil
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
