package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server    Server    `mapstructure:"server"`
	Database  Database  `mapstructure:"database"`
	Gemini    Gemini    `mapstructure:"gemini"`
	Retrieval Retrieval `mapstructure:"retrieval"`
	Intent    Intent    `mapstructure:"intent"`
	Chat      Chat      `mapstructure:"chat"`
	Index     Index     `mapstructure:"index"`
	Cache     Cache     `mapstructure:"cache"`
	Mail      Mail      `mapstructure:"mail"`
	MCP       MCP       `mapstructure:"mcp"`
}

// Server holds HTTP API configuration.
type Server struct {
	Addr              string   `mapstructure:"addr"`
	CORSAllowOrigins  []string `mapstructure:"cors_allow_origins"`
	RequestsPerMinute int      `mapstructure:"requests_per_minute"`
	StreamChunkSize   int      `mapstructure:"stream_chunk_size"`
	FeedbackPath      string   `mapstructure:"feedback_path"`
}

// Database holds the SQLite store location.
type Database struct {
	DataDir string `mapstructure:"data_dir"`
}

// Gemini holds the generative/embedding provider configuration.
type Gemini struct {
	Enabled        bool          `mapstructure:"enabled"`
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	EmbedModel     string        `mapstructure:"embed_model"`
	GenModel       string        `mapstructure:"gen_model"`
	FallbackModels []string      `mapstructure:"fallback_models"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBaseWait  time.Duration `mapstructure:"retry_base_wait"`
}

// Retrieval holds search configuration.
type Retrieval struct {
	Mode          string  `mapstructure:"mode"` // vector | lexical
	TopK          int     `mapstructure:"top_k"`
	MinScore      float64 `mapstructure:"min_score"`
	KeywordWeight float64 `mapstructure:"keyword_weight"`
}

// Intent holds intent classifier configuration.
type Intent struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	TrainingDataPath    string  `mapstructure:"training_data_path"`
}

// Chat holds prompt and history budgets.
type Chat struct {
	HistoryTurns        int `mapstructure:"history_turns"`
	MaxHistoryChars     int `mapstructure:"max_history_chars"`
	MaxDocContextChars  int `mapstructure:"max_doc_context_chars"`
	MaxDocBlockChars    int `mapstructure:"max_doc_block_chars"`
	MaxHistoryTurnChars int `mapstructure:"max_history_turn_chars"`
}

// Index holds index build and persistence configuration.
type Index struct {
	Path          string        `mapstructure:"path"`
	KnowledgePath string        `mapstructure:"knowledge_path"`
	EmbedDelay    time.Duration `mapstructure:"embed_delay"`
}

// Cache holds TTLs and capacities for the in-memory caches.
type Cache struct {
	EmbedTTL       time.Duration `mapstructure:"embed_ttl"`
	EmbedCapacity  int           `mapstructure:"embed_capacity"`
	ResultTTL      time.Duration `mapstructure:"result_ttl"`
	ResultCapacity int           `mapstructure:"result_capacity"`
	PrefTTL        time.Duration `mapstructure:"pref_ttl"`
	PrefCapacity   int           `mapstructure:"pref_capacity"`
}

// Mail holds SMTP configuration for password-reset mail.
type Mail struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	ResetURL string `mapstructure:"reset_url"`
}

// MCP holds MCP server configuration.
type MCP struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Server: Server{
			Addr:              ":8000",
			CORSAllowOrigins:  []string{"*"},
			RequestsPerMinute: 60,
			StreamChunkSize:   80,
			FeedbackPath:      "data/feedback.jsonl",
		},
		Database: Database{
			DataDir: "data",
		},
		Gemini: Gemini{
			Enabled:        false, // Requires an API key
			BaseURL:        "https://generativelanguage.googleapis.com/v1beta",
			EmbedModel:     "gemini-embedding-001",
			GenModel:       "gemini-2.5-flash",
			FallbackModels: []string{"gemini-2.0-flash", "gemini-1.5-flash"},
			Timeout:        30 * time.Second,
			MaxRetries:     5,
			RetryBaseWait:  30 * time.Second,
		},
		Retrieval: Retrieval{
			Mode:          "lexical",
			TopK:          3,
			MinScore:      0.1,
			KeywordWeight: 0.3,
		},
		Intent: Intent{
			SimilarityThreshold: 0.25,
			TrainingDataPath:    "data/question_train_data.json",
		},
		Chat: Chat{
			HistoryTurns:        8,
			MaxHistoryChars:     1600,
			MaxDocContextChars:  2400,
			MaxDocBlockChars:    1400,
			MaxHistoryTurnChars: 260,
		},
		Index: Index{
			Path:          "data/traffic_law_index.json",
			KnowledgePath: "data/traffic_law_knowledge.json",
			EmbedDelay:    1 * time.Second,
		},
		Cache: Cache{
			EmbedTTL:       time.Hour,
			EmbedCapacity:  3000,
			ResultTTL:      15 * time.Minute,
			ResultCapacity: 3000,
			PrefTTL:        time.Hour,
			PrefCapacity:   5000,
		},
		Mail: Mail{
			Host: "localhost",
			Port: 25,
			From: "no-reply@lantas-rag.local",
		},
		MCP: MCP{
			Name:    "lantas-rag",
			Version: "1.0.0",
		},
	}
}
