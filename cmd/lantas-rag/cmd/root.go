package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lantasdev/lantas-rag/internal/config"
)

var (
	cfgFile string
	verbose bool
	cfg     config.Config
)

// GetConfig returns the loaded configuration.
func GetConfig() config.Config {
	return cfg
}

var rootCmd = &cobra.Command{
	Use:   "lantas-rag",
	Short: "LANTAS-RAG: A retrieval-augmented traffic law consultation service",
	Long: `LANTAS-RAG indexes Indonesian traffic law articles (UU No. 22 Tahun 2009),
retrieves the relevant pasal for a question, and composes grounded answers
with layered intent detection and conversational memory.

Commands:
  serve   Start the HTTP chat API
  index   Rebuild the retrieval index from the database and knowledge file
  mcp     Start the MCP server for article retrieval
  search  Search the indexed articles from the command line`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func initLogger() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func initConfig() {
	// .env is optional; real deployments set env vars directly.
	godotenv.Load()

	cfg = config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/lantas-rag")
		viper.AddConfigPath(".")
	}

	// Environment variable overrides
	// LANTASRAG_SERVER_ADDR -> server.addr
	viper.SetEnvPrefix("LANTASRAG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Explicitly bind nested env vars
	viper.BindEnv("server.addr", "LANTASRAG_SERVER_ADDR")
	viper.BindEnv("server.requests_per_minute", "LANTASRAG_SERVER_REQUESTS_PER_MINUTE")
	viper.BindEnv("database.data_dir", "LANTASRAG_DATABASE_DATA_DIR")
	viper.BindEnv("gemini.api_key", "LANTASRAG_GEMINI_API_KEY", "GEMINI_API_KEY")
	viper.BindEnv("gemini.gen_model", "LANTASRAG_GEMINI_GEN_MODEL")
	viper.BindEnv("gemini.embed_model", "LANTASRAG_GEMINI_EMBED_MODEL")
	viper.BindEnv("retrieval.mode", "LANTASRAG_RETRIEVAL_MODE")
	viper.BindEnv("retrieval.top_k", "LANTASRAG_RETRIEVAL_TOP_K")
	viper.BindEnv("index.path", "LANTASRAG_INDEX_PATH")
	viper.BindEnv("index.knowledge_path", "LANTASRAG_INDEX_KNOWLEDGE_PATH")
	viper.BindEnv("intent.training_data_path", "LANTASRAG_INTENT_TRAINING_DATA_PATH")
	viper.BindEnv("mail.host", "LANTASRAG_MAIL_HOST", "SMTP_HOST")
	viper.BindEnv("mail.port", "LANTASRAG_MAIL_PORT", "SMTP_PORT")
	viper.BindEnv("mail.username", "LANTASRAG_MAIL_USERNAME", "SMTP_USERNAME")
	viper.BindEnv("mail.password", "LANTASRAG_MAIL_PASSWORD", "SMTP_PASSWORD")
	viper.BindEnv("mail.from", "LANTASRAG_MAIL_FROM", "SMTP_FROM")
	viper.BindEnv("mail.reset_url", "LANTASRAG_MAIL_RESET_URL")
	viper.BindEnv("mcp.name", "LANTASRAG_MCP_NAME")
	viper.BindEnv("mcp.version", "LANTASRAG_MCP_VERSION")

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("config file error", "error", err)
		}
		// No config file - use defaults + env vars
	}

	// Unmarshal into struct (merges config file with defaults)
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Warn("failed to parse config", "error", err)
	}

	// An API key implies the provider should run.
	if cfg.Gemini.APIKey != "" {
		cfg.Gemini.Enabled = true
	}
}
