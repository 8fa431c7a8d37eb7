package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/entailrag/internal/model"
)

// Version is set at build time via -ldflags
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "entailrag",
	Short: "entailrag - retrieval-augmented QA with entailment-filtered evidence",
	Long: `entailrag answers questions from a text corpus and compares three pipelines:

  baseline   retrieve, then generate from every retrieved passage
  nli        keep passages that entail the claim as a whole
  subclaim   split compound claims ("A and B are both ...") into sub-claims
             and keep passages that entail any of them

When filtering keeps nothing, the retrieved passages are used unchanged.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("entailrag %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.entailrag/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(home + "/.entailrag")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match ENTAILRAG_* (ENTAILRAG_PIPELINE_TOP_K, ...)
	viper.SetEnvPrefix("ENTAILRAG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := setDefaults(viper.GetViper(), model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering config defaults: %v\n", err)
	}

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every key of cfg so env overrides reach nested fields
func setDefaults(v *viper.Viper, cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}
	flattenDefaults(v, "", tree)
	return nil
}

func flattenDefaults(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			flattenDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// loadConfig merges defaults, config file and environment into a model.Config
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyEnvKeys(cfg)
	return cfg, nil
}

// applyEnvKeys fills provider credentials from the conventional variables
func applyEnvKeys(cfg *model.Config) {
	for _, c := range []*model.LLMConfig{&cfg.Embedder, &cfg.Generator} {
		switch strings.ToLower(c.Provider) {
		case "openai":
			if c.APIKey == "" {
				c.APIKey = os.Getenv("OPENAI_API_KEY")
			}
		case "anthropic", "claude":
			if c.APIKey == "" {
				c.APIKey = os.Getenv("ANTHROPIC_API_KEY")
			}
		case "ollama":
			if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" && c.BaseURL == "" {
				c.BaseURL = baseURL
			}
		}
	}
	if cfg.NLI.APIKey == "" {
		cfg.NLI.APIKey = os.Getenv("NLI_API_KEY")
	}
}

// newLogger writes text logs to stderr; debug level with --verbose
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose || viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
