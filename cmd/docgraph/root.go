package docgraph

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile      string
	outputFormat string
	rootCmd      = &cobra.Command{
		Use:   "docgraph",
		Short: "docgraph: knowledge graph retrieval over markdown corpora",
		Long: `docgraph builds a knowledge graph from a tree of cross-linked markdown
documents, indexes every document in a vector store and answers questions
with hybrid vector and graph retrieval.

Typical workflow:
  docgraph build --corpus ./docs
  docgraph index
  docgraph query "What does the lunar package include?" --context`,
		SilenceUsage: true,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.docgraph.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("corpus", "", "corpus root directory")
	rootCmd.PersistentFlags().String("store", "", "vector store driver (memory, badger, neo4j)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format (text, json, yaml)")

	// Bind flags to viper
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("corpus.root", rootCmd.PersistentFlags().Lookup("corpus"))
	viper.BindPFlag("vector_store.driver", rootCmd.PersistentFlags().Lookup("store"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".docgraph" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".docgraph")
	}

	viper.SetEnvPrefix("DOCGRAPH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
