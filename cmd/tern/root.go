package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var rootFlags = struct {
	configPath *string
	verbose    *bool
	format     *string
	outDir     *string
	libDir     *string
	wError     *bool
}{}

// appFs is the file-system the tool reads grammars from and writes outputs
// to; tests swap it for a memory fs.
var appFs afero.Fs = afero.NewOsFs()

var log = logrus.New()

var rootCmd = &cobra.Command{
	Use:   "tern",
	Short: "Compile grammars into an ATN and static lookahead decisions",
	Long: `tern compiles a grammar describing a language's lexical and syntactic
structure: it validates the grammar, builds the augmented transition
network, computes which decisions are predictable with one token of
lookahead, and emits the vocabulary and automaton payload a code
generator consumes.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootFlags.configPath = rootCmd.PersistentFlags().String("config", "", "tool config file (default tern.yaml when present)")
	rootFlags.verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	rootFlags.format = rootCmd.PersistentFlags().String("message-format", "antlr", "diagnostic location format: antlr, gnu, or vs2005")
	rootFlags.outDir = rootCmd.PersistentFlags().StringP("output", "o", "", "output directory (default alongside the grammar)")
	rootFlags.libDir = rootCmd.PersistentFlags().String("lib", "", "directory searched for imported grammars and token vocabularies")
	rootFlags.wError = rootCmd.PersistentFlags().Bool("warnings-are-errors", false, "treat warnings as errors")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(appFs, *rootFlags.configPath)
		if err != nil {
			return err
		}
		applyConfig(cfg)
		if *rootFlags.verbose {
			log.SetLevel(logrus.DebugLevel)
		}
		return nil
	}
}

func Execute() error {
	return rootCmd.Execute()
}
