package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ternbird/tern/atn"
	"github.com/ternbird/tern/grammar"
	"github.com/ternbird/tern/issue"
	"github.com/ternbird/tern/spec"
)

func init() {
	cmd := &cobra.Command{
		Use:     "compile grammar.g4",
		Short:   "Compile a grammar into its vocabulary and automaton payload",
		Example: `  tern compile Expr.g4 -o gen`,
		Args:    cobra.ExactArgs(1),
		RunE:    runCompile,
	}
	rootCmd.AddCommand(cmd)
}

func runCompile(cmd *cobra.Command, args []string) error {
	g, mgr, err := processGrammar(args[0])
	if err != nil {
		return err
	}
	if mgr.ErrorCount() > 0 {
		return fmt.Errorf("%v error(s) in %v", mgr.ErrorCount(), args[0])
	}

	outDir := *rootFlags.outDir
	if outDir == "" {
		outDir = filepath.Dir(args[0])
	}
	if err := appFs.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	if lex := g.ImplicitLexer(); lex != nil {
		if err := writeOutputs(outDir, lex); err != nil {
			return err
		}
	}
	return writeOutputs(outDir, g)
}

// processGrammar parses and compiles one grammar file, reporting every
// diagnostic on stderr as it is found.
func processGrammar(path string) (*grammar.Grammar, *issue.Manager, error) {
	format := issue.Format(*rootFlags.format)
	if !format.Valid() {
		return nil, nil, fmt.Errorf("unknown message format %v", *rootFlags.format)
	}

	mgr := issue.NewManager()
	mgr.WarningsAreErrors = *rootFlags.wError
	printer := issue.NewPrinter(os.Stderr, format)
	printer.EchoSourceLines(appFs)
	mgr.AddListener(printer)

	log.Debugf("parsing %v", path)
	f, err := appFs.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open the grammar file %v: %w", path, err)
	}
	defer f.Close()

	root, err := spec.Parse(f)
	if err != nil {
		if synErr, ok := err.(*spec.SyntaxError); ok {
			mgr.Emit(issue.CodeSyntaxError, path,
				issue.NewPosition(synErr.Pos.Row, synErr.Pos.Col), synErr)
			return nil, mgr, fmt.Errorf("%v error(s) in %v", mgr.ErrorCount(), path)
		}
		return nil, nil, err
	}

	res := &fsResolver{
		fs:   appFs,
		dirs: searchDirs(path),
	}

	// Internal invariant violations surface as a single diagnostic
	// instead of a crash.
	g := func() (g *grammar.Grammar) {
		defer func() {
			if r := recover(); r != nil {
				mgr.Emit(issue.CodeInternalError, path, issue.Position{}, r)
			}
		}()
		return grammar.Process(root, path, mgr, res)
	}()

	log.Debugf("%v: %v error(s), %v warning(s)", path, mgr.ErrorCount(), mgr.WarningCount())
	return g, mgr, nil
}

func searchDirs(grammarPath string) []string {
	dirs := []string{filepath.Dir(grammarPath)}
	if *rootFlags.libDir != "" {
		dirs = append(dirs, *rootFlags.libDir)
	}
	return dirs
}

// fsResolver finds imported grammars and token vocabularies next to the
// root grammar and in the library directory.
type fsResolver struct {
	fs   afero.Fs
	dirs []string
}

func (r *fsResolver) LoadGrammar(name string) (*spec.Node, string, error) {
	for _, dir := range r.dirs {
		for _, ext := range []string{".g4", ".g"} {
			path := filepath.Join(dir, name+ext)
			f, err := r.fs.Open(path)
			if err != nil {
				continue
			}
			defer f.Close()
			root, err := spec.Parse(f)
			if err != nil {
				return nil, "", err
			}
			return root, path, nil
		}
	}
	return nil, "", fmt.Errorf("grammar %v not found", name)
}

func (r *fsResolver) LoadTokenVocab(name string) (map[string]int, error) {
	for _, dir := range r.dirs {
		path := filepath.Join(dir, name+".tokens")
		f, err := r.fs.Open(path)
		if err != nil {
			continue
		}
		defer f.Close()
		return grammar.ReadTokenVocab(f)
	}
	return nil, fmt.Errorf("token vocab %v not found", name)
}

// writeOutputs emits <Name>.tokens and <Name>.interp for one grammar.
func writeOutputs(outDir string, g *grammar.Grammar) error {
	serialized, err := atn.Serialize(g.ATN)
	if err != nil {
		return fmt.Errorf("cannot write %v outputs: %w", g.Name, err)
	}

	tokensPath := filepath.Join(outDir, g.Name+".tokens")
	log.Debugf("writing %v", tokensPath)
	tf, err := appFs.Create(tokensPath)
	if err != nil {
		return err
	}
	if err := grammar.WriteTokens(tf, g); err != nil {
		tf.Close()
		return err
	}
	if err := tf.Close(); err != nil {
		return err
	}

	interpPath := filepath.Join(outDir, g.Name+".interp")
	log.Debugf("writing %v", interpPath)
	inf, err := appFs.Create(interpPath)
	if err != nil {
		return err
	}
	if err := grammar.WriteInterp(inf, g, serialized); err != nil {
		inf.Close()
		return err
	}
	return inf.Close()
}
