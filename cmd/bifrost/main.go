// Package main provides the Bifrost CLI entry point.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/orneryd/bifrost/pkg/automaton"
	"github.com/orneryd/bifrost/pkg/config"
	"github.com/orneryd/bifrost/pkg/query"
	"github.com/orneryd/bifrost/pkg/storage"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

var (
	flagConfig   string
	flagDataDir  string
	flagInMemory bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bifrost",
		Short: "Bifrost property-path evaluation engine",
		Long: `Bifrost evaluates regular-expression path constraints over an
indexed edge store, enumerating every node reachable from an anchor via a
matching path.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: auto-detect bifrost.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagInMemory, "in-memory", false, "keep the store in RAM (overrides config)")

	rootCmd.AddCommand(newLoadCmd(), newReachCmd(), newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := flagConfig
	if path == "" {
		path = config.FindConfigFile()
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = flagDataDir
	}
	if cmd.Flags().Changed("in-memory") {
		cfg.InMemory = flagInMemory
	}
	return cfg, cfg.Validate()
}

func openEngine(cfg *config.Config) (storage.Engine, error) {
	return storage.NewBadgerEngineWithOptions(storage.BadgerOptions{
		DataDir:    cfg.DataDir,
		InMemory:   cfg.InMemory,
		SyncWrites: cfg.SyncWrites,
	})
}

// newLoadCmd reads a whitespace-separated "from type to" edge list and
// stores it, creating endpoints on first sight.
func newLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <file>",
		Short: "Load an edge list (one 'from type to' triple per line)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			engine, err := openEngine(cfg)
			if err != nil {
				return err
			}
			defer engine.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			nodes, edges := 0, 0
			scanner := bufio.NewScanner(f)
			for lineNo := 1; scanner.Scan(); lineNo++ {
				line := strings.TrimSpace(scanner.Text())
				if line == "" || strings.HasPrefix(line, "#") {
					continue
				}
				fields := strings.Fields(line)
				if len(fields) != 3 {
					return fmt.Errorf("line %d: want 'from type to', got %q", lineNo, line)
				}
				from, edgeType, to := storage.NodeID(fields[0]), fields[1], storage.NodeID(fields[2])

				for _, id := range []storage.NodeID{from, to} {
					err := engine.CreateNode(id)
					if err == nil {
						nodes++
					} else if err != storage.ErrAlreadyExists {
						return err
					}
				}
				if err := engine.CreateEdge(&storage.Edge{From: from, Type: edgeType, To: to}); err != nil {
					return err
				}
				edges++
			}
			if err := scanner.Err(); err != nil {
				return err
			}

			log.Printf("loaded %d nodes, %d edges into %s", nodes, edges, cfg.DataDir)
			return nil
		},
	}
}

// newReachCmd evaluates a single-label closure pattern from an anchor node
// and prints every reachable node.
func newReachCmd() *cobra.Command {
	var (
		from    string
		label   string
		closure string
		reverse bool
		explain bool
	)

	cmd := &cobra.Command{
		Use:   "reach",
		Short: "Enumerate nodes reachable via a labeled path pattern",
		Example: `  bifrost reach --from alice --label KNOWS --closure star
  bifrost reach --from q1 --label cites --closure plus --reverse`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			engine, err := openEngine(cfg)
			if err != nil {
				return err
			}
			defer engine.Close()

			auto, err := buildAutomaton(label, closure)
			if err != nil {
				return err
			}
			if reverse {
				// Pattern anchored at its end: forward search over the
				// reversed automaton from the same anchor.
				auto = auto.Reverse()
			}

			const (
				varEnd query.VarID = iota
				numVars
			)
			binding := query.NewBinding(int(numVars))
			op := query.NewPathEnum(engine, query.Constant(storage.NodeID(from)), varEnd, query.NoVar, auto)

			if err := op.Begin(context.Background(), binding); err != nil {
				return err
			}
			for {
				ok, err := op.Next()
				if err != nil {
					return err
				}
				if !ok {
					break
				}
				end, _ := binding.Get(varEnd)
				fmt.Println(end)
			}

			if explain {
				op.Analyze(os.Stderr, 0)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "anchor node ID (required)")
	cmd.Flags().StringVar(&label, "label", "", "edge type to follow (required)")
	cmd.Flags().StringVar(&closure, "closure", "once", "closure operator: once, opt, star, plus")
	cmd.Flags().BoolVar(&reverse, "reverse", false, "anchor is the path's end; traverse edges in reverse")
	cmd.Flags().BoolVar(&explain, "explain", false, "print the operator's analyze line to stderr")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("label")

	return cmd
}

func buildAutomaton(label, closure string) (*automaton.PathAutomaton, error) {
	switch closure {
	case "once":
		return automaton.SingleLabel(label), nil
	case "opt":
		return automaton.SingleLabelOptional(label), nil
	case "star":
		return automaton.SingleLabelStar(label), nil
	case "plus":
		return automaton.SingleLabelPlus(label), nil
	default:
		return nil, fmt.Errorf("unknown closure %q (want once, opt, star or plus)", closure)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("bifrost %s (%s)\n", version, commit)
		},
	}
}
