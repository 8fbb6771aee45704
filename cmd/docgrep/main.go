// Package main provides the docgrep CLI for managing the document index.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/docgrep/docgrep/internal/config"
	"github.com/docgrep/docgrep/internal/engine"
	"github.com/docgrep/docgrep/internal/ingest"
	"github.com/docgrep/docgrep/internal/markdown"
	"github.com/docgrep/docgrep/internal/setup"
	ghclient "github.com/docgrep/docgrep/internal/source/github"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "docgrep",
	Short: "Semantic document store and retrieval tool",
	Long: `docgrep stores documents as token-bounded chunks with embeddings and
answers semantic relevance queries against them.

Environment variables:
  OPENAI_API_KEY OpenAI API key for embeddings (required)
  GITHUB_TOKEN   GitHub token for the sync command (optional)`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ./docgrep.yaml, then ~/.config/docgrep/config.yaml)")
	rootCmd.AddCommand(storeCmd, getCmd, rmCmd, mvCmd, lsCmd, treeCmd, queryCmd, reembedCmd, syncCmd)

	storeCmd.Flags().String("mime", "", "MIME type of the content")
	storeCmd.Flags().String("path", "", "original filesystem path to record")
	storeCmd.Flags().StringToString("tag", nil, "metadata tag, key=value (repeatable)")
	storeCmd.Flags().Bool("no-split", false, "store as a single chunk regardless of size")
	storeCmd.Flags().Bool("binary", false, "treat input as binary content")

	mvCmd.Flags().Bool("no-split", false, "store the moved document as a single chunk")
	lsCmd.Flags().BoolP("recursive", "r", false, "include documents in nested folders")
	queryCmd.Flags().Int("budget", 0, "token budget for selected chunks (default: config max_total_tokens)")
}

func main() {
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// buildSystem loads configuration and wires the stores, engine and matcher.
// The returned close function must be deferred.
func buildSystem(ctx context.Context) (*setup.System, func(), error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	sys, err := setup.Build(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return sys, func() { _ = sys.Close() }, nil
}

var storeCmd = &cobra.Command{
	Use:   "store <id> [file]",
	Short: "Store a document under id, reading from a file or stdin",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			data []byte
			err  error
		)
		if len(args) == 2 {
			data, err = os.ReadFile(args[1])
		} else {
			data, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return err
		}

		sys, closeSys, err := buildSystem(cmd.Context())
		if err != nil {
			return err
		}
		defer closeSys()

		mime, _ := cmd.Flags().GetString("mime")
		origPath, _ := cmd.Flags().GetString("path")
		tags, _ := cmd.Flags().GetStringToString("tag")
		noSplit, _ := cmd.Flags().GetBool("no-split")
		isBinary, _ := cmd.Flags().GetBool("binary")

		opts := &engine.StoreOptions{
			MimeType:     mime,
			OriginalPath: origPath,
			Tags:         tags,
			NoSplit:      noSplit,
		}

		var id string
		if isBinary {
			id, err = sys.Engine.StoreBinary(cmd.Context(), args[0], data, mime, opts)
		} else {
			id, err = sys.Engine.Store(cmd.Context(), args[0], string(data), opts)
		}
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print a document's full content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sys, closeSys, err := buildSystem(cmd.Context())
		if err != nil {
			return err
		}
		defer closeSys()

		content, err := sys.Engine.Content(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Print(content)
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a document and all its chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sys, closeSys, err := buildSystem(cmd.Context())
		if err != nil {
			return err
		}
		defer closeSys()
		return sys.Engine.Remove(cmd.Context(), args[0])
	},
}

var mvCmd = &cobra.Command{
	Use:   "mv <old-id> <new-id>",
	Short: "Rename a document, preserving content and metadata",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sys, closeSys, err := buildSystem(cmd.Context())
		if err != nil {
			return err
		}
		defer closeSys()

		noSplit, _ := cmd.Flags().GetBool("no-split")
		return sys.Engine.Move(cmd.Context(), args[0], args[1], !noSplit)
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls [folder]",
	Short: "List stored document ids",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sys, closeSys, err := buildSystem(cmd.Context())
		if err != nil {
			return err
		}
		defer closeSys()

		folder := ""
		if len(args) == 1 {
			folder = args[0]
		}
		recursive, _ := cmd.Flags().GetBool("recursive")

		ids, err := sys.Engine.List(cmd.Context(), folder, recursive)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show stored documents grouped by path-like id segments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sys, closeSys, err := buildSystem(cmd.Context())
		if err != nil {
			return err
		}
		defer closeSys()

		root, err := sys.Engine.Tree(cmd.Context())
		if err != nil {
			return err
		}
		printTree(cmd.OutOrStdout(), root, 0)
		return nil
	},
}

func printTree(w io.Writer, node *engine.TreeNode, depth int) {
	if node.Name != "" {
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth-1), node.Name)
	}
	for _, child := range node.Children {
		printTree(w, child, depth+1)
	}
}

var queryCmd = &cobra.Command{
	Use:   "query <text>...",
	Short: "Semantic search; prints the top chunks within a token budget",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sys, closeSys, err := buildSystem(cmd.Context())
		if err != nil {
			return err
		}
		defer closeSys()

		matches, err := sys.Matcher.Query(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}

		budget, _ := cmd.Flags().GetInt("budget")
		if budget <= 0 {
			budget = sys.Config.Matcher.MaxTotalTokens
		}
		selections, err := sys.Matcher.TakeTop(cmd.Context(), matches, budget)
		if err != nil {
			return err
		}
		for _, sel := range selections {
			fmt.Printf("%.4f %s", sel.Match.Similarity, sel.Text)
			fmt.Println()
		}
		return nil
	},
}

var reembedCmd = &cobra.Command{
	Use:   "reembed",
	Short: "Re-embed every chunk whose text changed since its embedding",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sys, closeSys, err := buildSystem(cmd.Context())
		if err != nil {
			return err
		}
		defer closeSys()
		return sys.Engine.UpdateEmbeddings(cmd.Context())
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Ingest markdown documentation from the configured GitHub repository",
	Long: `Fetches every markdown file under the configured repository path,
annotates sections with their header hierarchy, and stores each file under
its repository-relative path as document id. Unchanged files are detected by
checksum and skipped at the embedding layer, so repeated syncs are cheap.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		start := time.Now()

		sys, closeSys, err := buildSystem(ctx)
		if err != nil {
			return err
		}
		defer closeSys()

		src := sys.Config.Source
		if src.Owner == "" || src.Repo == "" {
			return fmt.Errorf("source.owner and source.repo must be set in the config for sync")
		}

		gh, err := ghclient.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("creating GitHub client: %w", err)
		}
		fetcher := ghclient.NewFetcher(gh, src.Owner, src.Repo, src.BasePath)

		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		pipeline := ingest.NewPipeline(fetcher, markdown.NewAnnotator(), sys.Engine, logger)

		result, err := pipeline.Run(ctx)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		fmt.Println("Sync complete")
		fmt.Printf("  Documents: %d/%d\n", result.SuccessfulDocs, result.TotalDocs)
		fmt.Printf("  Commit: %s\n", result.CommitSHA)
		fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Second))

		if len(result.FailedDocs) > 0 {
			fmt.Println("Failed documents:")
			for _, failed := range result.FailedDocs {
				fmt.Printf("  - %s: %s\n", failed.Path, failed.Reason)
			}
		}
		fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Second))
		return nil
	},
}
