// Copyright 2025 Allan Butler
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/urfave/cli/v2"

	grocery "github.com/allanbutler/kg-rag-grocery"
	"github.com/allanbutler/kg-rag-grocery/ai"
	"github.com/allanbutler/kg-rag-grocery/config"
	"github.com/allanbutler/kg-rag-grocery/ingest"
	"github.com/allanbutler/kg-rag-grocery/server"
	"github.com/allanbutler/kg-rag-grocery/storage/neo4j"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "grocer",
		Usage: "Hybrid knowledge graph and vector search over a grocery catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
			},
			&cli.StringFlag{
				Name:  "index-backend",
				Usage: "Similarity index backend (badger, sqlitevec)",
			},
			&cli.StringFlag{
				Name:  "index-dir",
				Usage: "Directory holding the sqlite-vec index",
			},
			&cli.BoolFlag{
				Name:  "offline",
				Usage: "Run without embedding and LLM services",
			},
			&cli.StringFlag{
				Name:  "embedding-host",
				Usage: "Embedding service host URL",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name",
			},
			&cli.StringFlag{
				Name:  "llm-host",
				Usage: "Chat completion service host URL",
			},
			&cli.StringFlag{
				Name:  "llm-model",
				Usage: "Chat model name",
			},
			&cli.BoolFlag{
				Name:  "neo4j",
				Usage: "Store the entity graph in Neo4j",
			},
			&cli.StringFlag{
				Name:  "neo4j-uri",
				Usage: "Neo4j bolt URI",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "prepare-data",
				Usage:  "Load the product table and build the graph and embedding stores",
				Action: prepareCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "data",
						Usage: "Product table (.csv or .xlsx); defaults to DATA_CSV",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Re-embed every product, even unchanged ones",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of products embedded per request",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Embedding worker pool size",
					},
					&cli.BoolFlag{
						Name:  "quiet",
						Usage: "Suppress embedding progress output",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Rank and suggest products for a query",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print the result as JSON"},
				},
			},
			{
				Name:      "ask",
				Usage:     "Answer a question from retrieved products",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print the result as JSON"},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve /health, /search and /ask over HTTP",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "addr",
						Usage:   "Listen address",
						Value:   ":8000",
						EnvVars: []string{"SERVER_ADDR"},
					},
				},
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// loadConfig resolves the config file and environment, then applies any
// flags set on the command line.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	strs := map[string]*string{
		"db":              &cfg.DBPath,
		"index-backend":   &cfg.IndexBackend,
		"index-dir":       &cfg.IndexDir,
		"embedding-host":  &cfg.EmbeddingHost,
		"embedding-model": &cfg.EmbeddingModel,
		"llm-host":        &cfg.LLMHost,
		"llm-model":       &cfg.LLMModel,
		"data":            &cfg.DataCSV,
		"neo4j-uri":       &cfg.Neo4jURI,
	}
	for name, dst := range strs {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	cfg.IndexBackend = strings.ToLower(cfg.IndexBackend)
	if c.IsSet("offline") {
		cfg.Offline = c.Bool("offline")
	}
	if c.IsSet("neo4j") {
		cfg.UseNeo4j = c.Bool("neo4j")
	}
	if c.IsSet("batch-size") {
		cfg.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openCatalog(ctx context.Context, cfg *config.Config) (*grocery.Catalog, error) {
	opts := []grocery.Option{
		grocery.WithAIConfig(cfg.AI()),
		grocery.WithLogger(slog.Default()),
	}
	if cfg.Offline {
		opts = append(opts, grocery.WithOffline())
	}
	if cfg.IndexBackend == config.BackendSQLiteVec {
		opts = append(opts, grocery.WithSQLiteVec(cfg.IndexPath()))
	}
	if !cfg.UseNeo4j {
		return grocery.Open(cfg.DBPath, opts...)
	}

	graphs, err := neo4j.Open(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword,
		neo4j.WithDatabase(cfg.Neo4jDatabase),
		neo4j.WithLogger(slog.Default().With("component", "neo4j-graph")))
	if err != nil {
		return nil, err
	}
	cat, err := grocery.Open(cfg.DBPath, append(opts, grocery.WithGraphRepository(graphs))...)
	if err != nil {
		graphs.Close()
		return nil, err
	}
	return cat, nil
}

func prepareCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cat, err := openCatalog(c.Context, cfg)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer cat.Close()

	opts := []ingest.Option{
		ingest.WithBatchSize(cfg.BatchSize),
		ingest.WithForce(c.Bool("force")),
	}
	if cfg.Workers > 0 {
		opts = append(opts, ingest.WithPoolSize(cfg.Workers))
	}
	if !c.Bool("quiet") {
		opts = append(opts, ingest.WithProgress(c.App.ErrWriter))
	}
	pipeline, err := cat.NewPipeline(opts...)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	report, err := pipeline.PrepareFile(c.Context, cfg.DataCSV)
	if err != nil {
		return fmt.Errorf("prepare-data failed: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "Prepared %d products (%d rows skipped): %d nodes, %d edges, %d embedded, %d unchanged\n",
		report.Products, report.Skipped, report.Nodes, report.Edges, report.Embedded, report.Unchanged)
	return nil
}

func queryArg(c *cli.Context) (string, error) {
	text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if text == "" {
		return "", fmt.Errorf("%s: query text is required", c.Command.Name)
	}
	return text, nil
}

func searchCommand(c *cli.Context) error {
	text, err := queryArg(c)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cat, err := openCatalog(c.Context, cfg)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer cat.Close()

	res, err := cat.Suggest(c.Context, text)
	if err != nil {
		return err
	}
	resp := server.NewSearchResponse(res)
	if c.Bool("json") {
		return writeJSON(c.App.Writer, resp)
	}
	printSearch(c.App.Writer, resp)
	return nil
}

func askCommand(c *cli.Context) error {
	text, err := queryArg(c)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cat, err := openCatalog(c.Context, cfg)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer cat.Close()

	res, err := cat.Ask(c.Context, text)
	if err != nil {
		return err
	}
	resp := server.NewAskResponse(res)
	if c.Bool("json") {
		return writeJSON(c.App.Writer, resp)
	}
	printAsk(c.App.Writer, resp)
	return nil
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cat, err := openCatalog(c.Context, cfg)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer cat.Close()

	// Load the stores before accepting traffic so a broken store fails here.
	if _, err := cat.Searcher(); err != nil {
		return err
	}
	srv, err := server.New(cat, server.WithLogger(slog.Default().With("component", "server")))
	if err != nil {
		return err
	}
	return srv.ListenAndServe(c.Context, c.String("addr"))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSearch(w io.Writer, res server.SearchResponse) {
	fmt.Fprintf(w, "Found %d candidates\n", len(res.Candidates))
	for i, c := range res.Candidates {
		fmt.Fprintf(w, "%d: %s (%s) $%.2f [%s]\n", i+1, c.Name, c.Brand, c.Price, c.Source)
	}
	printSuggestions(w, res.Suggestions)
	if len(res.Contexts) > 0 {
		fmt.Fprintln(w, "\nContexts:")
		for _, snippet := range res.Contexts {
			fmt.Fprintf(w, "  - %s\n", snippet)
		}
	}
}

func printAsk(w io.Writer, res server.AskResponse) {
	fmt.Fprintln(w, res.Answer)
	printSuggestions(w, res.Suggestions)
	if res.Fallback {
		fmt.Fprintln(w, "\n(generated without the language model)")
	}
}

func printSuggestions(w io.Writer, suggestions []ai.Suggestion) {
	if len(suggestions) == 0 {
		return
	}
	fmt.Fprintln(w, "\nSuggestions:")
	for _, s := range suggestions {
		line := s.Product
		if s.Brand != "" {
			line += " (" + s.Brand + ")"
		}
		if s.Price != nil {
			line += fmt.Sprintf(" $%.2f", *s.Price)
		}
		fmt.Fprintf(w, "  - %s: %s\n", line, s.Why)
	}
}
