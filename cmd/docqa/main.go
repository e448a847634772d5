// Copyright 2025 Amit Akki
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
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	ocrchatqa "github.com/amitakki/ocr-chatqa"
	"github.com/amitakki/ocr-chatqa/core"
	"github.com/amitakki/ocr-chatqa/storage"
)

func main() {
	app := &cli.App{
		Name:  "docqa",
		Usage: "Document ingestion and retrieval for question answering",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
				Value:   "config.yaml",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Upload one or more documents and process them",
				ArgsUsage: "FILE [FILE...]",
				Action:    ingestCommand,
			},
			{
				Name:      "status",
				Usage:     "Show the processing status of a document",
				ArgsUsage: "ID",
				Action:    statusCommand,
			},
			{
				Name:   "list",
				Usage:  "List all documents, newest first",
				Action: listCommand,
			},
			{
				Name:   "stats",
				Usage:  "Show document counts by status and total indexed chunks",
				Action: statsCommand,
			},
			{
				Name:      "delete",
				Usage:     "Remove a document, its indexed chunks, and its artifacts",
				ArgsUsage: "ID",
				Action:    deleteCommand,
			},
			{
				Name:      "reprocess",
				Usage:     "Re-ingest a document from its stored original",
				ArgsUsage: "ID",
				Action:    reprocessCommand,
			},
			{
				Name:      "query",
				Usage:     "Retrieve the chunks most similar to a text query",
				ArgsUsage: "TEXT",
				Action:    queryCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top",
						Aliases: []string{"k"},
						Usage:   "Number of results to return",
						Value:   5,
					},
					&cli.Uint64Flag{
						Name:  "doc",
						Usage: "Restrict results to a single document ID",
					},
				},
			},
			{
				Name:   "reindex",
				Usage:  "Re-embed all indexed chunks with the configured model",
				Action: reindexCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Rebuild even if the stored model matches",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setup(c *cli.Context) error {
	// .env carries API keys for remote OCR; absence is fine.
	_ = godotenv.Load()

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

func openSystem(c *cli.Context) (*ocrchatqa.System, error) {
	cfg, err := ocrchatqa.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return ocrchatqa.NewSystem(cfg)
}

func parseID(c *cli.Context) (core.ID, error) {
	if c.NArg() != 1 {
		return 0, fmt.Errorf("expected exactly one document ID argument")
	}
	id, err := strconv.ParseUint(c.Args().First(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid document ID %q: %w", c.Args().First(), err)
	}
	return core.ID(id), nil
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("at least one file argument is required")
	}

	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	ctx := context.Background()

	ids := make([]core.ID, 0, c.NArg())
	for _, path := range c.Args().Slice() {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		doc, err := sys.Submit(ctx, filepath.Base(path), data)
		if err != nil {
			return fmt.Errorf("failed to submit %s: %w", path, err)
		}
		fmt.Fprintf(os.Stderr, "Queued %s as document %d\n", doc.Filename, doc.Id)
		ids = append(ids, doc.Id)
	}

	sys.Wait()

	for _, id := range ids {
		doc, err := sys.Status(ctx, id)
		if err != nil {
			return err
		}
		printDocument(doc)
	}
	return nil
}

func statusCommand(c *cli.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	doc, err := sys.Status(context.Background(), id)
	if err != nil {
		return err
	}
	printDocument(doc)
	return nil
}

func listCommand(c *cli.Context) error {
	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	docs, err := sys.List(context.Background())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFILENAME\tSTATUS\tMETHOD\tPAGES\tCHUNKS\tUPLOADED")
	for _, doc := range docs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\t%s\n",
			doc.Id, doc.Filename, doc.Status, doc.Method,
			doc.PageCount, doc.ChunkCount,
			doc.UploadedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func statsCommand(c *cli.Context) error {
	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	stats, err := sys.Stats(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Documents: %d\n", stats.Documents)
	fmt.Printf("Indexed chunks: %d\n", stats.Chunks)
	for status := core.StatusQueued; status <= core.StatusFailed; status++ {
		if n := stats.ByStatus[status]; n > 0 {
			fmt.Printf("  %s: %d\n", status, n)
		}
	}
	if len(stats.ByMethod) > 0 {
		fmt.Println("By extraction method:")
		for method := core.MethodDirect; method <= core.MethodStructured; method++ {
			if n := stats.ByMethod[method]; n > 0 {
				fmt.Printf("  %s: %d\n", method, n)
			}
		}
	}
	return nil
}

func deleteCommand(c *cli.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	if err := sys.Delete(context.Background(), id); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Deleted document %d\n", id)
	return nil
}

func reprocessCommand(c *cli.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	ctx := context.Background()
	fresh, err := sys.Reprocess(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Reprocessing document %d as %d\n", id, fresh.Id)

	sys.Wait()

	doc, err := sys.Status(ctx, fresh.Id)
	if err != nil {
		return err
	}
	printDocument(doc)
	return nil
}

func queryCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one query text argument")
	}

	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	var filter *storage.SearchFilter
	if c.IsSet("doc") {
		filter = &storage.SearchFilter{DocumentID: core.ID(c.Uint64("doc"))}
	}

	results, err := sys.Query(context.Background(), c.Args().First(), c.Int("top"), filter)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for i, res := range results {
		fmt.Printf("%d. [doc %d, page %d, score %.4f]\n%s\n\n",
			i+1, res.Chunk.DocumentId, res.Chunk.Page, res.Score, res.Chunk.Text)
	}
	return nil
}

func reindexCommand(c *cli.Context) error {
	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	ctx := context.Background()

	if !c.Bool("force") {
		stale, err := sys.NeedsRebuild(ctx)
		if err != nil {
			return err
		}
		if !stale {
			fmt.Fprintln(os.Stderr, "Index already matches the configured embedding model; use --force to rebuild anyway.")
			return nil
		}
	}

	return sys.Rebuild(ctx, os.Stderr)
}

func printDocument(doc *core.Document) {
	fmt.Printf("Document %d: %s\n", doc.Id, doc.Filename)
	fmt.Printf("  Status: %s\n", doc.Status)
	if doc.FailureReason != "" {
		fmt.Printf("  Failure: %s\n", doc.FailureReason)
	}
	if doc.Method != core.MethodNone {
		fmt.Printf("  Method: %s\n", doc.Method)
	}
	if doc.PageCount > 0 {
		fmt.Printf("  Pages: %d\n", doc.PageCount)
	}
	if doc.ChunkCount > 0 {
		fmt.Printf("  Chunks: %d\n", doc.ChunkCount)
	}
	if !doc.CompletedAt.IsZero() {
		fmt.Printf("  Completed: %s\n", doc.CompletedAt.Format("2006-01-02 15:04:05"))
	}
}
