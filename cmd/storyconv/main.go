// Command storyconv converts a story file (node/link graph or app document)
// into an exportable app document.
//
//	storyconv -in story.json [-out out.json] [-max-nodes N]
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"story-maker/internal/builder"
	"story-maker/internal/importer"
	"story-maker/internal/logger"

	"go.uber.org/zap"
)

func main() {
	zapLogger, err := logger.New(logger.Config{Level: os.Getenv("LOG_LEVEL"), Encoding: "console", Output: "stderr"})
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	if err := run(os.Args[1:], os.Stdout, zapLogger); err != nil {
		zapLogger.Error("Conversion failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer, zapLogger *zap.Logger) error {
	fs := flag.NewFlagSet("storyconv", flag.ContinueOnError)
	in := fs.String("in", "", "input JSON file (required)")
	out := fs.String("out", "", "output file; stdout when empty")
	maxNodes := fs.Int("max-nodes", importer.DefaultMaxNodes, "abort when conversion produces more nodes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		fs.Usage()
		return errors.New("-in is required")
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", *in, err)
	}

	res, err := importer.New(importer.WithMaxNodes(*maxNodes)).Parse(data)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		zapLogger.Warn("Import warning",
			zap.String("kind", string(w.Kind)),
			zap.String("foreignId", w.ForeignID),
			zap.String("message", w.Message),
		)
	}

	b, err := builder.Load(res.Document)
	if err != nil {
		return err
	}
	doc, err := b.Export()
	if err != nil {
		return err
	}
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	body = append(body, '\n')

	zapLogger.Info("Story converted",
		zap.String("format", string(res.Format)),
		zap.String("title", doc.Metadata.Title),
		zap.Int("nodes", len(doc.Nodes)),
		zap.Int("warnings", len(res.Warnings)),
	)
	if *out == "" {
		_, err = stdout.Write(body)
		return err
	}
	return os.WriteFile(*out, body, 0o644)
}
