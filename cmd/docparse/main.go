package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/docs-tracker/internal/app"
	"github.com/joseph-ayodele/docs-tracker/internal/common"
	"github.com/joseph-ayodele/docs-tracker/internal/docparse"
	"github.com/joseph-ayodele/docs-tracker/internal/pdftext"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		envFile  = flag.String("env", ".env", "optional .env file to load")
		strategy = flag.String("strategy", "", "text strategy: auto | pdf-text | pdftotext (default from TEXT_STRATEGY)")
		patterns = flag.String("patterns", "", "pattern catalog YAML (default: built-in)")
		textOnly = flag.Bool("text-only", false, "print the acquired text instead of the record")
		info     = flag.Bool("info", false, "print document info instead of the record")
		noRaw    = flag.Bool("no-raw", false, "omit raw_text from the record output")
		verbose  = flag.Bool("v", false, "debug logging to stderr")
	)
	flag.Usage = func() {
		printError("usage: docparse [flags] <file.pdf>\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("failed to load env file", "path", *envFile, "error", err)
	}
	cfg := common.LoadConfig()
	if *strategy != "" {
		cfg.Parser.TextStrategy = *strategy
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *textOnly {
		ext := pdftext.NewExtractor(pdftext.Config{
			Strategy:  cfg.Parser.TextStrategy,
			Pdftotext: cfg.Parser.PdftotextBin,
			MaxPages:  cfg.Parser.MaxPages,
		}, logger)
		res, err := ext.Extract(ctx, path)
		if err != nil {
			printError("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(res.Text)
		return
	}

	cat, err := app.LoadCatalog(*patterns)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	parser := app.NewParser(cfg.Parser, cat, logger)

	var out any
	if *info {
		out, err = parser.DocumentInfo(ctx, path)
	} else {
		out, err = parse(ctx, parser, path, *noRaw)
	}
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		printError("Error: encoding output: %v\n", err)
		os.Exit(1)
	}
}

func parse(ctx context.Context, p *docparse.Parser, path string, noRaw bool) (any, error) {
	rec, err := p.Parse(ctx, path)
	if err != nil {
		return nil, err
	}
	if noRaw {
		rec.RawText = ""
	}
	return rec, nil
}
