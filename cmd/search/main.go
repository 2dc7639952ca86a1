// Package main is a command-line client for the movie search engine. It
// ranks a query against a local catalog snapshot, converts snapshots between
// JSON and CBOR, and mints admin tokens for the API server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/onnwee/cinesearch/internal/auth"
	"github.com/onnwee/cinesearch/internal/catalog"
	"github.com/onnwee/cinesearch/internal/jobs"
	"github.com/onnwee/cinesearch/internal/middleware"
	"github.com/onnwee/cinesearch/internal/ranking"
	"github.com/onnwee/cinesearch/internal/search"
	"github.com/onnwee/cinesearch/internal/text"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	catalogPath string
	mode        string
	limit       int
	wordnetPath string
	calibration string
	noStem      bool
	jsonOutput  bool
	convert     string
	mintToken   string
	verbose     bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(stderr)

	defaultCatalog := os.Getenv("CATALOG_PATH")
	if defaultCatalog == "" {
		defaultCatalog = "data/movies.json"
	}

	var opts options
	fs.StringVar(&opts.catalogPath, "catalog", defaultCatalog, "catalog snapshot (.json or .cbor)")
	fs.StringVar(&opts.mode, "mode", string(search.ModeWeighted), "ranking strategy: weighted or cascade")
	fs.IntVar(&opts.limit, "limit", 10, "maximum number of results")
	fs.StringVar(&opts.wordnetPath, "wordnet", os.Getenv("WORDNET_PATH"), "synonym groups file for query expansion")
	fs.StringVar(&opts.calibration, "calibration", os.Getenv("RANKING_CALIBRATION_PATH"), "ranking calibration file")
	fs.BoolVar(&opts.noStem, "no-stem", false, "match on surface forms instead of stems")
	fs.BoolVar(&opts.jsonOutput, "json", false, "print results as JSON")
	fs.StringVar(&opts.convert, "convert", "", "write the catalog to this path (format from extension) and exit")
	fs.StringVar(&opts.mintToken, "mint-token", "", "print an admin access token for this subject, signed with JWT_SECRET")
	fs.BoolVar(&opts.verbose, "v", false, "log progress to stderr")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "cinesearch query tool")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Usage: search [options] <query>")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: middleware.ParseLevel(level, slog.LevelWarn),
	}))

	var err error
	switch {
	case opts.mintToken != "":
		err = mintToken(stdout, opts.mintToken)
	case opts.convert != "":
		err = convert(ctx, opts, logger)
	default:
		query := strings.Join(fs.Args(), " ")
		if strings.TrimSpace(query) == "" {
			fs.Usage()
			return 2
		}
		err = runQuery(ctx, stdout, opts, query, logger)
	}
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

func mintToken(w io.Writer, subject string) error {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return errors.New("JWT_SECRET is required to mint tokens")
	}
	token, err := auth.NewJWTService(secret).GenerateAccessToken(subject, auth.RoleAdmin)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, token)
	return err
}

// convert re-encodes the catalog snapshot. Titles that fail validation are
// dropped from the output.
func convert(ctx context.Context, opts options, logger *slog.Logger) error {
	duration, err := jobs.Run(ctx, nil, jobs.JobTypeCatalogConvert, func(ctx context.Context) error {
		return writeSnapshot(ctx, opts.catalogPath, opts.convert, logger)
	})
	logger.Info("catalog conversion finished",
		"job_type", jobs.JobTypeCatalogConvert,
		"status", jobs.Status(err),
		"duration_seconds", duration.Seconds())
	return err
}

func writeSnapshot(ctx context.Context, from, to string, logger *slog.Logger) (err error) {
	format, err := catalog.FormatFromName(to)
	if err != nil {
		return err
	}
	titles, err := catalog.NewFileSource(from).Load(ctx)
	if err != nil {
		return err
	}
	c, dropped := catalog.New(titles)
	if dropped > 0 {
		logger.Warn("dropped invalid titles", "count", dropped)
	}

	f, err := os.Create(to)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := catalog.Encode(f, c.Titles(), format); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	logger.Info("catalog written", "path", to, "titles", c.Len())
	return nil
}

// result is one line of output.
type result struct {
	Rank       int      `json:"rank"`
	ID         int64    `json:"id"`
	Title      string   `json:"title"`
	Year       string   `json:"year,omitempty"`
	Popularity *float64 `json:"popularity,omitempty"`
}

func runQuery(ctx context.Context, w io.Writer, opts options, query string, logger *slog.Logger) error {
	mode, err := search.ParseMode(opts.mode)
	if err != nil {
		return err
	}
	if opts.limit < 1 {
		return fmt.Errorf("limit must be at least 1, got %d", opts.limit)
	}

	var lemmatizer text.Lemmatizer = text.Snowball{}
	if opts.noStem {
		lemmatizer = text.Identity{}
	}
	var synonyms text.SynonymSource = text.NoSynonyms{}
	if opts.wordnetPath != "" {
		thesaurus, err := text.LoadWordNet(opts.wordnetPath)
		if err != nil {
			return fmt.Errorf("load wordnet: %w", err)
		}
		synonyms = thesaurus
	}
	weights, err := ranking.LoadCalibration(opts.calibration)
	if err != nil {
		return err
	}

	engine := search.NewEngine(search.Config{
		Analyzer: text.NewAnalyzer(lemmatizer, synonyms),
		Weights:  weights,
		Logger:   logger,
	})
	store := catalog.NewStore(catalog.NewFileSource(opts.catalogPath), logger, nil)
	store.OnReload(ctx, engine.Install)
	if _, err := store.Reload(ctx); err != nil {
		return err
	}

	titles, err := engine.Search(ctx, query, mode, opts.limit)
	if err != nil {
		return err
	}

	results := make([]result, len(titles))
	for i, t := range titles {
		results[i] = result{Rank: i + 1, ID: t.ID, Title: t.Title, Popularity: t.Popularity}
		if _, year := catalog.FormatReleaseDate(t.ReleaseDate); year != "N/A" {
			results[i].Year = year
		}
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	if len(results) == 0 {
		_, err := fmt.Fprintf(w, "no titles match %q\n", query)
		return err
	}
	for _, r := range results {
		line := fmt.Sprintf("%2d. %s", r.Rank, r.Title)
		if r.Year != "" {
			line += " (" + r.Year + ")"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
