package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"scholarassist/internal/analysis"
	"scholarassist/internal/chunker"
	"scholarassist/internal/config"
	"scholarassist/internal/domain"
	"scholarassist/internal/embedding"
	"scholarassist/internal/generation"
	"scholarassist/internal/index"
	"scholarassist/internal/papers"
	"scholarassist/internal/research"
	"scholarassist/internal/retriever"
	"scholarassist/internal/service"
	"scholarassist/internal/store"
	"scholarassist/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath  string
		orTerms  string
		notTerms string
		limit    int
		years    int
		openOnly bool
		pdfOnly  bool
		analyze  bool
		verbose  bool
	)
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/scholarassist/config.yaml if not provided)")
	flag.StringVar(&orTerms, "or", "", "Comma-separated alternative search terms")
	flag.StringVar(&notTerms, "not", "", "Comma-separated excluded search terms")
	flag.IntVar(&limit, "limit", 0, "Maximum number of papers to collect")
	flag.IntVar(&years, "years", 0, "Restrict the search to the last N years")
	flag.BoolVar(&openOnly, "open-access", false, "Only keep open-access papers")
	flag.BoolVar(&pdfOnly, "pdf-only", false, "Only keep papers with a downloadable PDF")
	flag.BoolVar(&analyze, "analyze", false, "Ask the standard review questions about each ingested paper")
	flag.BoolVar(&verbose, "verbose", false, "Enable debug logging")
	flag.Parse()
	required := flag.Args()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(verbose)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	emb, err := buildEmbedder(cfg, logger)
	if err != nil {
		logger.Fatal("embedder init failed", zap.Error(err))
	}

	gen, err := generation.NewClient(generation.Config{
		BaseURL:           cfg.Generation.BaseURL,
		APIKey:            os.Getenv(cfg.Generation.APIKeyEnv),
		Model:             cfg.Generation.Model,
		Timeout:           time.Duration(cfg.Generation.TimeoutSecs) * time.Second,
		RequestsPerMinute: cfg.Generation.RequestsPerMinute,
		MaxAttempts:       cfg.Generation.MaxAttempts,
		InitialBackoff:    time.Duration(cfg.Generation.InitialBackoffSecs) * time.Second,
		MaxBackoff:        time.Duration(cfg.Generation.MaxBackoffSecs) * time.Second,
	}, logger)
	if err != nil {
		logger.Fatal("generation client init failed", zap.Error(err))
	}

	st := store.NewFileStore(cfg.Storage.EmbeddingsPath, logger)
	ret := retriever.New(st, emb, logger,
		retriever.WithIndexConfig(index.Config{
			MaxElements:    cfg.Index.MaxElements,
			EfConstruction: cfg.Index.EfConstruction,
			M:              cfg.Index.M,
		}),
		retriever.WithEfSearch(cfg.Index.EfSearch),
	)
	meta := papers.NewMetadataStore(cfg.Storage.MetadataPath)

	svc := service.New(service.Deps{
		Chunker:   chunker.NewSplitter(cfg.Chunker.MaxChars, cfg.Chunker.OverlapChars),
		Embedder:  emb,
		Store:     st,
		Retriever: ret,
		Generator: gen,
		Fetcher:   papers.NewDownloader(cfg.Storage.PapersDir, logger),
		Extractor: papers.NewAutoExtractor(),
		Metadata:  meta,
		Logger:    logger,
		TopK:      cfg.TopK,
	})

	ctx := context.Background()

	if len(required) > 0 {
		if err := runSearch(ctx, cfg, svc, meta, logger, searchArgs{
			required: required,
			or:       splitTerms(orTerms),
			not:      splitTerms(notTerms),
			limit:    limit,
			years:    years,
			openOnly: openOnly,
			pdfOnly:  pdfOnly,
			analyze:  analyze,
		}); err != nil {
			logger.Fatal("literature search failed", zap.Error(err))
		}
	}

	docs, err := corpusEntries(meta)
	if err != nil {
		logger.Fatal("failed to read corpus metadata", zap.Error(err))
	}
	if len(docs) == 0 {
		fmt.Println("Usage: scholarassist [flags] term1 [term2 ...]")
		fmt.Println("No papers ingested yet; run a search first.")
		os.Exit(1)
	}

	m := tui.New(svc, docs)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		logger.Fatal("tui failed", zap.Error(err))
	}
}

type searchArgs struct {
	required []string
	or       []string
	not      []string
	limit    int
	years    int
	openOnly bool
	pdfOnly  bool
	analyze  bool
}

func runSearch(ctx context.Context, cfg *config.AppConfig, svc *service.Service,
	meta *papers.MetadataStore, logger *zap.Logger, args searchArgs) error {

	query := research.BuildQuery(args.required, args.or, args.not)
	logger.Info("searching literature", zap.String("query", query))

	searcher := research.NewClient(cfg.Search.BaseURL, logger)
	opts := research.SearchOptions{
		Limit:            cfg.Search.Limit,
		LastNYears:       cfg.Search.LastNYears,
		OpenAccessOnly:   cfg.Search.OpenAccessOnly || args.openOnly,
		PDFAvailableOnly: cfg.Search.PDFAvailableOnly || args.pdfOnly,
	}
	if args.limit > 0 {
		opts.Limit = args.limit
	}
	if args.years > 0 {
		opts.LastNYears = args.years
	}
	metas, err := searcher.Search(ctx, query, opts)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if len(metas) == 0 {
		return fmt.Errorf("search returned no papers for %q", query)
	}
	logger.Info("papers found", zap.Int("count", len(metas)))

	analysis.NewSummarizer().FillTLDRs(metas)

	if err := svc.Ingest(ctx, metas); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	if args.analyze {
		for i := range metas {
			docID := papers.SanitizeTitle(metas[i].Title)
			result, err := svc.AnalyzePaper(ctx, docID)
			if err != nil {
				logger.Warn("analysis failed", zap.String("document", docID), zap.Error(err))
				continue
			}
			metas[i].AIAnalysis = result
		}
		if err := rewriteMetadata(meta, metas); err != nil {
			return err
		}
	}

	reports := analysis.NewReportWriter(cfg.Storage.ReportsDir, logger)
	if _, err := reports.Write(query, metas); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

func rewriteMetadata(meta *papers.MetadataStore, metas []domain.PaperMeta) error {
	if err := meta.Reset(); err != nil {
		return err
	}
	for _, m := range metas {
		if err := meta.Add(m); err != nil {
			return err
		}
	}
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func buildEmbedder(cfg *config.AppConfig, logger *zap.Logger) (domain.Embedder, error) {
	switch cfg.Embedder.Type {
	case "hashing", "":
		return embedding.NewHashingEmbedder(cfg.Embedder.Dimensions), nil
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		return embedding.NewClient(embedding.Config{
			BaseURL: cfg.Embedder.OpenAI.BaseURL,
			APIKey:  os.Getenv(cfg.Embedder.OpenAI.APIKeyEnv),
			Model:   cfg.Embedder.OpenAI.Model,
			Timeout: time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}
}

func splitTerms(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	terms := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

func corpusEntries(meta *papers.MetadataStore) ([]tui.DocEntry, error) {
	metas, err := meta.Load()
	if err != nil {
		return nil, err
	}
	docs := make([]tui.DocEntry, 0, len(metas))
	for _, m := range metas {
		docs = append(docs, tui.DocEntry{ID: papers.SanitizeTitle(m.Title), Title: m.Title})
	}
	return docs, nil
}
