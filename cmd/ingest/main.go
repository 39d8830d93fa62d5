package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/creditsphere/creditsphere/internal/categorize"
	"github.com/creditsphere/creditsphere/internal/config"
	"github.com/creditsphere/creditsphere/internal/domain"
	"github.com/creditsphere/creditsphere/internal/extract"
	"github.com/creditsphere/creditsphere/internal/gcs"
	infraBQ "github.com/creditsphere/creditsphere/internal/infra/bigquery"
	"github.com/creditsphere/creditsphere/internal/logger"
	"github.com/creditsphere/creditsphere/internal/store"
)

// statementStore is store.Store plus statement creation, which both
// backends provide outside the engine-facing interface.
type statementStore interface {
	store.Store
	InsertStatement(ctx context.Context, st *domain.Statement) error
}

func main() {
	log := logger.New()
	cfg := config.Load()

	file := flag.String("file", "", "statement file: local path or gs:// URI")
	user := flag.String("user", "", "owner user ID")
	source := flag.String("source", "", "source type: csv, pdf or image (default: inferred from extension)")
	year := flag.Int("year", 0, "default year for statements with yearless dates")
	flag.Parse()

	if *file == "" || *user == "" {
		log.Fatal().Msg("Error: --file and --user are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	sourceType, err := resolveSourceType(*source, *file)
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot determine source type")
	}

	st, cleanup := openStore(ctx, cfg, log)
	defer cleanup()

	path := *file
	if gcs.IsURI(*file) {
		client, err := gcs.NewClient(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage client")
		}
		defer client.Close()

		local, remove, err := gcs.Materialize(ctx, client, *file)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to fetch statement from GCS")
		}
		defer remove()
		path = local
	}

	categorizer := buildCategorizer(ctx, cfg, st, log)
	pipeline := extract.NewPipeline(st, categorizer, extract.TesseractRunner{}, log)

	stmt := &domain.Statement{
		ID:         uuid.NewString(),
		UserID:     *user,
		SourceType: sourceType,
		FilePath:   *file,
		CreatedAt:  time.Now().UTC(),
	}
	if err := st.InsertStatement(ctx, stmt); err != nil {
		log.Fatal().Err(err).Msg("Failed to record statement")
	}

	log.Info().
		Str("statement_id", stmt.ID).
		Str("file", *file).
		Str("source", string(sourceType)).
		Msg("Starting ingestion")

	count, err := pipeline.ProcessStatement(ctx, stmt.ID, path, extract.Options{DefaultYear: *year})
	if err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}

	fmt.Printf("Ingested %d transaction(s) from %s (statement %s)\n", count, *file, stmt.ID)
}

func resolveSourceType(source, file string) (domain.SourceType, error) {
	if source != "" {
		switch domain.SourceType(source) {
		case domain.SourceCSV, domain.SourcePDF, domain.SourceImage:
			return domain.SourceType(source), nil
		}
		return "", fmt.Errorf("unknown source type %q", source)
	}

	name := file
	if gcs.IsURI(file) {
		name = gcs.Filename(file)
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return domain.SourceCSV, nil
	case ".pdf":
		return domain.SourcePDF, nil
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp":
		return domain.SourceImage, nil
	}
	return "", fmt.Errorf("cannot infer source type from %q; pass --source", name)
}

// openStore picks the BigQuery backend when a project is configured,
// otherwise an in-memory store (useful for dry runs; nothing persists).
func openStore(ctx context.Context, cfg config.Config, log zerolog.Logger) (statementStore, func()) {
	if cfg.GCPProject == "" {
		log.Warn().Msg("GCP_PROJECT not set; using in-memory store, results will not persist")
		return store.NewMemory(), func() {}
	}

	bq, err := infraBQ.New(ctx, infraBQ.Config{ProjectID: cfg.GCPProject, DatasetID: cfg.BQDataset}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery store")
	}
	return bq, func() { bq.Close() }
}

// buildCategorizer wires the merchant categorization engine. With no
// model configured the pipeline runs extraction only.
func buildCategorizer(ctx context.Context, cfg config.Config, st store.Store, log zerolog.Logger) extract.Categorizer {
	aliases, err := loadAliases(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load merchant alias table")
	}

	var ai categorize.AIClient
	if cfg.GeminiModel != "" {
		var cache categorize.Cache = categorize.NewMemoryCache()
		if cfg.RedisAddr != "" {
			cache = categorize.NewRedisCache(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
		}
		client, err := categorize.NewGeminiClient(ctx, cfg.GeminiModel, cache, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Gemini client")
		}
		ai = client
	} else {
		log.Warn().Msg("GEMINI_MODEL not set; AI categorization disabled")
	}

	return categorize.NewEngine(st, ai, aliases, log)
}

func loadAliases(cfg config.Config) (*categorize.AliasTable, error) {
	if cfg.AliasTablePath != "" {
		return categorize.LoadAliasTable(cfg.AliasTablePath)
	}
	return categorize.DefaultAliasTable(), nil
}
