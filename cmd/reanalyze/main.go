package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pcrm/api/internal/app"
	"pcrm/api/internal/config"
	"pcrm/api/internal/corpus"
	"pcrm/api/internal/duplicate"
	"pcrm/api/internal/events"
	"pcrm/api/internal/intelligence"
	"pcrm/api/internal/search"
	"pcrm/api/internal/store"
)

var (
	watch   bool
	reindex bool
	batch   int
)

var rootCmd = &cobra.Command{
	Use:   "reanalyze",
	Short: "Re-run complaint intelligence for complaints with pending analysis",
	Long: `reanalyze picks up complaints whose sentiment, duplicate or priority
scores are missing, recomputes them and stores the result.

With --watch it keeps polling every PCRM_REANALYZE_EVERY_SECONDS until
interrupted.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().BoolVar(&watch, "watch", false, "keep re-analyzing pending complaints on an interval")
	rootCmd.Flags().BoolVar(&reindex, "reindex", false, "push every complaint into Meilisearch before re-analyzing")
	rootCmd.Flags().IntVar(&batch, "batch", 0, "complaints per pass (default PCRM_REANALYZE_BATCH)")
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Printf("reanalyze failed: %v", err)
		cancel()
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if batch > 0 {
		cfg.ReanalyzeBatch = batch
	}

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}

	dataStore := store.NewPostgresStore(db)

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, search.NewPgFTS(db), dataStore)
	defer searchService.Wait()

	var fetcher duplicate.CorpusFetcher = searchService
	var corpusCache *corpus.RedisCache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for the duplicate corpus cache")
		corpusCache, err = corpus.NewRedisCache(cfg.RedisURL, cfg.CorpusCacheTTL, searchService)
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		defer corpusCache.Close()
		fetcher = corpusCache
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		producer := events.NewProducer(cfg.KafkaBrokers, cfg.EventsTopic)
		defer producer.Close()
		publisher = producer
	}

	service := app.New(cfg, app.Deps{
		Store:    dataStore,
		Analyzer: intelligence.New(duplicate.New(fetcher), cfg.AnalysisTimeout),
		Corpus:   corpusCache,
		Search:   searchService,
		Events:   publisher,
	})
	log.Printf("health: %v", service.Health(ctx))

	if reindex {
		searchService.ReindexAllFromPG(ctx)
	}

	runOnce(ctx, service, cfg.ReanalyzeBatch)
	if !watch {
		return nil
	}

	ticker := time.NewTicker(cfg.ReanalyzeEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("Received shutdown signal")
			return nil
		case <-ticker.C:
			runOnce(ctx, service, cfg.ReanalyzeBatch)
		}
	}
}

func runOnce(ctx context.Context, service *app.Service, limit int) {
	done, err := service.ReanalyzePending(ctx, limit)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("reanalyze: %v", err)
	}
	log.Printf("reanalyze: %d complaints analyzed", done)
}
