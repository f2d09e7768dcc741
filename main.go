package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	appConfig "lyricsfinder/config"
	"lyricsfinder/genius"
	"lyricsfinder/handlers"
	"lyricsfinder/helpers"
	"lyricsfinder/lyrics"
	"lyricsfinder/metrics"
	"lyricsfinder/pipeline"
	"lyricsfinder/sentry"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warnf("Error loading .env file: %v", err)
	}
	cfg := appConfig.NewConfig()
	setupLogging(cfg.Options.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Refusing to start: %v", err)
	}

	sentry.Init(cfg.Sentry)
	defer sentry.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Errorf("Server stopped: %v", err)
		sentry.Flush()
		os.Exit(1)
	}
}

func setupLogging(level string) {
	log.SetFormatter(&nested.Formatter{
		HideKeys:        true,
		FieldsOrder:     []string{"module", "source", "request_id"},
		TimestampFormat: time.RFC3339,
	})
	parsed, err := log.ParseLevel(level)
	if err != nil {
		log.Warnf("Unknown LOG_LEVEL %q, using info", level)
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)
}

// newPipeline wires the catalog client and the lyrics sources, cheapest first,
// around one shared outbound client.
func newPipeline(cfg *appConfig.ConfigStruct, m *metrics.Metrics) *pipeline.Pipeline {
	hc := helpers.NewHTTPClient()

	resolver := genius.NewClient(genius.Options{
		AccessToken: cfg.Genius.AccessToken,
		APIBaseURL:  cfg.Genius.APIBaseURL,
		Timeout:     cfg.Genius.MetadataTimeout,
	}, hc)

	sources := []lyrics.Source{
		lyrics.NewDirectLookupSource(cfg.LRCLib.APIBaseURL, cfg.LRCLib.Timeout, hc),
		lyrics.NewPageScrapeSource(cfg.Scrape.PageTimeout, cfg.Scrape.UserAgent, hc),
		lyrics.NewEmbedBypassSource(cfg.Genius.WebBaseURL, cfg.Scrape.EmbedTimeout, cfg.Scrape.UserAgent, hc),
	}
	return pipeline.New(resolver, sources, m)
}

func run(ctx context.Context, cfg *appConfig.ConfigStruct) error {
	m := metrics.New()

	if cfg.Options.LogLevel != "debug" && cfg.Options.LogLevel != "trace" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), sentry.GetSentryGin(), handlers.RequestID())
	handlers.NewManager(newPipeline(cfg, m), m.Handler()).Register(router)

	server := &http.Server{
		Addr:              ":" + cfg.Options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting server on :%s", cfg.Options.Port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
