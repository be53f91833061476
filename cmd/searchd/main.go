// Command searchd runs the hybrid search HTTP API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"polsearch/internal/config"
	"polsearch/internal/embedding"
	"polsearch/internal/enrich"
	"polsearch/internal/httpapi"
	"polsearch/internal/logging"
	"polsearch/internal/search"
	"polsearch/internal/store/columnar"
	"polsearch/internal/store/relational"
)

const shutdownGrace = 10 * time.Second

func main() {
	log := logging.Log

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rs, err := relational.Open(ctx, cfg.Relational)
	if err != nil {
		log.Fatal().Err(err).Msg("open relational store")
	}
	defer rs.Close()

	cs, err := columnar.Open(ctx, cfg.Columnar)
	if err != nil {
		log.Fatal().Err(err).Msg("open columnar store")
	}
	defer cs.Close()

	embedder := embedding.NewClient(cfg.Embedding)
	executor := search.New(rs, cs, embedder, cfg.Search.Timeout, log)
	enricher := enrich.New(rs, cs)

	server := httpapi.NewServer(executor, enricher, rs, log)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	httpServer := &http.Server{Addr: addr, Handler: server}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http shutdown")
		}
	}()

	log.Info().Str("addr", addr).Msg("searchd listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server")
	}
}
