// Command verifydb checks RS/CS bi-store consistency: every RS segment
// identity row should have a corresponding CS text_embeddings row once its
// owning document is marked processed.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"polsearch/internal/config"
	"polsearch/internal/logging"
	"polsearch/internal/store/columnar"
	"polsearch/internal/store/relational"
)

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

	segmentIDs, err := rs.AllSegmentIDs(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("list rs segments")
	}

	missing, err := missingFromCS(ctx, cs, segmentIDs)
	if err != nil {
		log.Fatal().Err(err).Msg("check cs segments")
	}

	fmt.Printf("rs segments: %d\n", len(segmentIDs))
	fmt.Printf("missing from cs: %d\n", len(missing))
	for _, id := range missing {
		fmt.Println("  ", id)
	}
	if len(missing) > 0 {
		os.Exit(1)
	}
}

// missingFromCS checks each segment id's presence in CS one batch at a
// time. Consistency is best-effort: a document mid-ingestion (is_processed
// still false) legitimately has RS identity rows with no CS counterpart
// yet, so callers should run this only after a quiescent period.
func missingFromCS(ctx context.Context, cs *columnar.Store, segmentIDs []string) ([]string, error) {
	const batchSize = 500
	var missing []string
	for i := 0; i < len(segmentIDs); i += batchSize {
		end := i + batchSize
		if end > len(segmentIDs) {
			end = len(segmentIDs)
		}
		present, err := cs.ExistingIDs(ctx, segmentIDs[i:end])
		if err != nil {
			return nil, err
		}
		for _, id := range segmentIDs[i:end] {
			if !present[id] {
				missing = append(missing, id)
			}
		}
	}
	return missing, nil
}
