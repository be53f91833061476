// Command ingestctl runs ingestion over a directory of hearing,
// floor-speech, or vote JSON files, or reports corpus stats.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"polsearch/internal/chunker"
	"polsearch/internal/config"
	"polsearch/internal/domain"
	"polsearch/internal/embedding"
	"polsearch/internal/ingest"
	"polsearch/internal/logging"
	"polsearch/internal/scheduler"
	"polsearch/internal/speaker"
	"polsearch/internal/store/columnar"
	"polsearch/internal/store/relational"
)

var log = logging.Log

func main() {
	if len(os.Args) < 2 {
		log.Fatal().Msg("usage: ingestctl <hearing|floorspeech|vote|fts-only|batch|speakers|stats> [flags]")
	}
	subcommand := os.Args[1]

	fs := flag.NewFlagSet(subcommand, flag.ExitOnError)
	dir := fs.String("dir", "", "directory of JSON files to ingest")
	force := fs.Bool("force", false, "delete and reingest existing documents")
	year := fs.Int("year", 0, "only ingest documents from this year (0 disables)")
	limit := fs.Int("limit", 0, "max files to process (0 = unlimited)")
	workers := fs.Int("workers", 0, "fan-out width (0 = use config default)")
	batchType := fs.String("type", "", "content type for the batch subcommand (hearing|floorspeech|vote)")
	priority := fs.Int("priority", 0, "batch priority, higher claims first")
	_ = fs.Parse(os.Args[2:])

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

	if subcommand == "stats" {
		runStats(ctx, rs)
		return
	}

	cs, err := columnar.Open(ctx, cfg.Columnar)
	if err != nil {
		log.Fatal().Err(err).Msg("open columnar store")
	}
	defer cs.Close()

	if subcommand == "speakers" {
		runSpeakerBackfill(ctx, rs, cs, cfg, *limit)
		return
	}

	if subcommand == "batch" {
		if *dir == "" || *batchType == "" {
			log.Fatal().Msg("-dir and -type are required for batch")
		}
		runBatch(ctx, rs, cs, cfg, *dir, *batchType, *priority, *force, *year, *limit, *workers)
		return
	}

	if *dir == "" {
		log.Fatal().Msg("-dir is required")
	}
	w := *workers
	if w == 0 {
		w = cfg.Ingestion.MaxWorkers
	}
	opts := ingest.Options{Force: *force, YearFilter: *year, Limit: *limit, Workers: w}
	deps := ingest.Deps{
		RS: rs, CS: cs,
		Chunker: chunker.Options{MaxChars: cfg.Ingestion.ChunkMaxChars, OverlapRatio: cfg.Ingestion.ChunkOverlapRatio},
		Log:     log,
	}

	var results []ingest.Result
	switch subcommand {
	case "hearing":
		deps.Embedder = embedding.NewClient(cfg.Embedding)
		results, err = ingest.NewHearingIngester(deps).IngestDirectory(ctx, *dir, opts)
	case "floorspeech":
		deps.Embedder = embedding.NewClient(cfg.Embedding)
		results, err = ingest.NewFloorSpeechIngester(deps).IngestDirectory(ctx, *dir, opts)
	case "vote":
		deps.Embedder = embedding.NewClient(cfg.Embedding)
		results, err = ingest.NewVoteIngester(deps).IngestDirectory(ctx, *dir, opts)
	case "fts-only":
		err = runFtsOnly(ctx, deps, *dir, opts)
	default:
		log.Fatal().Str("subcommand", subcommand).Msg("unknown subcommand")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("ingestion failed")
	}

	ingested, skipped, failed := 0, 0, 0
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			log.Error().Err(r.Err).Str("path", r.Path).Msg("file failed, continuing")
		case r.Skipped:
			skipped++
		default:
			ingested++
		}
	}
	log.Info().Int("ingested", ingested).Int("skipped", skipped).Int("failed", failed).Msg("ingestion complete")
}

// runFtsOnly walks dir and dispatches each file to the FTS-only fast path,
// distinguishing hearing from floor-speech payloads by the presence of a
// "committee" field.
func runFtsOnly(ctx context.Context, deps ingest.Deps, dir string, opts ingest.Options) error {
	fo := ingest.NewFtsOnlyIngester(deps)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := dir + "/" + e.Name()
		isHearing, err := hasCommitteeName(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if isHearing {
			_, err = fo.IngestHearingFile(ctx, path, opts)
		} else {
			_, err = fo.IngestFloorSpeechFile(ctx, path, opts)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

func hasCommitteeName(path string) (bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	var probe struct {
		CommitteeName *string `json:"committee"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return false, err
	}
	return probe.CommitteeName != nil, nil
}

// runSpeakerBackfill drives the speaker resolver against content_speakers rows left unresolved
// by ingestion: each local_speaker_label is embedded (standing in for a
// dedicated speaker-embedding model, which is produced
// elsewhere) and matched against the running speaker centroids in batches of
// up to limit rows (200 when unset), stopping once a batch resolves fewer
// than limit.
func runSpeakerBackfill(ctx context.Context, rs *relational.Store, cs *columnar.Store, cfg config.Config, limit int) {
	if limit <= 0 {
		limit = 200
	}
	var index speaker.CentroidIndex = cs
	if cfg.Columnar.SpeakerIndexBackend == "qdrant" {
		qi, err := columnar.OpenQdrantCentroidIndex(ctx, cfg.Columnar, cfg.Embedding.Dimensions)
		if err != nil {
			log.Fatal().Err(err).Msg("open qdrant centroid index")
		}
		defer qi.Close()
		index = qi
	}
	resolver := speaker.New(rs, index)
	// speaker_embeddings always lives in ClickHouse regardless of which
	// backend serves centroid lookups.
	resolver.Embeddings = cs
	embedder := embedding.NewClient(cfg.Embedding)
	total := 0
	for {
		n, err := resolver.BackfillUnresolved(ctx, limit, func(ctx context.Context, cs domain.ContentSpeaker) ([]float32, error) {
			vectors, err := embedder.EmbedBatch(ctx, []string{cs.LocalSpeakerLabel})
			if err != nil {
				return nil, err
			}
			return vectors[0], nil
		})
		total += n
		if err != nil {
			log.Fatal().Err(err).Int("resolved", total).Msg("speaker backfill failed")
		}
		if n < limit {
			break
		}
	}
	log.Info().Int("resolved", total).Msg("speaker backfill complete")
}

// runBatch drives the scheduler's two-level queue over a directory: it enqueues one
// task per file, then fans out scheduler.Pool.Drain workers to claim and
// ingest them, recording per-task completed/failed status and deriving the
// batch's counters, rather than invoking the ingesters directly.
func runBatch(ctx context.Context, rs *relational.Store, cs *columnar.Store, cfg config.Config, dir, contentType string, priority int, force bool, year, limit, workers int) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		log.Fatal().Err(err).Msg("list batch files")
	}
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	if len(files) == 0 {
		log.Info().Msg("no files to batch")
		return
	}

	w := workers
	if w <= 0 {
		w = cfg.Ingestion.MaxWorkers
	}
	pool := scheduler.New(rs, w, log)

	batchID := contentType + "-" + strconv.FormatInt(time.Now().UTC().UnixNano(), 36)
	if err := pool.CreateBatch(ctx, batchID, priority, files); err != nil {
		log.Fatal().Err(err).Msg("create batch")
	}

	deps := ingest.Deps{
		RS: rs, CS: cs,
		Chunker:  chunker.Options{MaxChars: cfg.Ingestion.ChunkMaxChars, OverlapRatio: cfg.Ingestion.ChunkOverlapRatio},
		Log:      log,
		Embedder: embedding.NewClient(cfg.Embedding),
	}
	opts := ingest.Options{Force: force, YearFilter: year, Limit: 0, Workers: 1}

	// One ingester shared across all workers so per-run caches (the vote
	// ingester's legislator cache) survive across tasks.
	hearings := ingest.NewHearingIngester(deps)
	floorSpeeches := ingest.NewFloorSpeechIngester(deps)
	votes := ingest.NewVoteIngester(deps)

	handle := func(ctx context.Context, task domain.IngestionTask) error {
		var result ingest.Result
		var err error
		switch contentType {
		case "hearing":
			result, err = hearings.IngestFile(ctx, task.DocumentRef, opts)
		case "floorspeech":
			result, err = floorSpeeches.IngestFile(ctx, task.DocumentRef, opts)
		case "vote":
			result, err = votes.IngestFile(ctx, task.DocumentRef, opts)
		default:
			return fmt.Errorf("unknown batch content type %q", contentType)
		}
		if err != nil {
			return err
		}
		if !result.Skipped {
			log.Debug().Str("task", task.ID).Str("document", result.DocumentID).Msg("batch task ingested")
		}
		return nil
	}

	completed, failed := pool.Drain(ctx, handle)
	log.Info().Str("batch", batchID).Int("completed", completed).Int("failed", failed).Msg("batch drained")
}

func runStats(ctx context.Context, rs *relational.Store) {
	processed, unprocessed, err := rs.CountDocumentsByProcessed(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("count documents")
	}
	byType, err := rs.CountDocumentsByType(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("count documents by type")
	}
	fmt.Printf("processed: %d\nunprocessed: %d\n", processed, unprocessed)
	for ct, n := range byType {
		fmt.Printf("%s: %d\n", ct, n)
	}
	printBatchStatus(ctx, rs)
}

// printBatchStatus reports ingestion progress at batch/task granularity:
// overall counts per status, then per-batch progress for batches still in
// flight (running first, then pending).
func printBatchStatus(ctx context.Context, rs *relational.Store) {
	batchCounts, err := rs.CountBatchesByStatus(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("count batches")
	}
	taskCounts, err := rs.CountTasksByStatus(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("count tasks")
	}

	fmt.Println("batches:")
	for _, st := range []domain.BatchStatus{domain.BatchPending, domain.BatchRunning, domain.BatchCompleted, domain.BatchFailed} {
		if n := batchCounts[st]; n > 0 {
			fmt.Printf("  %s: %d\n", st, n)
		}
	}
	fmt.Println("tasks:")
	for _, st := range []domain.TaskStatus{domain.TaskQueued, domain.TaskProcessing, domain.TaskCompleted, domain.TaskFailed} {
		if n := taskCounts[st]; n > 0 {
			fmt.Printf("  %s: %d\n", st, n)
		}
	}

	for _, st := range []domain.BatchStatus{domain.BatchRunning, domain.BatchPending} {
		batches, err := rs.ListBatchesByStatus(ctx, st)
		if err != nil {
			log.Fatal().Err(err).Msg("list batches")
		}
		for _, b := range batches {
			fmt.Printf("%s batch %s: %d/%d completed, %d failed\n",
				b.Status, b.ID, b.Completed, b.Total, b.Failed)
		}
	}
}
