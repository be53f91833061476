package columnar

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"polsearch/internal/apperr"
	"polsearch/internal/config"
	"polsearch/internal/domain"
)

// QdrantCentroidIndex is an alternate backend for speaker_centroids,
// selected by SPEAKER_INDEX_BACKEND=qdrant.
// Everything else (text_embeddings, text_fts) stays on the ClickHouse Store;
// this exists purely to give speaker identity resolution a second, ANN-
// native home instead of ClickHouse's brute-force ORDER BY distance scan.
type QdrantCentroidIndex struct {
	client     *qdrant.Client
	collection string
}

const centroidSampleCountField = "sample_count"

// OpenQdrantCentroidIndex connects to Qdrant and ensures the centroid
// collection exists with the configured vector size and distance metric.
func OpenQdrantCentroidIndex(ctx context.Context, cfg config.ColumnarConfig, dimension int) (*QdrantCentroidIndex, error) {
	parsed, err := url.Parse(cfg.QdrantDSN)
	if err != nil {
		return nil, fmt.Errorf("%w: parse qdrant dsn: %v", apperr.StoreUnavailable, err)
	}
	host := parsed.Hostname()
	if host == "" {
		host = "localhost"
	}
	portStr := parsed.Port()
	if portStr == "" {
		portStr = "6334"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid qdrant port: %v", apperr.StoreUnavailable, err)
	}
	qcfg := &qdrant.Config{Host: host, Port: port}
	if parsed.Scheme == "https" {
		qcfg.UseTLS = true
	}
	if apiKey := parsed.Query().Get("api_key"); apiKey != "" {
		qcfg.APIKey = apiKey
	}
	client, err := qdrant.NewClient(qcfg)
	if err != nil {
		return nil, fmt.Errorf("%w: create qdrant client: %v", apperr.StoreUnavailable, err)
	}

	q := &QdrantCentroidIndex{client: client, collection: "speaker_centroids"}
	if err := q.ensureCollection(ctx, dimension, cfg.Metric); err != nil {
		client.Close()
		return nil, err
	}
	return q, nil
}

func (q *QdrantCentroidIndex) ensureCollection(ctx context.Context, dimension int, metric string) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("%w: check qdrant collection: %v", apperr.StoreUnavailable, err)
	}
	if exists {
		return nil
	}
	var distance qdrant.Distance
	switch metric {
	case "l2":
		distance = qdrant.Distance_Euclid
	case "ip":
		distance = qdrant.Distance_Dot
	default:
		distance = qdrant.Distance_Cosine
	}
	if dimension <= 0 {
		dimension = 384
	}
	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: distance,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: create qdrant collection: %v", apperr.StoreUnavailable, err)
	}
	return nil
}

// pointID maps a speaker id (already a uuid v7 string, per internal/domain)
// onto a Qdrant point id, falling back to a deterministic name-based UUID
// for any speaker id that isn't itself a valid UUID.
func pointID(speakerID string) *qdrant.PointId {
	if _, err := uuid.Parse(speakerID); err == nil {
		return qdrant.NewIDUUID(speakerID)
	}
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(speakerID)).String())
}

// UpsertCentroid writes (or overwrites) the centroid point for speakerID.
// Qdrant supports in-place point upsert, so unlike the ClickHouse backend
// this does not need a delete-then-insert two-step.
func (q *QdrantCentroidIndex) UpsertCentroid(ctx context.Context, speakerID string, vector []float32, sampleCount int) error {
	vec := make([]float32, len(vector))
	copy(vec, vector)
	payload := qdrant.NewValueMap(map[string]any{
		"speaker_id":              speakerID,
		centroidSampleCountField: int64(sampleCount),
	})
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points: []*qdrant.PointStruct{{
			Id:      pointID(speakerID),
			Vectors: qdrant.NewVectorsDense(vec),
			Payload: payload,
		}},
	})
	if err != nil {
		return fmt.Errorf("%w: qdrant upsert centroid: %v", apperr.StoreUnavailable, err)
	}
	return nil
}

// NearestCentroid returns the nearest speaker centroid to v by the
// collection's configured distance metric.
func (q *QdrantCentroidIndex) NearestCentroid(ctx context.Context, v []float32) (domain.SpeakerCentroid, float64, bool, error) {
	vec := make([]float32, len(v))
	copy(vec, v)
	limit := uint64(1)
	results, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return domain.SpeakerCentroid{}, 0, false, fmt.Errorf("%w: qdrant nearest centroid: %v", apperr.StoreUnavailable, err)
	}
	if len(results) == 0 {
		return domain.SpeakerCentroid{}, 0, false, nil
	}
	hit := results[0]
	var speakerID string
	var sampleCount int
	if hit.Payload != nil {
		if v, ok := hit.Payload["speaker_id"]; ok {
			speakerID = v.GetStringValue()
		}
		if v, ok := hit.Payload[centroidSampleCountField]; ok {
			sampleCount = int(v.GetIntegerValue())
		}
	}
	vector := hit.GetVectors().GetVector().GetData()
	// Qdrant's cosine "score" is a similarity (higher=better, 1=identical);
	// the resolver works in cosine distance (lower=closer), so invert here.
	distance := 1 - float64(hit.GetScore())
	return domain.SpeakerCentroid{SpeakerID: speakerID, Vector: vector, SampleCount: sampleCount}, distance, true, nil
}

func (q *QdrantCentroidIndex) Close() error { return q.client.Close() }
