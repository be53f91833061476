package relational

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"polsearch/internal/apperr"
	"polsearch/internal/domain"
)

// GetOrCreateLegislatorByBioguide looks up a House legislator by bioguide id,
// inserting a new row if absent. Used by vote ingestion's process-local
// cache to avoid a lookup per individual position row.
func (s *Store) GetOrCreateLegislatorByBioguide(ctx context.Context, bioguideID string, newRow domain.Legislator) (string, error) {
	return s.getOrCreateLegislator(ctx, "bioguide_id", bioguideID, newRow)
}

// GetOrCreateLegislatorByLIS looks up a Senate legislator by LIS id.
func (s *Store) GetOrCreateLegislatorByLIS(ctx context.Context, lisID string, newRow domain.Legislator) (string, error) {
	return s.getOrCreateLegislator(ctx, "lis_id", lisID, newRow)
}

func (s *Store) getOrCreateLegislator(ctx context.Context, column, value string, newRow domain.Legislator) (string, error) {
	var id string
	query := fmt.Sprintf(`SELECT id FROM legislators WHERE %s = $1`, column)
	err := s.pool.QueryRow(ctx, query, value).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: lookup legislator: %v", apperr.StoreUnavailable, err)
	}

	_, err = s.pool.Exec(ctx, `
INSERT INTO legislators (id, bioguide_id, lis_id, full_name, chamber, party, state)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT DO NOTHING`,
		newRow.ID, newRow.BioguideID, newRow.LISID, newRow.DisplayName, string(chamberOf(newRow)), newRow.Party, newRow.State)
	if err != nil {
		return "", fmt.Errorf("%w: insert legislator: %v", apperr.StoreUnavailable, err)
	}

	// Re-read in case of a concurrent insert racing ON CONFLICT DO NOTHING.
	if err := s.pool.QueryRow(ctx, query, value).Scan(&id); err != nil {
		return "", fmt.Errorf("%w: re-read legislator: %v", apperr.StoreUnavailable, err)
	}
	return id, nil
}

func chamberOf(l domain.Legislator) domain.Chamber {
	if l.BioguideID != nil {
		return domain.ChamberHouse
	}
	if l.LISID != nil {
		return domain.ChamberSenate
	}
	return domain.ChamberUnknown
}

// InsertVotePositionsBatch bulk-inserts individual legislator vote
// positions. VotePosition.VoteID is the vote document's id;
// the row's own primary key is derived from (document id, legislator id).
func (s *Store) InsertVotePositionsBatch(ctx context.Context, positions []domain.VotePosition) error {
	if len(positions) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range positions {
		batch.Queue(`
INSERT INTO votes (id, document_id, legislator_id, position)
VALUES ($1, $2, $3, $4)
ON CONFLICT (document_id, legislator_id) DO UPDATE SET position = EXCLUDED.position`,
			p.VoteID+":"+p.LegislatorID, p.VoteID, p.LegislatorID, p.Position)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range positions {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("%w: insert vote positions: %v", apperr.StoreUnavailable, err)
		}
	}
	return nil
}
