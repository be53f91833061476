package relational

import "context"

// bootstrap creates every table if absent. IDs are stored as TEXT
// (application-generated UUID v7 strings) rather than the native uuid type,
// so non-UUID external ids can share code paths.
func (s *Store) bootstrap(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			content_type TEXT NOT NULL,
			external_id TEXT NOT NULL,
			event_id TEXT,
			title TEXT NOT NULL DEFAULT '',
			date DATE NOT NULL,
			year_month TEXT NOT NULL,
			chamber TEXT NOT NULL DEFAULT 'Unknown',
			source_url TEXT NOT NULL DEFAULT '',
			is_processed BOOLEAN NOT NULL DEFAULT false,
			total_statements INT NOT NULL DEFAULT 0,
			total_segments INT NOT NULL DEFAULT 0,

			committee_name TEXT,
			committee_slug TEXT,
			congress INT,
			chambers TEXT[],

			granule_id TEXT,
			page_type TEXT,

			question TEXT,
			result TEXT,
			counts_by_position JSONB,
			bill_reference TEXT,
			amendment_reference TEXT,
			nomination_reference TEXT,

			UNIQUE (content_type, external_id)
		)`,
		`CREATE INDEX IF NOT EXISTS documents_content_type_idx ON documents (content_type)`,
		`CREATE INDEX IF NOT EXISTS documents_date_idx ON documents (date)`,
		`CREATE INDEX IF NOT EXISTS documents_committee_slug_idx ON documents (committee_slug)`,

		`CREATE TABLE IF NOT EXISTS statements (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			statement_index INT NOT NULL,
			speaker_label TEXT NOT NULL DEFAULT '',
			speaker_id TEXT,
			word_count INT NOT NULL DEFAULT 0,
			text TEXT,
			UNIQUE (document_id, statement_index)
		)`,
		`CREATE INDEX IF NOT EXISTS statements_document_idx ON statements (document_id)`,
		`CREATE INDEX IF NOT EXISTS statements_speaker_idx ON statements (speaker_id)`,

		`CREATE TABLE IF NOT EXISTS segments (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			statement_id TEXT NOT NULL REFERENCES statements(id) ON DELETE CASCADE,
			segment_index INT NOT NULL,
			chunk_index INT NOT NULL,
			start_time_ms INT NOT NULL DEFAULT 0,
			end_time_ms INT NOT NULL DEFAULT 0,
			UNIQUE (document_id, segment_index)
		)`,
		`CREATE INDEX IF NOT EXISTS segments_document_idx ON segments (document_id)`,
		`CREATE INDEX IF NOT EXISTS segments_statement_idx ON segments (statement_id)`,

		`CREATE TABLE IF NOT EXISTS speakers (
			id TEXT PRIMARY KEY,
			name TEXT,
			slug TEXT,
			total_appearances INT NOT NULL DEFAULT 0,
			is_verified BOOLEAN NOT NULL DEFAULT false,
			merged_into_id TEXT REFERENCES speakers(id)
		)`,

		`CREATE TABLE IF NOT EXISTS content_speakers (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			statement_id TEXT NOT NULL REFERENCES statements(id) ON DELETE CASCADE,
			local_speaker_label TEXT NOT NULL DEFAULT '',
			speaker_id TEXT REFERENCES speakers(id),
			match_confidence DOUBLE PRECISION
		)`,
		`CREATE INDEX IF NOT EXISTS content_speakers_speaker_idx ON content_speakers (speaker_id)`,
		`CREATE INDEX IF NOT EXISTS content_speakers_unresolved_idx ON content_speakers (id) WHERE speaker_id IS NULL`,

		`CREATE TABLE IF NOT EXISTS legislators (
			id TEXT PRIMARY KEY,
			bioguide_id TEXT UNIQUE,
			lis_id TEXT UNIQUE,
			full_name TEXT NOT NULL DEFAULT '',
			chamber TEXT NOT NULL DEFAULT 'Unknown',
			party TEXT,
			state TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS votes (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			legislator_id TEXT NOT NULL REFERENCES legislators(id),
			position TEXT NOT NULL,
			UNIQUE (document_id, legislator_id)
		)`,
		`CREATE INDEX IF NOT EXISTS votes_document_idx ON votes (document_id)`,

		`CREATE TABLE IF NOT EXISTS ingestion_batches (
			id TEXT PRIMARY KEY,
			priority INT NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			total_tasks INT NOT NULL DEFAULT 0,
			completed_tasks INT NOT NULL DEFAULT 0,
			failed_tasks INT NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS ingestion_tasks (
			id TEXT PRIMARY KEY,
			batch_id TEXT NOT NULL REFERENCES ingestion_batches(id) ON DELETE CASCADE,
			document_ref TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'queued',
			started_at TIMESTAMPTZ,
			finished_at TIMESTAMPTZ,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS ingestion_tasks_batch_idx ON ingestion_tasks (batch_id)`,
		`CREATE INDEX IF NOT EXISTS ingestion_tasks_claim_idx ON ingestion_tasks (status, started_at)`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
