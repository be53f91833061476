package ingest

import (
	"polsearch/internal/chunker"
	"polsearch/internal/domain"
)

// builtStatement pairs a domain.Statement with the segments chunked from it.
// Segment indices are dense across the whole document, not per statement.
type builtStatement struct {
	statement      domain.Statement
	segments       []domain.Segment
	texts          []string // chunk text, same length/order as segments
	contentSpeaker domain.ContentSpeaker
}

// buildStatementsAndSegments applies the procedural filter to each raw
// statement, chunks the retained ones, and assigns document-wide dense
// segment_index values. hasText controls whether the statement's raw text
// is retained in Postgres (floor speeches) or left to the columnar store
// only (hearings).
func buildStatementsAndSegments(documentID string, raw []rawStatement, opts chunker.Options, hasText bool) []builtStatement {
	var out []builtStatement
	segmentIndex := 0

	for i, r := range raw {
		if chunker.IsProcedural(r.Text) {
			continue
		}
		chunks := chunker.Chunk(r.Text, opts)
		if len(chunks) == 0 {
			continue
		}

		statementID := newID()
		st := domain.Statement{
			ID:             statementID,
			DocumentID:     documentID,
			StatementIndex: i,
			SpeakerLabel:   r.SpeakerLabel,
			WordCount:      wordCount(r.Text),
		}
		if hasText {
			text := r.Text
			st.Text = &text
		}

		bs := builtStatement{statement: st}
		bs.contentSpeaker = domain.ContentSpeaker{
			ID:                newID(),
			DocumentID:        documentID,
			StatementID:       statementID,
			LocalSpeakerLabel: r.SpeakerLabel,
		}
		for chunkIdx, text := range chunks {
			seg := domain.Segment{
				ID:           newID(),
				DocumentID:   documentID,
				StatementID:  statementID,
				SegmentIndex: segmentIndex,
				ChunkIndex:   chunkIdx,
			}
			bs.segments = append(bs.segments, seg)
			bs.texts = append(bs.texts, text)
			segmentIndex++
		}
		out = append(out, bs)
	}
	return out
}

func wordCount(s string) int {
	n := 0
	inWord := false
	for _, r := range s {
		isSpace := r == ' ' || r == '\t' || r == '\n' || r == '\r'
		if !isSpace && !inWord {
			n++
			inWord = true
		} else if isSpace {
			inWord = false
		}
	}
	return n
}
