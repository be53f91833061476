package ingest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"polsearch/internal/domain"
)

func TestSlugifyCommittee(t *testing.T) {
	require.Equal(t, "committee-on-armed-services", slugifyCommittee("Committee on Armed Services"))
	require.Equal(t, "appropriations", slugifyCommittee("  Appropriations!  "))
	require.Equal(t, "", slugifyCommittee("---"))
}

func TestNormalizeChamber(t *testing.T) {
	require.Equal(t, domain.ChamberHouse, normalizeChamber("h"))
	require.Equal(t, domain.ChamberSenate, normalizeChamber("s"))
	require.Equal(t, domain.Chamber("Joint"), normalizeChamber("Joint"))
}

func TestParseVoteDateAcceptsRFC3339(t *testing.T) {
	ts, err := parseVoteDate("2024-03-05T14:30:00-05:00")
	require.NoError(t, err)
	require.Equal(t, 2024, ts.Year())
}

func TestParseVoteDateRejectsDateOnly(t *testing.T) {
	_, err := parseVoteDate("2024-03-05")
	require.Error(t, err)
}

func TestRawVoteDocParsesVotersMapAndSkipsVP(t *testing.T) {
	raw := `{
		"vote_id": "v1",
		"date": "2024-03-05T14:30:00-05:00",
		"chamber": "s",
		"votes": {
			"Yea": [
				{"id": "S354", "display_name": "Jane Doe", "party": "D", "state": "CA"},
				"VP"
			],
			"Nay": [
				{"id": "S111", "display_name": "John Roe", "party": "R", "state": "TX"}
			]
		}
	}`
	var doc rawVoteDoc
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	require.Len(t, doc.Votes["Yea"], 2)
	require.True(t, doc.Votes["Yea"][1].IsVP)
	require.False(t, doc.Votes["Yea"][0].IsVP)
	require.Equal(t, "S354", doc.Votes["Yea"][0].Voter.ID)
	require.Len(t, doc.Votes["Nay"], 1)
	require.Equal(t, "S111", doc.Votes["Nay"][0].Voter.ID)
}

func TestVoteSegmentTextJoinsParts(t *testing.T) {
	got := voteSegmentText("On Passage of the Bill", "H.R. 1234", "Passed.")
	require.Equal(t, "On Passage of the Bill. H.R. 1234. Passed", got)
}

func TestVoteSegmentTextSkipsEmptyParts(t *testing.T) {
	got := voteSegmentText("On the Nomination", "", "Confirmed")
	require.Equal(t, "On the Nomination. Confirmed", got)
}

func TestRawHearingDocUsesDocumentedFieldNames(t *testing.T) {
	raw := `{
		"package_id": "CHRG-118hhrg1",
		"event_id": "LC12345",
		"title": "A Hearing",
		"date": "2024-01-01",
		"chamber": "House",
		"committee": "Committee on Armed Services",
		"statements": [{"speaker": "Mr. Smith", "text": "hello"}]
	}`
	var doc rawHearingDoc
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	require.Equal(t, "LC12345", doc.EventID)
	require.Equal(t, "Committee on Armed Services", doc.CommitteeName)
	require.Len(t, doc.Statements, 1)
	require.Equal(t, "Mr. Smith", doc.Statements[0].SpeakerLabel)
}
