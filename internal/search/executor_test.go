package search

import (
	"testing"

	"github.com/stretchr/testify/require"

	"polsearch/internal/domain"
	"polsearch/internal/store/columnar"
)

func TestRequestValidateDefaultsMode(t *testing.T) {
	r := Request{Query: "immigration"}
	require.NoError(t, r.Validate())
	require.Equal(t, ModeHybrid, r.Mode)
	require.Equal(t, 20, r.Limit)
}

func TestRequestValidateRejectsEmptyQuery(t *testing.T) {
	r := Request{Query: "   "}
	require.Error(t, r.Validate())
}

func TestRequestValidateRejectsOversizedLimit(t *testing.T) {
	r := Request{Query: "q", Limit: 101}
	require.Error(t, r.Validate())
}

func TestRequestValidateRejectsBadContextSize(t *testing.T) {
	r := Request{Query: "q", ContextSize: 11}
	require.Error(t, r.Validate())
}

func TestRequestValidateDropsContentTypeAll(t *testing.T) {
	r := Request{Query: "q", ContentTypes: []domain.ContentType{domain.ContentHearing, domain.ContentAll}}
	require.NoError(t, r.Validate())
	require.Nil(t, r.ContentTypes)
}

func TestNormalizeHybridScore(t *testing.T) {
	hits := []columnar.Hit{{Score: 0.05}, {Score: 0.025}, {Score: 0.1}}
	results := normalize(hits, ModeHybrid)
	require.InDelta(t, 1.0, results[0].Score, 1e-9)
	require.InDelta(t, 0.5, results[1].Score, 1e-9)
	require.InDelta(t, 1.0, results[2].Score, 1e-9) // clamped above 1
}

func TestNormalizeVectorScore(t *testing.T) {
	hits := []columnar.Hit{{Distance: 0}, {Distance: 1}, {Distance: 2}}
	results := normalize(hits, ModeVector)
	require.InDelta(t, 1.0, results[0].Score, 1e-9)
	require.InDelta(t, 0.5, results[1].Score, 1e-9)
	require.InDelta(t, 0.0, results[2].Score, 1e-9)
}

func TestNormalizeFtsScoreDividesByMax(t *testing.T) {
	hits := []columnar.Hit{{Score: 4}, {Score: 2}}
	results := normalize(hits, ModeFts)
	require.InDelta(t, 1.0, results[0].Score, 1e-9)
	require.InDelta(t, 0.5, results[1].Score, 1e-9)
}

func TestPaginateFirstPageHasMore(t *testing.T) {
	req := Request{Query: "q", Offset: 0, Limit: 2}
	results := []Result{{ContentID: "a"}, {ContentID: "b"}, {ContentID: "c"}}
	resp := paginate(req, ModeHybrid, results)
	require.Len(t, resp.Results, 2)
	require.True(t, resp.HasMore)
	require.NotNil(t, resp.NextOffset)
	require.Equal(t, 2, *resp.NextOffset)
}

func TestPaginateSecondPageDisjointFromFirst(t *testing.T) {
	all := []Result{{ContentID: "a"}, {ContentID: "b"}, {ContentID: "c"}, {ContentID: "d"}}
	first := paginate(Request{Query: "q", Offset: 0, Limit: 2}, ModeHybrid, all)
	second := paginate(Request{Query: "q", Offset: 2, Limit: 2}, ModeHybrid, all)

	seen := map[string]bool{}
	for _, r := range first.Results {
		seen[r.ContentID] = true
	}
	for _, r := range second.Results {
		require.False(t, seen[r.ContentID], "page 2 result %s overlaps page 1", r.ContentID)
	}
	require.False(t, second.HasMore)
	require.Nil(t, second.NextOffset)
}

func TestPaginateNoResults(t *testing.T) {
	resp := paginate(Request{Query: "q", Offset: 0, Limit: 10}, ModeHybrid, nil)
	require.Equal(t, 0, resp.TotalReturned)
	require.False(t, resp.HasMore)
	require.Nil(t, resp.NextOffset)
}
