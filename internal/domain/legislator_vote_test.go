package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizePositionCanonicalVocabulary(t *testing.T) {
	require.Equal(t, "yea", NormalizePosition("Aye"))
	require.Equal(t, "yea", NormalizePosition("Yea"))
	require.Equal(t, "yea", NormalizePosition("Yes"))
	require.Equal(t, "nay", NormalizePosition("No"))
	require.Equal(t, "nay", NormalizePosition("Nay"))
}

func TestNormalizePositionIsCaseInsensitive(t *testing.T) {
	require.Equal(t, "yea", NormalizePosition("AYE"))
	require.Equal(t, "yea", NormalizePosition("yes"))
	require.Equal(t, "nay", NormalizePosition("NAY"))
	require.Equal(t, "nay", NormalizePosition("no"))
}

func TestNormalizePositionCollapsesWhitespace(t *testing.T) {
	require.Equal(t, "not_voting", NormalizePosition("Not Voting"))
	require.Equal(t, "not_voting", NormalizePosition("NOT  VOTING"))
	require.Equal(t, "present", NormalizePosition("Present"))
}

func TestNormalizePositionTrimsInput(t *testing.T) {
	require.Equal(t, "yea", NormalizePosition("  Aye  "))
	require.Equal(t, "present", NormalizePosition(" Present "))
}

func TestCollapseWhitespace(t *testing.T) {
	require.Equal(t, "not_voting", collapseWhitespace("not voting"))
	require.Equal(t, "a_b_c", collapseWhitespace("a b\tc"))
	require.Equal(t, "a_b", collapseWhitespace("a  \t b"))
	require.Equal(t, "lower", collapseWhitespace("LOWER"))
}
