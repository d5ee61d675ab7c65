package panel

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSortRuleLess(t *testing.T) {
	t.Parallel()

	keys := []string{"ccc", "a", "bb", "aa", "b"}
	order := func(r SortRule) []string {
		out := append([]string(nil), keys...)
		sort.SliceStable(out, func(i, j int) bool { return r.Less(out[i], out[j]) })
		return out
	}
	require.Equal(t, []string{"a", "aa", "b", "bb", "ccc"}, order(KeyAsc))
	require.Equal(t, []string{"ccc", "bb", "b", "aa", "a"}, order(KeyDesc))
	require.Equal(t, []string{"a", "b", "aa", "bb", "ccc"}, order(LengthAsc))
	require.Equal(t, []string{"ccc", "aa", "bb", "a", "b"}, order(LengthDesc))
}

func TestParseAndCycle(t *testing.T) {
	t.Parallel()

	r, err := ParseSortRule("LENGTH-ASC")
	require.NoError(t, err)
	require.Equal(t, LengthAsc, r)
	_, err = ParseSortRule("random")
	require.Error(t, err)

	require.Equal(t, KeyDesc, KeyAsc.Next())
	require.Equal(t, KeyAsc, LengthDesc.Next())
	require.Equal(t, KeyAsc, SortRule("").Next())
}
