package selection

import (
	"sort"

	"recipingAds/domain"
)

// Rank orders creatives by score, then CTR, then recency, all descending.
// The sort is stable and works on a copy.
func Rank(pool []domain.Creative) []domain.Creative {
	out := make([]domain.Creative, len(pool))
	copy(out, pool)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if sa, sb := a.ScoreValue(), b.ScoreValue(); sa != sb {
			return sa > sb
		}
		if ca, cb := a.CTR(), b.CTR(); ca != cb {
			return ca > cb
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	return out
}
