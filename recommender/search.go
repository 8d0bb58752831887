package recommender

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/rushteam/songrec/pkg/textnorm"
)

// FindTrackByName 按曲名查找曲目，大小写与空白不敏感。
//
// 匹配分两档：曲名归一化后完全相同（给出 artist 时还要求某位艺人完全相同）为精确匹配，
// 否则曲名包含 name（以及某位艺人包含 artist）为部分匹配。精确匹配排在前面，
// 同档内按 popularity 降序、行号升序。没有匹配时返回空切片；limit <= 0 表示不限。
func (r *Recommender) FindTrackByName(name, artist string, limit int) (matches []TrackMatch, err error) {
	start := time.Now()
	defer func() { r.metrics.ObserveQuery(OpSearch, start, err) }()

	s, err := r.session()
	if err != nil {
		return nil, err
	}

	nameKey := textnorm.Fold(name)
	if nameKey == "" {
		return []TrackMatch{}, nil
	}
	artistKey := textnorm.Fold(artist)

	type hit struct {
		row, tier, popularity int
	}
	var hits []hit
	for row, key := range s.nameKeys {
		if !strings.Contains(key, nameKey) {
			continue
		}
		exact := key == nameKey
		if artistKey != "" {
			artistExact, artistPartial := matchArtists(s.artistKeys[row], artistKey)
			if !artistPartial {
				continue
			}
			exact = exact && artistExact
		}
		tier := 1
		if exact {
			tier = 0
		}
		hits = append(hits, hit{row: row, tier: tier, popularity: s.idx.Track(row).Popularity})
	}

	slices.SortFunc(hits, func(a, b hit) int {
		return cmp.Or(
			cmp.Compare(a.tier, b.tier),
			cmp.Compare(b.popularity, a.popularity),
			cmp.Compare(a.row, b.row),
		)
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	matches = make([]TrackMatch, len(hits))
	for i, h := range hits {
		tr := *s.idx.Track(h.row)
		tr.Artists = slices.Clone(tr.Artists)
		matches[i] = TrackMatch{Track: tr, Exact: h.tier == 0}
	}
	return matches, nil
}

func matchArtists(keys []string, want string) (exact, partial bool) {
	for _, k := range keys {
		if k == want {
			return true, true
		}
		if strings.Contains(k, want) {
			partial = true
		}
	}
	return false, partial
}
