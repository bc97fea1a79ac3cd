package indexer

import (
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/usestring/harreplay/pkg/types"
)

// Select evaluates q. Within a field the values are ORed, across fields
// the results are ANDed. Out of range indices are ignored.
func (idx *Indexer) Select(q *types.SelectQuery) *roaring.Bitmap {
	result := idx.All()
	if q.Empty() {
		return result
	}

	if len(q.Indices) > 0 {
		bm := roaring.New()
		for _, i := range q.Indices {
			if i >= 0 && i < idx.Count() {
				bm.Add(uint32(i))
			}
		}
		result.And(bm)
	}

	for _, bm := range []*roaring.Bitmap{
		union(q.Methods, idx.Method),
		union(q.Hosts, idx.Host),
		union(q.Statuses, idx.Status),
		union(q.MimeTypes, idx.MimeType),
	} {
		if bm != nil {
			result.And(bm)
		}
	}

	for _, name := range q.HeaderNames {
		result.And(orEmpty(idx.HeaderName(name)))
	}
	for _, token := range Tokenize(q.Text) {
		result.And(orEmpty(idx.Token(token)))
	}
	return result
}

// Indices evaluates q and returns matching transaction indices in order.
func (idx *Indexer) Indices(q *types.SelectQuery) []int {
	ids := idx.Select(q).ToArray()
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out
}

// Contains reports whether the transaction at index satisfies q.
func (idx *Indexer) Contains(q *types.SelectQuery, index int) bool {
	return index >= 0 && idx.Select(q).Contains(uint32(index))
}

// union ORs the bitmaps of every key. It returns nil when keys is empty,
// meaning the field does not filter.
func union[K any](keys []K, lookup func(K) *roaring.Bitmap) *roaring.Bitmap {
	if len(keys) == 0 {
		return nil
	}
	result := roaring.New()
	for _, k := range keys {
		if s, ok := any(k).(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		if bm := lookup(k); bm != nil {
			result.Or(bm)
		}
	}
	return result
}

func orEmpty(bm *roaring.Bitmap) *roaring.Bitmap {
	if bm == nil {
		return roaring.New()
	}
	return bm
}
