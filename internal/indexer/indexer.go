package indexer

import (
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/usestring/harreplay/pkg/har"
	"github.com/usestring/harreplay/pkg/types"
)

// Indexer holds inverted indexes over one archive. Document IDs are the
// transaction indices. An Indexer is immutable once built.
type Indexer struct {
	metas []*EntryMeta

	idxHost        map[string]*roaring.Bitmap
	idxMethod      map[string]*roaring.Bitmap
	idxStatus      map[int]*roaring.Bitmap
	idxMimeType    map[string]*roaring.Bitmap
	idxHTTPVersion map[string]*roaring.Bitmap
	idxHeaderName  map[string]*roaring.Bitmap
	idxToken       map[string]*roaring.Bitmap
}

// Build indexes every transaction of a.
func Build(a *har.Archive) *Indexer {
	idx := &Indexer{
		metas:          make([]*EntryMeta, 0, a.Len()),
		idxHost:        make(map[string]*roaring.Bitmap),
		idxMethod:      make(map[string]*roaring.Bitmap),
		idxStatus:      make(map[int]*roaring.Bitmap),
		idxMimeType:    make(map[string]*roaring.Bitmap),
		idxHTTPVersion: make(map[string]*roaring.Bitmap),
		idxHeaderName:  make(map[string]*roaring.Bitmap),
		idxToken:       make(map[string]*roaring.Bitmap),
	}
	if a == nil {
		return idx
	}
	for i := range a.Log.Entries {
		idx.add(FromEntry(i, &a.Log.Entries[i]))
	}
	return idx
}

func (idx *Indexer) add(meta *EntryMeta) {
	docID := uint32(meta.Index)
	idx.metas = append(idx.metas, meta)

	if meta.Host != "" {
		addToBitmap(idx.idxHost, meta.Host, docID)
	}
	if meta.Method != "" {
		addToBitmap(idx.idxMethod, meta.Method, docID)
	}
	addToBitmap(idx.idxStatus, meta.Status, docID)
	if meta.MimeType != "" {
		addToBitmap(idx.idxMimeType, meta.MimeType, docID)
	}
	if meta.HTTPVersion != "" {
		addToBitmap(idx.idxHTTPVersion, meta.HTTPVersion, docID)
	}
	for _, name := range meta.HeaderNamesLower {
		addToBitmap(idx.idxHeaderName, name, docID)
	}
	for _, token := range TokenizeURL(meta.URL) {
		addToBitmap(idx.idxToken, token, docID)
	}
}

// Count returns the number of indexed transactions.
func (idx *Indexer) Count() int {
	return len(idx.metas)
}

// Meta returns the metadata of the transaction at index, or nil.
func (idx *Indexer) Meta(index int) *EntryMeta {
	if index < 0 || index >= len(idx.metas) {
		return nil
	}
	return idx.metas[index]
}

// All returns a bitmap of every transaction.
func (idx *Indexer) All() *roaring.Bitmap {
	bm := roaring.New()
	bm.AddRange(0, uint64(len(idx.metas)))
	return bm
}

// Host returns the transactions for a host pattern. A "*." prefix matches
// the base domain and all of its subdomains; otherwise the match is exact.
func (idx *Indexer) Host(pattern string) *roaring.Bitmap {
	pattern = strings.ToLower(pattern)
	if !strings.HasPrefix(pattern, "*.") {
		return idx.idxHost[pattern]
	}

	base := pattern[2:]
	if base == "" {
		return nil
	}
	suffix := "." + base
	result := roaring.New()
	for host, bm := range idx.idxHost {
		if host == base || strings.HasSuffix(host, suffix) {
			result.Or(bm)
		}
	}
	return result
}

// Method returns the transactions sent with method (case-insensitive).
func (idx *Indexer) Method(method string) *roaring.Bitmap {
	return idx.idxMethod[strings.ToUpper(method)]
}

// Status returns the transactions whose captured response had status.
func (idx *Indexer) Status(status int) *roaring.Bitmap {
	return idx.idxStatus[status]
}

// MimeType returns the transactions whose captured response had the given
// media type. Parameters such as charset are ignored.
func (idx *Indexer) MimeType(mime string) *roaring.Bitmap {
	return idx.idxMimeType[strings.ToLower(strings.TrimSpace(mime))]
}

// HTTPVersion returns the transactions captured with version.
func (idx *Indexer) HTTPVersion(version string) *roaring.Bitmap {
	return idx.idxHTTPVersion[strings.ToUpper(version)]
}

// HeaderName returns the transactions whose request carried the header.
func (idx *Indexer) HeaderName(name string) *roaring.Bitmap {
	return idx.idxHeaderName[strings.ToLower(name)]
}

// Token returns the transactions whose URL contains token.
func (idx *Indexer) Token(token string) *roaring.Bitmap {
	return idx.idxToken[strings.ToLower(token)]
}

// Summaries converts the transactions in bm to summaries, in index order.
func (idx *Indexer) Summaries(bm *roaring.Bitmap) []*types.EntrySummary {
	out := make([]*types.EntrySummary, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		if meta := idx.Meta(int(it.Next())); meta != nil {
			out = append(out, meta.ToSummary())
		}
	}
	return out
}

func addToBitmap[K comparable](index map[K]*roaring.Bitmap, key K, docID uint32) {
	bm, ok := index[key]
	if !ok {
		bm = roaring.New()
		index[key] = bm
	}
	bm.Add(docID)
}
