package validation

import "github.com/RoaringBitmap/roaring/roaring64"

// SeenSet records the event numbers already validated in one session. It
// is insert-only until Reset.
type SeenSet struct {
	bm *roaring64.Bitmap
}

// NewSeenSet creates an empty set.
func NewSeenSet() *SeenSet {
	return &SeenSet{bm: roaring64.New()}
}

// Contains reports whether n was inserted. Negative numbers are never
// present.
func (s *SeenSet) Contains(n int) bool {
	if n < 0 {
		return false
	}
	return s.bm.Contains(uint64(n))
}

// Insert adds n and reports whether it was new. Negative numbers are
// rejected.
func (s *SeenSet) Insert(n int) bool {
	if n < 0 {
		return false
	}
	return s.bm.CheckedAdd(uint64(n))
}

// Len returns the number of distinct event numbers seen.
func (s *SeenSet) Len() uint64 {
	return s.bm.GetCardinality()
}

// Reset empties the set.
func (s *SeenSet) Reset() {
	s.bm.Clear()
}
