package gatttest

import gatt "github.com/XC-/gattlib"

// attr is one row of the attribute table.
type attr struct {
	h     uint16
	typ   gatt.UUID
	value []byte
	props gatt.Property // access allowed on this attribute
	endh  uint16        // last handle of the group; services only
}

func (a *attr) isService() bool { return a.typ.Equal(gatt.PrimaryServiceUUID) }

// An attrRange is a contiguous range of attributes.
type attrRange struct {
	aa   []*attr
	base uint16 // handle number of aa[0]
}

const (
	tooSmall = -1
	tooLarge = -2
)

// idx returns the index into aa corresponding to handle n.
// If n is too small, idx returns tooSmall (-1).
// If n is too large, idx returns tooLarge (-2).
func (r *attrRange) idx(n int) int {
	if n < int(r.base) {
		return tooSmall
	}
	if n >= int(r.base)+len(r.aa) {
		return tooLarge
	}
	return n - int(r.base)
}

// At returns the attribute at handle n.
func (r *attrRange) At(n uint16) (*attr, bool) {
	i := r.idx(int(n))
	if i < 0 {
		return nil, false
	}
	return r.aa[i], true
}

// Subrange returns the attributes in [start, end]; it may
// return an empty slice. Subrange does not panic for
// out-of-range start or end.
func (r *attrRange) Subrange(start, end uint16) []*attr {
	if start > end {
		return []*attr{}
	}
	startidx := r.idx(int(start))
	switch startidx {
	case tooSmall:
		startidx = 0
	case tooLarge:
		return []*attr{}
	}

	endidx := r.idx(int(end) + 1) // [start, end] includes its upper bound!
	switch endidx {
	case tooSmall:
		return []*attr{}
	case tooLarge:
		endidx = len(r.aa)
	}
	return r.aa[startidx:endidx]
}

func (r *attrRange) next() uint16 { return r.base + uint16(len(r.aa)) }

func (r *attrRange) push(a *attr) *attr {
	a.h = r.next()
	r.aa = append(r.aa, a)
	return a
}
