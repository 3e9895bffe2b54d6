package docrep

import (
	"bytes"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// LazySlab is a growable byte buffer plus an element counter, the
// write-side shape the spec's Design Notes call for: "the lazy slab is
// logically a growable byte buffer plus an element counter; the
// element counter is required so the writer can re-emit the map
// header." Adapted from glint's Buffer (buffer.go): same pool-backed
// acquire/reset discipline, narrowed to the one thing docrep's lazy
// path needs — appending (field_id, raw_value_bytes) pairs, or taking
// a whole verbatim byte range in one shot.
type LazySlab struct {
	count int
	buf   bytes.Buffer
	enc   *msgpack.Encoder
}

var slabPool = sync.Pool{
	New: func() any {
		s := &LazySlab{}
		s.enc = msgpack.NewEncoder(&s.buf)
		return s
	},
}

// newLazySlab acquires a reset slab from the pool.
func newLazySlab() *LazySlab {
	s := slabPool.Get().(*LazySlab)
	s.reset()
	return s
}

// ReturnToPool releases the slab back to the pool. Using it afterwards
// is undefined behaviour.
func (s *LazySlab) ReturnToPool() {
	slabPool.Put(s)
}

func (s *LazySlab) reset() {
	s.buf.Reset()
	s.count = 0
}

// appendField re-packs one (field_id, raw) pair, where raw is the
// exact wire bytes captured for an unknown or READ_ONLY field's value
// (spec §4.4).
func (s *LazySlab) appendField(fieldID int32, raw []byte) error {
	if err := s.enc.EncodeInt32(fieldID); err != nil {
		return wrapErr(KindInternal, err, "repack lazy field %d", fieldID)
	}
	s.buf.Write(raw)
	s.count++
	return nil
}

// setVerbatim replaces the slab's contents with nbytes of already-valid
// wire data read wholesale (the "static document with no fields" /
// "lazy store" short circuits in spec §4.4), recording an element
// count alongside them: the store's nelem, or -1 for a whole document
// instance.
func (s *LazySlab) setVerbatim(raw []byte, count int) {
	s.buf.Reset()
	s.buf.Write(raw)
	s.count = count
}

// Count is the number of entries (field pairs, or preserved instances)
// held in the slab, or -1 when it holds a whole document instance
// verbatim.
func (s *LazySlab) Count() int { return s.count }

// Bytes returns the slab's accumulated wire bytes.
func (s *LazySlab) Bytes() []byte { return s.buf.Bytes() }

// Empty reports whether the slab holds no entries (Count() == 0). A
// verbatim slab for a zero-element store still holds the bytes of its
// empty array.
func (s *LazySlab) Empty() bool { return s.count == 0 }
