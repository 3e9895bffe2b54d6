package docrep

import "testing"

// FuzzReadNext throws arbitrary bytes at the full decode pipeline. The
// only requirement is that it never panics — malformed input must
// always surface as a typed *Error or ErrEndOfStream, never a crash.
// Grounded on the teacher's own glint_fuzz_test.go, which fuzzes its
// decoder the same way: native testing.F, no corpus curation beyond
// a couple of seeds.
func FuzzReadNext(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{3})
	f.Add([]byte{2})
	f.Add([]byte{3, 0x90, 0x90, 0x00})

	f.Fuzz(func(t *testing.T, data []byte) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("ReadNext panicked on input %x: %v", data, r)
			}
		}()

		r := NewReader(emptyDoc{})
		_, _ = r.ReadNext(NewByteSource(data))
	})
}
