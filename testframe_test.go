package docrep

import (
	"bytes"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

// fieldAttr describes one <field> entry for a hand-built test frame
// (spec §4.3). Only the attributes actually set are written as keys.
type fieldAttr struct {
	name          string
	pointerTo     *int32
	isSlice       bool
	isSelfPointer bool
	isCollection  bool
}

func encodeFieldAttr(t testing.TB, enc *msgpack.Encoder, f fieldAttr) {
	t.Helper()
	n := 1
	if f.pointerTo != nil {
		n++
	}
	if f.isSlice {
		n++
	}
	if f.isSelfPointer {
		n++
	}
	if f.isCollection {
		n++
	}
	must(t, enc.EncodeMapLen(n))
	must(t, enc.EncodeUint8(uint8(wireKeyName)))
	must(t, enc.EncodeString(f.name))
	if f.pointerTo != nil {
		must(t, enc.EncodeUint8(uint8(wireKeyPointerTo)))
		must(t, enc.EncodeInt32(*f.pointerTo))
	}
	if f.isSlice {
		must(t, enc.EncodeUint8(uint8(wireKeyIsSlice)))
		must(t, enc.EncodeNil())
	}
	if f.isSelfPointer {
		must(t, enc.EncodeUint8(uint8(wireKeyIsSelfPointer)))
		must(t, enc.EncodeNil())
	}
	if f.isCollection {
		must(t, enc.EncodeUint8(uint8(wireKeyIsCollection)))
		must(t, enc.EncodeNil())
	}
}

func must(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("encoding test frame: %v", err)
	}
}

type classDef struct {
	name   string
	fields []fieldAttr
}

type storeDef struct {
	name    string
	klassID int32
	nelem   int32
}

// instanceVal tags a Go value with how it should be packed, for field
// kinds the plain msgpack encoder can't infer unambiguously (a
// pointer-slice tuple and a plain two-int64 tuple look identical on
// the wire, only the caller's schema disambiguates them).
type instanceVal struct {
	kind  string // "scalar", "bytes", "ptr", "ptrslice", "ptrcoll"
	value any
}

func scalar(v any) instanceVal         { return instanceVal{kind: "scalar", value: v} }
func byteSliceVal(start, length int64) instanceVal {
	return instanceVal{kind: "bytes", value: [2]int64{start, length}}
}
func ptrVal(idx int32) instanceVal { return instanceVal{kind: "ptr", value: idx} }
func ptrSliceVal(start, length int32) instanceVal {
	return instanceVal{kind: "ptrslice", value: [2]int32{start, length}}
}
func ptrCollVal(idxs ...int32) instanceVal { return instanceVal{kind: "ptrcoll", value: idxs} }

func encodeInstance(t testing.TB, enc *msgpack.Encoder, fields map[int32]instanceVal) {
	t.Helper()
	must(t, enc.EncodeMapLen(len(fields)))
	for id, v := range fields {
		must(t, enc.EncodeInt32(id))
		switch v.kind {
		case "scalar":
			must(t, enc.Encode(v.value))
		case "bytes":
			tup := v.value.([2]int64)
			must(t, enc.EncodeArrayLen(2))
			must(t, enc.EncodeInt64(tup[0]))
			must(t, enc.EncodeInt64(tup[1]))
		case "ptr":
			must(t, enc.EncodeInt32(v.value.(int32)))
		case "ptrslice":
			tup := v.value.([2]int32)
			must(t, enc.EncodeArrayLen(2))
			must(t, enc.EncodeInt32(tup[0]))
			must(t, enc.EncodeInt32(tup[1]))
		case "ptrcoll":
			idxs := v.value.([]int32)
			must(t, enc.EncodeArrayLen(len(idxs)))
			for _, idx := range idxs {
				must(t, enc.EncodeInt32(idx))
			}
		}
	}
}

// buildFrame assembles a complete frame per spec §4.3/§4.4: wire
// version, classes block, stores block, document instance, then one
// instances_group per store. Each element of instances corresponds by
// index to stores.
func buildFrame(t testing.TB, version uint8, classes []classDef, stores []storeDef, docInstance map[int32]instanceVal, instances [][]map[int32]instanceVal) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)

	must(t, enc.EncodeUint8(version))

	must(t, enc.EncodeArrayLen(len(classes)))
	for _, c := range classes {
		must(t, enc.EncodeArrayLen(2))
		must(t, enc.EncodeString(c.name))
		must(t, enc.EncodeArrayLen(len(c.fields)))
		for _, f := range c.fields {
			encodeFieldAttr(t, enc, f)
		}
	}

	must(t, enc.EncodeArrayLen(len(stores)))
	for _, s := range stores {
		must(t, enc.EncodeArrayLen(3))
		must(t, enc.EncodeString(s.name))
		must(t, enc.EncodeInt32(s.klassID))
		must(t, enc.EncodeInt32(s.nelem))
	}

	// doc_instance: nbytes prefix, then the instance itself. We encode
	// the instance first to know its length, then splice the prefix in.
	var instBuf bytes.Buffer
	instEnc := msgpack.NewEncoder(&instBuf)
	encodeInstance(t, instEnc, docInstance)
	must(t, enc.EncodeInt64(int64(instBuf.Len())))
	buf.Write(instBuf.Bytes())

	for i, s := range stores {
		var groupBuf bytes.Buffer
		groupEnc := msgpack.NewEncoder(&groupBuf)
		must(t, groupEnc.EncodeArrayLen(int(s.nelem)))
		var items []map[int32]instanceVal
		if i < len(instances) {
			items = instances[i]
		}
		for _, item := range items {
			encodeInstance(t, groupEnc, item)
		}
		must(t, enc.EncodeInt64(int64(groupBuf.Len())))
		buf.Write(groupBuf.Bytes())
	}

	return buf.Bytes()
}
