package docrep

// ByteSlice is the materialized value of a KindByteSlice field: a
// range into some caller-managed byte store, carried as offsets rather
// than a copied []byte (spec §4.5: tuple2(start, len) on the wire,
// stop = start + len).
type ByteSlice struct {
	Start int64
	Stop  int64
}

// Len reports the number of bytes the slice covers.
func (b ByteSlice) Len() int64 { return b.Stop - b.Start }

// PointerSlice is the materialized value of a KindPointerSlice (or
// self-pointer slice) field: an inclusive-inclusive range of
// annotations in a store (spec §4.5 and §9's documented format quirk).
// For a wire tuple (s, 1), Start and Stop both name the same element.
type PointerSlice struct {
	StartIndex int
	StopIndex  int
	Start      any // store[StartIndex]
	Stop       any // store[StopIndex]
}

// Document is the root object materialized per input frame (spec §3).
// It is created fresh by Reader.ReadNext and owned by the caller from
// that point on.
type Document struct {
	// Value is the caller's own materialized document, as returned by
	// StaticDocument.NewDocument. Fields declared in the static
	// document schema have already been set on it by the time
	// ReadNext returns.
	Value any
	// Schema is the runtime schema reconciled for this frame.
	Schema *RuntimeSchema
	// Lazy holds document-level field entries preserved verbatim: those
	// with no static counterpart and those declared ModeReadOnly. When
	// the static document declares no fields at all, it instead holds
	// the whole document instance's bytes, with Count() == -1.
	// Otherwise it is nil if no field entry was preserved.
	Lazy *LazySlab
}

// Store is the decoder's own view of one store's materialized state,
// reachable via Document.Schema.Stores[i].Materialized. It pairs the
// structural RuntimeStore descriptor with the per-annotation lazy
// preservation data the spec's Annotation data model calls for —
// since annotation instances themselves are caller-owned opaque
// values (StaticStore.At returns `any`), their lazy slabs are kept
// here instead of on the annotation object.
type Store struct {
	Runtime *RuntimeStore
	// PerAnnotation holds one *LazySlab per decoded annotation (index
	// aligned with StaticStore.At), or nil where nothing was preserved
	// for that annotation. Empty when the store is itself lazy.
	PerAnnotation []*LazySlab
	// Lazy holds the whole store's instances_group bytes verbatim,
	// populated only when the store has no static counterpart.
	Lazy *LazySlab
}
