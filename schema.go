package docrep

// FieldKind identifies how a field's wire value maps onto a Go value.
// See spec §3 (Static Field Descriptor) and §4.5 (Per-Kind Field
// Readers).
type FieldKind int

const (
	KindPrimitive FieldKind = iota + 1
	KindByteSlice
	KindPointer
	KindPointerSlice
	KindPointerCollection
	KindSelfPointer
)

func (k FieldKind) isPointerLike() bool {
	switch k {
	case KindPointer, KindPointerSlice, KindPointerCollection, KindSelfPointer:
		return true
	default:
		return false
	}
}

// FieldMode controls whether a field's original wire bytes are kept
// alongside its materialized value.
type FieldMode int

const (
	ModeNormal FieldMode = iota
	ModeReadOnly
)

// PrimitiveType names the declared Go type a KindPrimitive field is
// narrowed to, per spec §4.5's numeric-conversion table.
type PrimitiveType int

const (
	PrimBool PrimitiveType = iota + 1
	PrimInt8
	PrimInt16
	PrimInt32
	PrimInt64
	PrimUint8
	PrimUint16
	PrimUint32
	PrimUint64
	PrimChar // 16-bit character, read as an integer and cast
	PrimString
)

// StaticField is the caller's declaration of one field of an annotation
// class or of the document class itself (spec §3, §4.2). The core
// never constructs these; it consumes them.
type StaticField interface {
	// Name is the in-memory field name (diagnostic only).
	Name() string
	// SerialName is the name the field appears under on the wire.
	SerialName() string
	Kind() FieldKind
	Mode() FieldMode
	// PrimitiveType is meaningful only when Kind() == KindPrimitive.
	PrimitiveType() PrimitiveType
	// IsSlice, IsCollection and IsSelfPointer report the three
	// structural flags spec §3 requires to match exactly against the
	// stream when a runtime field binds to this static counterpart.
	// A fourth flag, is-pointer, is derived from Kind().isPointerLike().
	IsSlice() bool
	IsCollection() bool
	IsSelfPointer() bool
	// PointedToClass names the annotation class a pointer-kind field
	// targets. Meaningless for non-pointer kinds.
	PointedToClass() string
	// Set assigns a materialized value to this field on target, which
	// is a pointer to the annotation (or document) instance being
	// decoded. The value's dynamic type matches the kind: a converted
	// numeric/bool/string/char for KindPrimitive, ByteSlice for
	// KindByteSlice, the value StaticStore.At returned for
	// KindPointer/KindSelfPointer, a PointerSlice for KindPointerSlice
	// (or a pointer/self-pointer field with IsSlice), or a []any of At
	// values for KindPointerCollection (or a pointer/self-pointer field
	// with IsCollection).
	Set(target any, value any)
}

// StaticAnnotationClass is the caller's declaration of one annotation
// class: its wire name and its ordered fields (spec §4.2 "schemas()").
type StaticAnnotationClass interface {
	SerialName() string
	Fields() []StaticField
}

// StaticStore is the caller's declaration of one named store attached
// to the document class (spec §4.2 "stores()").
type StaticStore interface {
	Name() string
	SerialName() string
	// StoredClass is the serial name of the annotation class this
	// store holds instances of.
	StoredClass() string
	// Resize pre-allocates n annotation instances and attaches the
	// store to document. document is whatever value the caller's
	// StaticDocument.NewDocument returned.
	Resize(n int, document any)
	// At returns the i'th pre-allocated annotation instance, valid
	// only after Resize. Pointer-kind fields materialize to whatever
	// At returns.
	At(i int) any
}

// StaticDocument is the caller's top-level declaration for one document
// class (spec §3 "Static Document Descriptor").
type StaticDocument interface {
	Stores() []StaticStore
	Schemas() []StaticAnnotationClass
	Fields() []StaticField
	// NewDocument constructs a fresh, empty document instance for one
	// frame. Its return value is passed to each StaticStore.Resize and
	// to StaticField.Set calls for document-level fields.
	NewDocument() any
}

const metaSerialName = "__meta__"

// wireKey enumerates the map keys used inside a <field> entry of the
// classes block (spec §4.3).
type wireKey uint8

const (
	wireKeyName          wireKey = 0
	wireKeyPointerTo     wireKey = 1
	wireKeyIsSlice       wireKey = 2
	wireKeyIsSelfPointer wireKey = 3
	wireKeyIsCollection  wireKey = 4
)

const wireVersion uint8 = 3
