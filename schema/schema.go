// Package schema is a struct-tag-driven convenience layer over the
// interfaces in package docrep (spec §4.2). It is not part of the
// core decoder's contract — a caller can implement
// docrep.StaticDocument directly without reflection, exactly as the
// spec requires — but building it by hand for every document shape is
// tedious, so this package does it once per type at registration time,
// the way the teacher's newDecoderUsingTagWithLimits builds glint's
// field lookup once per type instead of on every decode.
package schema

import (
	"fmt"
	"reflect"
	"strings"
	"unsafe"

	"github.com/kungfusheep/docrep"
)

const tagName = "docrep"

// Build reflects over TDoc (a struct type) and its tagged store
// element types, returning a ready docrep.StaticDocument. TDoc's
// fields are tagged the same way annotation struct fields are (see
// taggedField), plus one additional tag form for stores:
//
//	Widgets []Widget `docrep:"widgets,store=widget"`
//
// marks a field as a store named "widgets" on the wire, holding
// instances of the annotation class whose own SerialName is "widget".
// The element type (Widget, not *Widget) is itself reflected the same
// way an annotation class is.
func Build[TDoc any]() docrep.StaticDocument {
	var zero TDoc
	docType := reflect.TypeOf(zero)
	if docType.Kind() == reflect.Pointer {
		docType = docType.Elem()
	}
	if docType.Kind() != reflect.Struct {
		panic(fmt.Sprintf("schema.Build: %v is not a struct type", docType))
	}

	d := &taggedDocument{docType: docType}

	for i := 0; i < docType.NumField(); i++ {
		f := docType.Field(i)
		raw, ok := f.Tag.Lookup(tagName)
		if !ok {
			continue
		}
		parts := strings.Split(raw, ",")
		serial := parts[0]
		opts := parts[1:]

		if storeClass, isStore := storeOption(opts); isStore {
			d.stores = append(d.stores, newTaggedStore(serial, storeClass, f))
			continue
		}

		d.fields = append(d.fields, newTaggedField(f, serial, opts))
	}

	classesBySerial := make(map[string]*taggedClass)
	for _, s := range d.stores {
		ts := s.(*taggedStore)
		if _, seen := classesBySerial[ts.storedClass]; seen {
			continue
		}
		classesBySerial[ts.storedClass] = buildClass(ts.storedClass, ts.elemType)
	}
	for _, c := range classesBySerial {
		d.classes = append(d.classes, c)
	}

	return d
}

func storeOption(opts []string) (class string, ok bool) {
	for _, o := range opts {
		if strings.HasPrefix(o, "store=") {
			return strings.TrimPrefix(o, "store="), true
		}
	}
	return "", false
}

type taggedDocument struct {
	docType reflect.Type
	fields  []docrep.StaticField
	stores  []docrep.StaticStore
	classes []docrep.StaticAnnotationClass
}

func (d *taggedDocument) Stores() []docrep.StaticStore            { return d.stores }
func (d *taggedDocument) Schemas() []docrep.StaticAnnotationClass { return d.classes }
func (d *taggedDocument) Fields() []docrep.StaticField            { return d.fields }
func (d *taggedDocument) NewDocument() any {
	return reflect.New(d.docType).Interface()
}

// taggedClass implements docrep.StaticAnnotationClass for one
// registered element type.
type taggedClass struct {
	serial string
	elType reflect.Type
	fields []docrep.StaticField
}

func (c *taggedClass) SerialName() string           { return c.serial }
func (c *taggedClass) Fields() []docrep.StaticField { return c.fields }

func buildClass(serial string, elType reflect.Type) *taggedClass {
	c := &taggedClass{serial: serial, elType: elType}
	for i := 0; i < elType.NumField(); i++ {
		f := elType.Field(i)
		raw, ok := f.Tag.Lookup(tagName)
		if !ok {
			continue
		}
		parts := strings.Split(raw, ",")
		c.fields = append(c.fields, newTaggedField(f, parts[0], parts[1:]))
	}
	return c
}

// taggedStore implements docrep.StaticStore, backed by a []Elem slice
// field on the document struct at sliceOffset.
type taggedStore struct {
	serial      string
	storedClass string
	elemType    reflect.Type
	sliceOffset uintptr
	sliceType   reflect.Type

	slicePtr unsafe.Pointer // set by Resize, points at the document's slice field
}

func newTaggedStore(serial, storedClass string, f reflect.StructField) docrep.StaticStore {
	if f.Type.Kind() != reflect.Slice {
		panic(fmt.Sprintf("schema: store field %q must be a slice, got %v", f.Name, f.Type))
	}
	return &taggedStore{
		serial:      serial,
		storedClass: storedClass,
		elemType:    f.Type.Elem(),
		sliceOffset: f.Offset,
		sliceType:   f.Type,
	}
}

func (s *taggedStore) Name() string        { return s.serial }
func (s *taggedStore) SerialName() string  { return s.serial }
func (s *taggedStore) StoredClass() string { return s.storedClass }

// Resize allocates n zero-valued elements and attaches them to
// document's store field. The backing slice is allocated through
// reflect.MakeSlice (as setPointerCollection's is) because the element
// count isn't known until the stores block of the frame currently
// being decoded has been read.
func (s *taggedStore) Resize(n int, document any) {
	docPtr := unsafe.Pointer(reflect.ValueOf(document).Pointer())
	fieldPtr := unsafe.Add(docPtr, s.sliceOffset)

	slice := reflect.MakeSlice(s.sliceType, n, n)
	reflect.NewAt(s.sliceType, fieldPtr).Elem().Set(slice)

	s.slicePtr = fieldPtr
}

func (s *taggedStore) At(i int) any {
	slice := reflect.NewAt(s.sliceType, s.slicePtr).Elem()
	return slice.Index(i).Addr().Interface()
}

// taggedField implements docrep.StaticField for one struct field,
// with a per-kind set closure built once here at registration. Each
// Set call still uses reflect.ValueOf to take the target's address,
// and the pointer kinds use it to take the value's address; only the
// pointer-collection kind also allocates through reflect.MakeSlice,
// for the same reason Resize does: the count isn't known until decode
// time.
type taggedField struct {
	name      string
	serial    string
	kind      docrep.FieldKind
	mode      docrep.FieldMode
	prim      docrep.PrimitiveType
	isSlice   bool
	isColl    bool
	isSelfPtr bool
	pointedTo string
	offset    uintptr
	set       func(base unsafe.Pointer, value any)
}

func newTaggedField(f reflect.StructField, serial string, opts []string) *taggedField {
	tf := &taggedField{
		name:   f.Name,
		serial: serial,
		offset: f.Offset,
		mode:   docrep.ModeNormal,
	}

	var explicitPointer, isBytes bool
	for _, o := range opts {
		switch {
		case o == "slice":
			tf.isSlice = true
		case o == "collection":
			tf.isColl = true
		case o == "selfptr":
			tf.isSelfPtr = true
			explicitPointer = true
		case o == "readonly":
			tf.mode = docrep.ModeReadOnly
		case o == "bytes":
			isBytes = true
		case o == "ptr":
			explicitPointer = true
		case strings.HasPrefix(o, "to="):
			tf.pointedTo = strings.TrimPrefix(o, "to=")
			explicitPointer = true
		case strings.HasPrefix(o, "prim="):
			tf.prim = primFromName(strings.TrimPrefix(o, "prim="))
		}
	}

	switch {
	case isBytes:
		tf.kind = docrep.KindByteSlice
		tf.set = setByteSlice(f.Offset)
	case explicitPointer:
		switch {
		case tf.isSelfPtr:
			tf.kind = docrep.KindSelfPointer
		case tf.isColl:
			tf.kind = docrep.KindPointerCollection
		case tf.isSlice:
			tf.kind = docrep.KindPointerSlice
		default:
			tf.kind = docrep.KindPointer
		}
		if tf.kind == docrep.KindPointerCollection {
			tf.set = setPointerCollection(f.Offset, f.Type)
		} else if tf.kind == docrep.KindPointerSlice || (tf.kind == docrep.KindSelfPointer && tf.isSlice) {
			tf.set = setPointerSlice(f.Offset)
		} else {
			tf.set = setPointerSingle(f.Offset)
		}
	default:
		tf.kind = docrep.KindPrimitive
		if tf.prim == 0 {
			tf.prim = primFromGoKind(f.Type)
		}
		tf.set = setPrimitive(f.Offset, tf.prim)
	}

	return tf
}

func (f *taggedField) Name() string                        { return f.name }
func (f *taggedField) SerialName() string                  { return f.serial }
func (f *taggedField) Kind() docrep.FieldKind              { return f.kind }
func (f *taggedField) Mode() docrep.FieldMode              { return f.mode }
func (f *taggedField) PrimitiveType() docrep.PrimitiveType { return f.prim }
func (f *taggedField) IsSlice() bool                       { return f.isSlice }
func (f *taggedField) IsCollection() bool                  { return f.isColl }
func (f *taggedField) IsSelfPointer() bool                 { return f.isSelfPtr }
func (f *taggedField) PointedToClass() string              { return f.pointedTo }

func (f *taggedField) Set(target any, value any) {
	base := unsafe.Pointer(reflect.ValueOf(target).Pointer())
	f.set(unsafe.Add(base, f.offset), value)
}

func setPrimitive(offset uintptr, pt docrep.PrimitiveType) func(unsafe.Pointer, any) {
	return func(p unsafe.Pointer, value any) {
		switch pt {
		case docrep.PrimBool:
			*(*bool)(p) = value.(bool)
		case docrep.PrimInt8:
			*(*int8)(p) = value.(int8)
		case docrep.PrimInt16:
			*(*int16)(p) = value.(int16)
		case docrep.PrimInt32:
			*(*int32)(p) = value.(int32)
		case docrep.PrimInt64:
			*(*int64)(p) = value.(int64)
		case docrep.PrimUint8:
			*(*uint8)(p) = value.(uint8)
		case docrep.PrimUint16, docrep.PrimChar:
			*(*uint16)(p) = value.(uint16)
		case docrep.PrimUint32:
			*(*uint32)(p) = value.(uint32)
		case docrep.PrimUint64:
			*(*uint64)(p) = value.(uint64)
		case docrep.PrimString:
			*(*string)(p) = value.(string)
		default:
			panic(fmt.Sprintf("schema: unhandled primitive type %v", pt))
		}
	}
}

func setByteSlice(offset uintptr) func(unsafe.Pointer, any) {
	return func(p unsafe.Pointer, value any) {
		*(*docrep.ByteSlice)(p) = value.(docrep.ByteSlice)
	}
}

func setPointerSingle(offset uintptr) func(unsafe.Pointer, any) {
	return func(p unsafe.Pointer, value any) {
		*(*unsafe.Pointer)(p) = unsafe.Pointer(reflect.ValueOf(value).Pointer())
	}
}

func setPointerSlice(offset uintptr) func(unsafe.Pointer, any) {
	return func(p unsafe.Pointer, value any) {
		*(*docrep.PointerSlice)(p) = value.(docrep.PointerSlice)
	}
}

// setPointerCollection allocates the destination slice through
// reflect, since its length is only known at decode time; each
// element is then written through an unsafe pointer store, same as
// the single-pointer case.
func setPointerCollection(offset uintptr, fieldType reflect.Type) func(unsafe.Pointer, any) {
	return func(p unsafe.Pointer, value any) {
		items := value.([]any)
		slice := reflect.MakeSlice(fieldType, len(items), len(items))
		for i, item := range items {
			elemPtr := unsafe.Pointer(slice.Index(i).UnsafeAddr())
			*(*unsafe.Pointer)(elemPtr) = unsafe.Pointer(reflect.ValueOf(item).Pointer())
		}
		reflect.NewAt(fieldType, p).Elem().Set(slice)
	}
}

func primFromName(name string) docrep.PrimitiveType {
	switch name {
	case "bool":
		return docrep.PrimBool
	case "int8":
		return docrep.PrimInt8
	case "int16":
		return docrep.PrimInt16
	case "int32":
		return docrep.PrimInt32
	case "int64":
		return docrep.PrimInt64
	case "uint8":
		return docrep.PrimUint8
	case "uint16":
		return docrep.PrimUint16
	case "uint32":
		return docrep.PrimUint32
	case "uint64":
		return docrep.PrimUint64
	case "char":
		return docrep.PrimChar
	case "string":
		return docrep.PrimString
	default:
		panic(fmt.Sprintf("schema: unknown prim=%q", name))
	}
}

func primFromGoKind(t reflect.Type) docrep.PrimitiveType {
	switch t.Kind() {
	case reflect.Bool:
		return docrep.PrimBool
	case reflect.Int8:
		return docrep.PrimInt8
	case reflect.Int16:
		return docrep.PrimInt16
	case reflect.Int32:
		return docrep.PrimInt32
	case reflect.Int64, reflect.Int:
		return docrep.PrimInt64
	case reflect.Uint8:
		return docrep.PrimUint8
	case reflect.Uint16:
		return docrep.PrimUint16
	case reflect.Uint32:
		return docrep.PrimUint32
	case reflect.Uint64, reflect.Uint:
		return docrep.PrimUint64
	case reflect.String:
		return docrep.PrimString
	default:
		panic(fmt.Sprintf("schema: cannot infer a primitive type for %v; add prim=... to the tag", t))
	}
}
