package docrep

// instanceDecoder parses the document instance and each store's
// instance array (spec §4.4), dispatching per-field reads (§4.5) and
// building the lazy byte slab attached to each materialized object.
type instanceDecoder struct {
	w      *wireCodec
	limits DecodeLimits
	schema *RuntimeSchema
}

func newInstanceDecoder(w *wireCodec, limits DecodeLimits, schema *RuntimeSchema) *instanceDecoder {
	return &instanceDecoder{w: w, limits: limits, schema: schema}
}

// decodeDocument parses <doc_instance> ::= <nbytes:i64> <instance>.
func (d *instanceDecoder) decodeDocument(doc *Document, docValue any, docHasStaticFields bool) error {
	nbytes, err := d.w.readI64()
	if err != nil {
		return err
	}
	if err := d.limits.checkGroupBytes(nbytes); err != nil {
		return err
	}

	if !docHasStaticFields {
		raw, err := d.w.readRaw(nbytes)
		if err != nil {
			return err
		}
		slab := newLazySlab()
		slab.setVerbatim(raw, -1) // -1: opaque whole-instance blob, not a counted entry list
		doc.Lazy = slab
		return nil
	}

	slab, err := d.decodeInstanceFields(d.schema.MetaClass, docValue, nil)
	if err != nil {
		return err
	}
	doc.Lazy = slab
	return nil
}

// decodeStoreGroup parses one <instances_group> ::= <nbytes:i64>
// array_of <instance> for store rs, in store-declared order.
func (d *instanceDecoder) decodeStoreGroup(rs *RuntimeStore) (*Store, error) {
	nbytes, err := d.w.readI64()
	if err != nil {
		return nil, err
	}
	if err := d.limits.checkGroupBytes(nbytes); err != nil {
		return nil, err
	}

	store := &Store{Runtime: rs}

	if rs.Lazy {
		raw, err := d.w.readRaw(nbytes)
		if err != nil {
			return nil, err
		}
		slab := newLazySlab()
		slab.setVerbatim(raw, rs.NElem)
		store.Lazy = slab
		return store, nil
	}

	n, err := d.w.readArrayHeader()
	if err != nil {
		return nil, err
	}
	if n != rs.NElem {
		return nil, newErr(KindSchemaMismatch, "store %q instances array has %d elements, header declared %d", rs.StreamName, n, rs.NElem)
	}

	store.PerAnnotation = make([]*LazySlab, n)
	for i := 0; i < n; i++ {
		target := rs.Static.At(i)
		slab, err := d.decodeInstanceFields(rs.RuntimeClass, target, rs)
		if err != nil {
			return nil, err
		}
		store.PerAnnotation[i] = slab
	}

	return store, nil
}

// decodeInstanceFields parses one <instance> ::= map of <field_id:i32
// -> value> against class's field list, assigning into target (a
// document or annotation instance) and returning a lazy slab if any
// field entries were preserved (nil if none were).
func (d *instanceDecoder) decodeInstanceFields(class *RuntimeClass, target any, currentStore *RuntimeStore) (*LazySlab, error) {
	n, err := d.w.readMapHeader()
	if err != nil {
		return nil, err
	}

	var slab *LazySlab
	for i := 0; i < n; i++ {
		fieldID, err := d.w.readI32()
		if err != nil {
			return nil, err
		}
		if fieldID < 0 || int(fieldID) >= len(class.Fields) {
			return nil, newErr(KindBounds, "field_id %d out of range [0,%d) for class %q", fieldID, len(class.Fields), class.StreamName)
		}
		rf := class.Fields[fieldID]

		if rf.Lazy {
			raw, err := d.w.readOpaqueValue()
			if err != nil {
				return nil, err
			}
			if slab == nil {
				slab = newLazySlab()
			}
			if err := slab.appendField(fieldID, raw); err != nil {
				return nil, err
			}
			continue
		}

		from := d.w.mark()
		val, err := d.decodeFieldValue(rf, currentStore)
		if err != nil {
			return nil, err
		}
		captured := d.w.capture(from)

		rf.Static.Set(target, val)

		if rf.Static.Mode() == ModeReadOnly {
			if slab == nil {
				slab = newLazySlab()
			}
			if err := slab.appendField(fieldID, captured); err != nil {
				return nil, err
			}
		}
	}

	return slab, nil
}

// decodeFieldValue dispatches one field's wire value per its kind
// (spec §4.5).
func (d *instanceDecoder) decodeFieldValue(rf *RuntimeField, currentStore *RuntimeStore) (any, error) {
	sf := rf.Static

	switch sf.Kind() {
	case KindPrimitive:
		return d.decodePrimitive(sf.PrimitiveType())

	case KindByteSlice:
		return d.decodeByteSlice()

	case KindPointer, KindSelfPointer:
		store, err := d.resolveTargetStore(rf, currentStore)
		if err != nil {
			return nil, err
		}
		if sf.IsCollection() {
			return d.decodePointerCollection(store)
		}
		if sf.IsSlice() {
			return d.decodePointerSlice(store)
		}
		return d.decodePointerSingle(store)

	case KindPointerSlice:
		store, err := d.resolveTargetStore(rf, currentStore)
		if err != nil {
			return nil, err
		}
		return d.decodePointerSlice(store)

	case KindPointerCollection:
		store, err := d.resolveTargetStore(rf, currentStore)
		if err != nil {
			return nil, err
		}
		return d.decodePointerCollection(store)

	default:
		return nil, newErr(KindWireFormat, "field %q: unknown field kind %v", rf.StreamName, sf.Kind())
	}
}

// resolveTargetStore picks the store a pointer-like field resolves
// against: the field's back-filled target, unless it is a self-pointer
// (by Kind() or by flag), in which case it is the store currently
// being decoded (spec §4.5: "indexes resolve against the current
// store, not the field's declared target").
func (d *instanceDecoder) resolveTargetStore(rf *RuntimeField, currentStore *RuntimeStore) (*RuntimeStore, error) {
	if rf.Static.Kind() == KindSelfPointer || rf.Static.IsSelfPointer() {
		if currentStore == nil {
			return nil, newErr(KindInternal, "field %q is a self-pointer but is not being decoded within a store", rf.StreamName)
		}
		return currentStore, nil
	}
	if rf.TargetStore == nil {
		return nil, newErr(KindInternal, "field %q has no back-filled target store", rf.StreamName)
	}
	return rf.TargetStore, nil
}

func (d *instanceDecoder) decodePrimitive(pt PrimitiveType) (any, error) {
	switch pt {
	case PrimBool:
		return d.w.readBool()
	case PrimInt8:
		v, err := d.w.readIntGeneric()
		return int8(v), err
	case PrimInt16:
		v, err := d.w.readIntGeneric()
		return int16(v), err
	case PrimInt32:
		v, err := d.w.readIntGeneric()
		return int32(v), err
	case PrimInt64:
		return d.w.readIntGeneric()
	case PrimUint8:
		v, err := d.w.readUintGeneric()
		return uint8(v), err
	case PrimUint16:
		v, err := d.w.readUintGeneric()
		return uint16(v), err
	case PrimUint32:
		v, err := d.w.readUintGeneric()
		return uint32(v), err
	case PrimUint64:
		return d.w.readUintGeneric()
	case PrimChar:
		v, err := d.w.readIntGeneric()
		return uint16(v), err
	case PrimString:
		return d.w.readString()
	default:
		return nil, newErr(KindWireFormat, "unknown declared primitive type %v", pt)
	}
}

func (d *instanceDecoder) decodeByteSlice() (any, error) {
	n, err := d.w.readArrayHeader()
	if err != nil {
		return nil, err
	}
	if n != 2 {
		return nil, newErr(KindWireFormat, "byte-slice tuple has arity %d, want 2", n)
	}
	start, err := d.w.readI64()
	if err != nil {
		return nil, err
	}
	length, err := d.w.readI64()
	if err != nil {
		return nil, err
	}
	return ByteSlice{Start: start, Stop: start + length}, nil
}

func (d *instanceDecoder) targetAt(store *RuntimeStore, idx int32) (any, error) {
	if idx < 0 || int(idx) >= store.NElem {
		return nil, newErr(KindBounds, "pointer index %d out of range [0,%d) for store %q", idx, store.NElem, store.StreamName)
	}
	if store.Lazy || store.Static == nil {
		return nil, newErr(KindInternal, "pointer target store %q has no materialized annotations", store.StreamName)
	}
	return store.Static.At(int(idx)), nil
}

func (d *instanceDecoder) decodePointerSingle(store *RuntimeStore) (any, error) {
	idx, err := d.w.readI32()
	if err != nil {
		return nil, err
	}
	return d.targetAt(store, idx)
}

// decodePointerSlice implements the inclusive-inclusive pointer-slice
// convention: wire tuple (start, len) materializes to endpoints
// (store[start], store[start+len-1]) — for len == 1, start == stop
// (spec §4.5, §8, §9).
func (d *instanceDecoder) decodePointerSlice(store *RuntimeStore) (any, error) {
	n, err := d.w.readArrayHeader()
	if err != nil {
		return nil, err
	}
	if n != 2 {
		return nil, newErr(KindWireFormat, "pointer-slice tuple has arity %d, want 2", n)
	}
	start, err := d.w.readI32()
	if err != nil {
		return nil, err
	}
	length, err := d.w.readI32()
	if err != nil {
		return nil, err
	}
	if length < 1 {
		return nil, newErr(KindBounds, "pointer-slice length %d must be >= 1", length)
	}
	stop := start + length - 1

	startVal, err := d.targetAt(store, start)
	if err != nil {
		return nil, err
	}
	stopVal, err := d.targetAt(store, stop)
	if err != nil {
		return nil, err
	}

	return PointerSlice{StartIndex: int(start), StopIndex: int(stop), Start: startVal, Stop: stopVal}, nil
}

func (d *instanceDecoder) decodePointerCollection(store *RuntimeStore) (any, error) {
	n, err := d.w.readArrayHeader()
	if err != nil {
		return nil, err
	}
	if err := d.limits.checkArrayLen(n); err != nil {
		return nil, err
	}

	result := make([]any, n)
	for i := 0; i < n; i++ {
		idx, err := d.w.readI32()
		if err != nil {
			return nil, err
		}
		val, err := d.targetAt(store, idx)
		if err != nil {
			return nil, err
		}
		result[i] = val
	}
	return result, nil
}
