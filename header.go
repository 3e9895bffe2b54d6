package docrep

// headerDecoder parses the document frame's prefix — classes block,
// stores block, pointer back-fill — into a RuntimeSchema (spec §4.3).
type headerDecoder struct {
	w            *wireCodec
	limits       DecodeLimits
	doc          StaticDocument
	staticByName map[string]staticClass
}

func newHeaderDecoder(w *wireCodec, limits DecodeLimits, doc StaticDocument) *headerDecoder {
	byName := make(map[string]staticClass)
	byName[metaSerialName] = documentAsClass{doc: doc}
	for _, c := range doc.Schemas() {
		byName[c.SerialName()] = c
	}
	return &headerDecoder{w: w, limits: limits, doc: doc, staticByName: byName}
}

type pendingPointer struct {
	field   *RuntimeField
	storeID int32
}

// decode runs the full header pass: classes, stores, pointer back-fill.
// It returns the reconciled schema and the fresh document value the
// caller's StaticDocument.NewDocument produced, which stores are
// already attached to by the time decode returns.
func (h *headerDecoder) decode() (*RuntimeSchema, any, error) {
	schemaStart := h.w.position()

	classes, pending, err := h.decodeClasses()
	if err != nil {
		return nil, nil, err
	}

	schema := &RuntimeSchema{Classes: classes}

	var meta *RuntimeClass
	for _, c := range classes {
		if c.StreamName == metaSerialName {
			meta = c
			break
		}
	}
	if meta == nil {
		return nil, nil, newErr(KindMissingMeta, "stream declared no %q class", metaSerialName)
	}
	schema.MetaClass = meta

	docValue := h.doc.NewDocument()

	stores, err := h.decodeStores(schema, docValue)
	if err != nil {
		return nil, nil, err
	}
	schema.Stores = stores

	if err := h.limits.checkSchemaBytes(h.w.position() - schemaStart); err != nil {
		return nil, nil, err
	}

	if err := h.backfillPointers(schema, pending); err != nil {
		return nil, nil, err
	}

	return schema, docValue, nil
}

// decodeClasses parses <klasses> ::= array_of <klass> and reconciles
// each class and field against the static registry (spec §4.3 steps
// 1-4).
func (h *headerDecoder) decodeClasses() ([]*RuntimeClass, []pendingPointer, error) {
	n, err := h.w.readArrayHeader()
	if err != nil {
		return nil, nil, err
	}
	if err := h.limits.checkArrayLen(n); err != nil {
		return nil, nil, err
	}

	classes := make([]*RuntimeClass, 0, n)
	var pending []pendingPointer

	for klassID := 0; klassID < n; klassID++ {
		tupleLen, err := h.w.readArrayHeader()
		if err != nil {
			return nil, nil, err
		}
		if tupleLen != 2 {
			return nil, nil, newErr(KindWireFormat, "klass tuple has arity %d, want 2", tupleLen)
		}

		name, err := h.w.readString()
		if err != nil {
			return nil, nil, err
		}

		static, isStatic := h.staticByName[name]

		rc := &RuntimeClass{
			KlassID:    klassID,
			StreamName: name,
			Lazy:       !isStatic,
		}
		if isStatic {
			rc.Static = static
		}

		fieldCount, err := h.w.readArrayHeader()
		if err != nil {
			return nil, nil, err
		}
		if err := h.limits.checkArrayLen(fieldCount); err != nil {
			return nil, nil, err
		}

		rc.Fields = make([]*RuntimeField, 0, fieldCount)
		for fieldID := 0; fieldID < fieldCount; fieldID++ {
			rf, storeID, hasPointer, err := h.decodeFieldAttrs(int32(fieldID))
			if err != nil {
				return nil, nil, err
			}

			if rc.Lazy {
				rf.Lazy = true
			} else if sf := findStaticField(rc.Static, rf.StreamName); sf != nil {
				if err := bindField(rf, sf, hasPointer); err != nil {
					return nil, nil, err
				}
			} else {
				rf.Lazy = true
			}

			if hasPointer {
				pending = append(pending, pendingPointer{field: rf, storeID: storeID})
			}

			rc.Fields = append(rc.Fields, rf)
		}

		classes = append(classes, rc)
	}

	return classes, pending, nil
}

// decodeFieldAttrs parses one <field> ::= map of <key:u8 -> value> entry
// (spec §4.3) into a partially-built RuntimeField, plus the raw
// pointer-target store id and whether key 1 (POINTER_TO) was present.
func (h *headerDecoder) decodeFieldAttrs(fieldID int32) (*RuntimeField, int32, bool, error) {
	nkeys, err := h.w.readMapHeader()
	if err != nil {
		return nil, 0, false, err
	}

	rf := &RuntimeField{FieldID: fieldID}
	var storeID int32
	var hasPointer bool
	var hasName bool

	for i := 0; i < nkeys; i++ {
		key, err := h.w.readU8()
		if err != nil {
			return nil, 0, false, err
		}

		switch wireKey(key) {
		case wireKeyName:
			name, err := h.w.readString()
			if err != nil {
				return nil, 0, false, err
			}
			rf.StreamName = name
			hasName = true

		case wireKeyPointerTo:
			id, err := h.w.readI32()
			if err != nil {
				return nil, 0, false, err
			}
			storeID = id
			hasPointer = true
			rf.IsPointer = true

		case wireKeyIsSlice:
			if err := h.w.readNil(); err != nil {
				return nil, 0, false, err
			}
			rf.IsSlice = true

		case wireKeyIsSelfPointer:
			if err := h.w.readNil(); err != nil {
				return nil, 0, false, err
			}
			rf.IsSelfPointer = true

		case wireKeyIsCollection:
			if err := h.w.readNil(); err != nil {
				return nil, 0, false, err
			}
			rf.IsCollection = true

		default:
			return nil, 0, false, newErr(KindWireFormat, "unexpected field map key %d", key)
		}
	}

	if !hasName {
		return nil, 0, false, newErr(KindWireFormat, "field entry missing NAME key")
	}

	return rf, storeID, hasPointer, nil
}

func findStaticField(sc staticClass, serialName string) StaticField {
	for _, f := range sc.Fields() {
		if f.SerialName() == serialName {
			return f
		}
	}
	return nil
}

// bindField binds a runtime field to its static counterpart, enforcing
// the four structural flags match exactly (spec §3 invariants, §4.3
// step 3, and Open Question #1: a static field declaring itself a
// pointer with no wire POINTER_TO key is a mismatch, not silently
// accepted).
func bindField(rf *RuntimeField, sf StaticField, hasPointer bool) error {
	staticIsPointer := sf.Kind().isPointerLike()

	switch {
	case staticIsPointer != hasPointer:
		return newErr(KindSchemaMismatch, "field %q: static is-pointer=%v, stream is-pointer=%v", rf.StreamName, staticIsPointer, hasPointer)
	case sf.IsSlice() != rf.IsSlice:
		return newErr(KindSchemaMismatch, "field %q: static is-slice=%v, stream is-slice=%v", rf.StreamName, sf.IsSlice(), rf.IsSlice)
	case sf.IsSelfPointer() != rf.IsSelfPointer:
		return newErr(KindSchemaMismatch, "field %q: static is-self-pointer=%v, stream is-self-pointer=%v", rf.StreamName, sf.IsSelfPointer(), rf.IsSelfPointer)
	case sf.IsCollection() != rf.IsCollection:
		return newErr(KindSchemaMismatch, "field %q: static is-collection=%v, stream is-collection=%v", rf.StreamName, sf.IsCollection(), rf.IsCollection)
	}

	rf.Static = sf
	rf.Lazy = false
	return nil
}

// decodeStores parses <stores> ::= array_of tuple3(name, klass_id,
// nelem) and reconciles each against the static registry (spec §4.3
// "Stores pass").
func (h *headerDecoder) decodeStores(schema *RuntimeSchema, docValue any) ([]*RuntimeStore, error) {
	n, err := h.w.readArrayHeader()
	if err != nil {
		return nil, err
	}
	if err := h.limits.checkArrayLen(n); err != nil {
		return nil, err
	}

	staticStores := make(map[string]StaticStore)
	for _, s := range h.doc.Stores() {
		staticStores[s.SerialName()] = s
	}

	stores := make([]*RuntimeStore, 0, n)
	for storeID := 0; storeID < n; storeID++ {
		tupleLen, err := h.w.readArrayHeader()
		if err != nil {
			return nil, err
		}
		if tupleLen != 3 {
			return nil, newErr(KindWireFormat, "store tuple has arity %d, want 3", tupleLen)
		}

		name, err := h.w.readString()
		if err != nil {
			return nil, err
		}
		klassID, err := h.w.readI32()
		if err != nil {
			return nil, err
		}
		nelem64, err := h.w.readI64()
		if err != nil {
			return nil, err
		}
		if nelem64 < 0 || nelem64 > int64(^uint(0)>>1) {
			return nil, newErr(KindBounds, "store %q nelem %d out of range", name, nelem64)
		}
		nelem := int(nelem64)
		if err := h.limits.checkArrayLen(nelem); err != nil {
			return nil, err
		}

		class, err := schema.classByID(klassID)
		if err != nil {
			return nil, err
		}

		rs := &RuntimeStore{
			StoreID:      storeID,
			StreamName:   name,
			KlassID:      klassID,
			NElem:        nelem,
			RuntimeClass: class,
		}

		static, ok := staticStores[name]
		if !ok {
			rs.Lazy = true
			stores = append(stores, rs)
			continue
		}

		if class.Lazy || class.Static == nil {
			return nil, newErr(KindSchemaMismatch, "store %q is declared statically but its class %q is not", name, class.StreamName)
		}
		if class.Static.SerialName() != static.StoredClass() {
			return nil, newErr(KindSchemaMismatch, "store %q expects class %q, stream class is %q", name, static.StoredClass(), class.Static.SerialName())
		}

		static.Resize(nelem, docValue)
		rs.Static = static
		stores = append(stores, rs)
	}

	return stores, nil
}

// backfillPointers binds every recorded pointer field to its target
// store (spec §4.3 "Pointer back-fill").
func (h *headerDecoder) backfillPointers(schema *RuntimeSchema, pending []pendingPointer) error {
	for _, p := range pending {
		store, err := schema.storeByID(p.storeID)
		if err != nil {
			return err
		}

		if !p.field.Lazy && p.field.Static != nil {
			if store.Lazy || store.Static == nil || store.Static.StoredClass() != p.field.Static.PointedToClass() {
				return newErr(KindSchemaMismatch, "pointer field %q targets store %q, whose class does not match declared pointed-to class %q",
					p.field.StreamName, store.StreamName, p.field.Static.PointedToClass())
			}
		}

		p.field.TargetStore = store
	}
	return nil
}
