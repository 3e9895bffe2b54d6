package docrep

// Reader provides sequential access to a stream of docrep frames,
// decoding one Document per ReadNext call (spec §4.6). Frames are read
// from a ByteSource, which may hold several frames back to back; each
// ReadNext call decodes the frame at the source's cursor and advances
// the cursor past it. Reader does not itself perform I/O.
type Reader struct {
	doc    StaticDocument
	limits DecodeLimits
}

// NewReader builds a Reader against a caller-declared document schema,
// using DefaultLimits.
func NewReader(doc StaticDocument) *Reader {
	return &Reader{doc: doc, limits: DefaultLimits}
}

// NewReaderWithLimits is NewReader with caller-supplied DecodeLimits,
// for callers that need to raise or tighten the defaults (spec §4.6's
// guard rails against hostile or truncated input).
func NewReaderWithLimits(doc StaticDocument, limits DecodeLimits) *Reader {
	return &Reader{doc: doc, limits: limits}
}

// ReadNext decodes one complete frame from src: wire-version byte,
// classes block, stores block, pointer back-fill, document instance,
// then one instances_group per declared store, in declared order
// (spec §4.6's INIT → DONE state machine). On success, src's cursor
// advances past exactly the bytes this frame consumed, leaving it
// positioned at the next frame (if any).
//
// Returns ErrEndOfStream, unwrapped, when src has no bytes left — the
// one point at which EOF means "no more documents" rather than
// "truncated frame" (spec §4.6, §7).
func (r *Reader) ReadNext(src *ByteSource) (*Document, error) {
	if src.Available() == 0 {
		return nil, ErrEndOfStream
	}

	w := newWireCodec(src.remaining())

	version, err := w.readVersionByte()
	if err != nil {
		if isEOF(err) && w.atFrameStart() {
			return nil, ErrEndOfStream
		}
		return nil, wireErr(err, "wire version byte")
	}
	if version != wireVersion {
		return nil, newErr(KindWireFormat, "unsupported wire version %d, want %d", version, wireVersion)
	}

	hdr := newHeaderDecoder(w, r.limits, r.doc)
	schema, docValue, err := hdr.decode()
	if err != nil {
		return nil, err
	}

	doc := &Document{Value: docValue, Schema: schema}

	inst := newInstanceDecoder(w, r.limits, schema)
	docHasStaticFields := len(r.doc.Fields()) > 0
	if err := inst.decodeDocument(doc, docValue, docHasStaticFields); err != nil {
		return nil, err
	}

	for _, rs := range schema.Stores {
		store, err := inst.decodeStoreGroup(rs)
		if err != nil {
			return nil, err
		}
		rs.Materialized = store
	}

	src.advance(w.position())
	return doc, nil
}
