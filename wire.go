package docrep

import (
	"bytes"
	"errors"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// wireCodec is the thin adapter over the MessagePack packing layer the
// spec's Wire Codec component (§4.1) describes. It is handed all of the
// source's unconsumed bytes up front (the current frame and any frames
// after it) and decodes forward through them with
// vmihailenco/msgpack/v5.
//
// *bytes.Reader implements io.ByteScanner, so msgpack.NewDecoder uses it
// directly instead of wrapping it in a bufio.Reader — that's what makes
// position() exact. This is the "codec that exposes its current byte
// offset directly" the spec's Design Notes prefer over triangulating
// mark/reset/available against a refillable buffer.
type wireCodec struct {
	buf []byte
	br  *bytes.Reader
	dec *msgpack.Decoder
}

func newWireCodec(buf []byte) *wireCodec {
	br := bytes.NewReader(buf)
	return &wireCodec{
		buf: buf,
		br:  br,
		dec: msgpack.NewDecoder(br),
	}
}

// position reports the number of bytes consumed from buf so far.
func (w *wireCodec) position() int {
	return len(w.buf) - w.br.Len()
}

// mark captures the current position for a later capture() call.
func (w *wireCodec) mark() int {
	return w.position()
}

// capture returns the exact bytes consumed between a prior mark() and
// now. Used to preserve READ_ONLY and lazy field values verbatim.
func (w *wireCodec) capture(from int) []byte {
	return w.buf[from:w.position()]
}

// atFrameStart reports whether no bytes have been consumed yet — the
// one position at which EOF is the normal "no more documents" signal
// rather than a truncated-frame error (spec §4.6, §7).
func (w *wireCodec) atFrameStart() bool {
	return w.position() == 0
}

func wireErr(err error, what string) *Error {
	if isEOF(err) || errors.Is(err, io.ErrUnexpectedEOF) {
		return wrapErr(KindWireFormat, err, "truncated frame: failed to read %s", what)
	}
	return wrapErr(KindWireFormat, err, "failed to read %s", what)
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}

// readVersionByte reads the frame's leading wire-version byte and
// returns the raw (unwrapped) error so the caller can distinguish a
// clean end-of-stream EOF (position 0) from a truncated-frame EOF
// anywhere else (spec §4.6, §7).
func (w *wireCodec) readVersionByte() (uint8, error) {
	return w.dec.DecodeUint8()
}

func (w *wireCodec) readU8() (uint8, error) {
	v, err := w.dec.DecodeUint8()
	if err != nil {
		return 0, wireErr(err, "u8")
	}
	return v, nil
}

func (w *wireCodec) readI32() (int32, error) {
	v, err := w.dec.DecodeInt32()
	if err != nil {
		return 0, wireErr(err, "i32")
	}
	return v, nil
}

func (w *wireCodec) readI64() (int64, error) {
	v, err := w.dec.DecodeInt64()
	if err != nil {
		return 0, wireErr(err, "i64")
	}
	return v, nil
}

func (w *wireCodec) readString() (string, error) {
	v, err := w.dec.DecodeString()
	if err != nil {
		return "", wireErr(err, "string")
	}
	return v, nil
}

func (w *wireCodec) readNil() error {
	if err := w.dec.DecodeNil(); err != nil {
		return wireErr(err, "nil")
	}
	return nil
}

func (w *wireCodec) readArrayHeader() (int, error) {
	n, err := w.dec.DecodeArrayLen()
	if err != nil {
		return 0, wireErr(err, "array header")
	}
	return n, nil
}

func (w *wireCodec) readMapHeader() (int, error) {
	n, err := w.dec.DecodeMapLen()
	if err != nil {
		return 0, wireErr(err, "map header")
	}
	return n, nil
}

// readBool, readIntGeneric and readUintGeneric back the primitive field
// reader (spec §4.5's numeric-conversion table), which — like the wire
// codec's own binary-packing layer — is specified only through its
// contract (spec §1): MessagePack self-describes each integer's wire
// width, so the natural reader decodes at whatever width the encoder
// chose and narrows to the field's declared width, rather than
// requiring the Wire Codec's four fixed-width primitives to cover
// every declared Go type.
func (w *wireCodec) readBool() (bool, error) {
	v, err := w.dec.DecodeBool()
	if err != nil {
		return false, wireErr(err, "bool")
	}
	return v, nil
}

func (w *wireCodec) readIntGeneric() (int64, error) {
	v, err := w.dec.DecodeInt64()
	if err != nil {
		return 0, wireErr(err, "int")
	}
	return v, nil
}

func (w *wireCodec) readUintGeneric() (uint64, error) {
	v, err := w.dec.DecodeUint64()
	if err != nil {
		return 0, wireErr(err, "uint")
	}
	return v, nil
}

// readRaw consumes exactly n bytes without interpreting them, used for
// the short circuits in spec §4.4 (a static document with no fields,
// and a lazy store) where an entire instance or instances_group is
// preserved verbatim.
func (w *wireCodec) readRaw(n int64) ([]byte, error) {
	if n < 0 || int64(w.position())+n > int64(len(w.buf)) {
		return nil, newErr(KindBounds, "raw read of %d bytes at position %d exceeds frame length %d", n, w.position(), len(w.buf))
	}
	from := w.mark()
	if _, err := w.br.Seek(n, io.SeekCurrent); err != nil {
		return nil, wireErr(err, "raw bytes")
	}
	return w.capture(from), nil
}

// readOpaqueValue consumes exactly one packed value of whatever kind is
// next and returns the raw bytes it occupied, without interpreting it.
// Used for lazy fields (no static counterpart) and for READ_ONLY
// preservation.
func (w *wireCodec) readOpaqueValue() ([]byte, error) {
	from := w.mark()
	if err := w.dec.Skip(); err != nil {
		return nil, wireErr(err, "opaque value")
	}
	return w.capture(from), nil
}
