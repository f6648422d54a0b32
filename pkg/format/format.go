// Package format implements the byte-level building blocks of every
// persisted shape: a leading 16-bit format tag followed by fixed-order
// fields. Writers append, readers consume with a sticky error so a shape's
// UnmarshalBinary can read all fields and check the error once.
//
// Each shape owns its tag. A tag names one exact field layout: adding,
// removing or reordering a field requires a new tag, otherwise streams
// written by an older build are read with the wrong layout.
package format

import (
	"encoding/binary"
	"math"

	"go-aggr/pkg/customerrors"

	"github.com/pkg/errors"
)

var bin = binary.BigEndian

// ID is a format tag.
type ID uint16

type Writer struct {
	buf []byte
}

func NewWriter(id ID) *Writer {
	w := &Writer{buf: make([]byte, 0, 32)}
	w.PutUint16(uint16(id))
	return w
}

func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) PutBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *Writer) PutUint8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) PutUint16(v uint16) {
	w.buf = bin.AppendUint16(w.buf, v)
}

func (w *Writer) PutUint32(v uint32) {
	w.buf = bin.AppendUint32(w.buf, v)
}

func (w *Writer) PutInt32(v int32) {
	w.PutUint32(uint32(v))
}

func (w *Writer) PutUint64(v uint64) {
	w.buf = bin.AppendUint64(w.buf, v)
}

func (w *Writer) PutFloat64(v float64) {
	w.PutUint64(math.Float64bits(v))
}

// PutBytes writes a 32-bit length followed by b.
func (w *Writer) PutBytes(b []byte) {
	w.PutUint32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *Writer) PutString(s string) {
	w.PutBytes([]byte(s))
}

// PutRaw appends b without a length. Only valid for the last field of a
// shape, or for a nested encoding that delimits itself.
func (w *Writer) PutRaw(b []byte) {
	w.buf = append(w.buf, b...)
}

type Reader struct {
	data   []byte
	offset int
	err    error
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Expect reads the leading tag and fails unless it is one of ids.
func (r *Reader) Expect(ids ...ID) ID {
	id := ID(r.Uint16())
	if r.err != nil {
		return 0
	}
	for _, want := range ids {
		if id == want {
			return id
		}
	}
	r.Fail(errors.Wrapf(customerrors.ErrDecode, "unexpected format tag %#x (expected one of %#x)", uint16(id), ids))
	return 0
}

// Peek returns the tag at the start of data without consuming anything.
func Peek(data []byte) (ID, error) {
	if len(data) < 2 {
		return 0, errors.Wrap(customerrors.ErrDecode, "in-sufficient data for format tag")
	}
	return ID(bin.Uint16(data[:2])), nil
}

func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) Remaining() int {
	return len(r.data) - r.offset
}

// Done returns the sticky error, or an error if unread bytes remain.
func (r *Reader) Done() error {
	if r.err != nil {
		return r.err
	}
	if r.offset != len(r.data) {
		return errors.Wrapf(customerrors.ErrDecode, "%d trailing bytes", len(r.data)-r.offset)
	}
	return nil
}

func (r *Reader) Bool() bool {
	b := r.next(1)
	if b == nil {
		return false
	}
	switch b[0] {
	case 0:
		return false
	case 1:
		return true
	}
	r.Fail(errors.Wrapf(customerrors.ErrDecode, "invalid bool byte %#x", b[0]))
	return false
}

func (r *Reader) Uint8() uint8 {
	b := r.next(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) Uint16() uint16 {
	b := r.next(2)
	if b == nil {
		return 0
	}
	return bin.Uint16(b)
}

func (r *Reader) Uint32() uint32 {
	b := r.next(4)
	if b == nil {
		return 0
	}
	return bin.Uint32(b)
}

func (r *Reader) Int32() int32 {
	return int32(r.Uint32())
}

func (r *Reader) Uint64() uint64 {
	b := r.next(8)
	if b == nil {
		return 0
	}
	return bin.Uint64(b)
}

func (r *Reader) Float64() float64 {
	return math.Float64frombits(r.Uint64())
}

// Bytes reads a length-prefixed byte slice. The result aliases the input.
func (r *Reader) Bytes() []byte {
	n := r.Uint32()
	if r.err != nil {
		return nil
	}
	return r.next(int(n))
}

func (r *Reader) Text() string {
	return string(r.Bytes())
}

// Rest consumes and returns everything left.
func (r *Reader) Rest() []byte {
	if r.err != nil {
		return nil
	}
	b := r.data[r.offset:]
	r.offset = len(r.data)
	return b
}

func (r *Reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.offset+n > len(r.data) {
		r.Fail(errors.Wrapf(customerrors.ErrDecode, "truncated stream: need %d bytes at offset %d, have %d", n, r.offset, len(r.data)-r.offset))
		return nil
	}
	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b
}

// Fail records err unless an earlier error is already recorded. Nested
// decoders use it to report through the outer reader.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}
