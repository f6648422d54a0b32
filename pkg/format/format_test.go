package format

import (
	"math"
	"testing"

	"go-aggr/pkg/customerrors"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const testID ID = 0x7701

func TestWriterReader(t *testing.T) {
	w := NewWriter(testID)
	w.PutBool(true)
	w.PutUint8(0xAB)
	w.PutUint16(0xBEEF)
	w.PutUint32(1 << 31)
	w.PutInt32(-5)
	w.PutUint64(math.MaxUint64)
	w.PutFloat64(-0.25)
	w.PutString("hello")
	w.PutBytes(nil)
	w.PutRaw([]byte{1, 2, 3})

	data := w.Bytes()
	require.Equal(t, []byte{0x77, 0x01, 1, 0xAB, 0xBE, 0xEF}, data[:6])

	id, err := Peek(data)
	require.NoError(t, err)
	require.Equal(t, testID, id)

	r := NewReader(data)
	require.Equal(t, testID, r.Expect(0x1, testID))
	require.True(t, r.Bool())
	require.Equal(t, uint8(0xAB), r.Uint8())
	require.Equal(t, uint16(0xBEEF), r.Uint16())
	require.Equal(t, uint32(1<<31), r.Uint32())
	require.Equal(t, int32(-5), r.Int32())
	require.Equal(t, uint64(math.MaxUint64), r.Uint64())
	require.Equal(t, -0.25, r.Float64())
	require.Equal(t, "hello", r.Text())
	require.Empty(t, r.Bytes())
	require.Equal(t, 3, r.Remaining())
	require.Equal(t, []byte{1, 2, 3}, r.Rest())
	require.NoError(t, r.Done())
}

func TestReaderUnexpectedTag(t *testing.T) {
	r := NewReader(NewWriter(testID).Bytes())
	require.Equal(t, ID(0), r.Expect(0x7702))
	require.True(t, errors.Is(r.Err(), customerrors.ErrDecode))
}

func TestReaderStickyError(t *testing.T) {
	w := NewWriter(testID)
	w.PutUint16(7)

	r := NewReader(w.Bytes())
	r.Expect(testID)
	require.Equal(t, uint32(0), r.Uint32())
	first := r.Err()
	require.True(t, errors.Is(first, customerrors.ErrDecode))

	// later reads neither consume nor replace the first error
	require.Equal(t, uint8(0), r.Uint8())
	require.Nil(t, r.Rest())
	r.Fail(errors.New("other"))
	require.Equal(t, first, r.Err())
	require.Equal(t, first, r.Done())
}

func TestReaderErrors(t *testing.T) {
	_, err := Peek([]byte{1})
	require.True(t, errors.Is(err, customerrors.ErrDecode))

	r := NewReader([]byte{2})
	r.Bool()
	require.True(t, errors.Is(r.Err(), customerrors.ErrDecode))

	// declared length beyond the data
	r = NewReader([]byte{0, 0, 0, 9, 'a'})
	require.Nil(t, r.Bytes())
	require.True(t, errors.Is(r.Err(), customerrors.ErrDecode))

	r = NewReader([]byte{0, 1, 2})
	r.Uint16()
	require.NoError(t, r.Err())
	require.True(t, errors.Is(r.Done(), customerrors.ErrDecode))
}
