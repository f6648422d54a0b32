package compression

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{},
		[]byte("x"),
		bytes.Repeat([]byte("aggregate state "), 256),
	}

	for _, name := range []string{"none", "snappy", "lz4", "zstd"} {
		algo, err := ByName(name)
		require.NoError(t, err)
		require.Equal(t, name, algo.Name())

		byID, err := ByID(algo.ID())
		require.NoError(t, err)
		require.Equal(t, algo, byID)

		for _, data := range payloads {
			compressed, err := algo.Compress(data)
			require.NoError(t, err, name)

			restored, err := algo.Decompress(compressed)
			require.NoError(t, err, name)
			require.Equal(t, len(data), len(restored), name)
			if len(data) > 0 {
				require.Equal(t, data, restored, name)
			}
		}
	}
}

func TestCompresses(t *testing.T) {
	data := bytes.Repeat([]byte{1, 2, 3, 4}, 4096)
	for _, id := range []ID{SNAPPY, LZ4, ZSTD} {
		algo, err := ByID(id)
		require.NoError(t, err)
		compressed, err := algo.Compress(data)
		require.NoError(t, err)
		require.Less(t, len(compressed), len(data), algo.Name())
	}
}

func TestUnknown(t *testing.T) {
	_, err := ByName("brotli")
	require.Error(t, err)
	_, err = ByID(200)
	require.Error(t, err)

	algo, err := ByName("")
	require.NoError(t, err)
	require.Equal(t, NONE, algo.ID())
}

func TestCorruptInput(t *testing.T) {
	for _, id := range []ID{SNAPPY, ZSTD} {
		algo, err := ByID(id)
		require.NoError(t, err)
		_, err = algo.Decompress([]byte{0xFF, 0xFE, 0xFD, 0xFC, 0xFB})
		require.Error(t, err, algo.Name())
	}
}
