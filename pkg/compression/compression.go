// Package compression wraps the block codecs used for persisted aggregate
// state. Each algorithm has a stable one-byte id that is written next to
// the payload, so a reader never depends on configuration to pick the
// decoder.
package compression

import (
	"bytes"
	"io"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
)

type ID uint8

const (
	NONE   ID = 0
	SNAPPY ID = 1
	LZ4    ID = 2
	ZSTD   ID = 3
)

type Algorithm interface {
	ID() ID
	Name() string
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

var algorithms = map[ID]Algorithm{}

func register(a Algorithm) {
	algorithms[a.ID()] = a
}

func init() {
	register(noneAlgorithm{})
	register(snappyAlgorithm{})
	register(lz4Algorithm{})
	register(&zstdAlgorithm{})
}

// ByName returns the algorithm registered under name. An empty name means
// no compression.
func ByName(name string) (Algorithm, error) {
	if name == "" {
		return algorithms[NONE], nil
	}
	for _, a := range algorithms {
		if a.Name() == name {
			return a, nil
		}
	}
	return nil, errors.Errorf("unknown compression algorithm '%s'", name)
}

func ByID(id ID) (Algorithm, error) {
	a, ok := algorithms[id]
	if !ok {
		return nil, errors.Errorf("unknown compression id %d", id)
	}
	return a, nil
}

type noneAlgorithm struct{}

func (noneAlgorithm) ID() ID       { return NONE }
func (noneAlgorithm) Name() string { return "none" }

func (noneAlgorithm) Compress(data []byte) ([]byte, error) {
	return data, nil
}

func (noneAlgorithm) Decompress(data []byte) ([]byte, error) {
	return data, nil
}

type snappyAlgorithm struct{}

func (snappyAlgorithm) ID() ID       { return SNAPPY }
func (snappyAlgorithm) Name() string { return "snappy" }

func (snappyAlgorithm) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (snappyAlgorithm) Decompress(data []byte) ([]byte, error) {
	return snappy.Decode(nil, data)
}

type lz4Algorithm struct{}

func (lz4Algorithm) ID() ID       { return LZ4 }
func (lz4Algorithm) Name() string { return "lz4" }

func (lz4Algorithm) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := lz4.NewWriter(&buf)

	if _, err := writer.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (lz4Algorithm) Decompress(data []byte) ([]byte, error) {
	return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
}

// zstdAlgorithm shares one encoder and decoder; EncodeAll and DecodeAll
// are safe for concurrent use.
type zstdAlgorithm struct {
	once    sync.Once
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	err     error
}

func (a *zstdAlgorithm) ID() ID       { return ZSTD }
func (a *zstdAlgorithm) Name() string { return "zstd" }

func (a *zstdAlgorithm) init() error {
	a.once.Do(func() {
		if a.encoder, a.err = zstd.NewWriter(nil); a.err != nil {
			return
		}
		a.decoder, a.err = zstd.NewReader(nil)
	})
	return a.err
}

func (a *zstdAlgorithm) Compress(data []byte) ([]byte, error) {
	if err := a.init(); err != nil {
		return nil, err
	}
	return a.encoder.EncodeAll(data, nil), nil
}

func (a *zstdAlgorithm) Decompress(data []byte) ([]byte, error) {
	if err := a.init(); err != nil {
		return nil, err
	}
	return a.decoder.DecodeAll(data, nil)
}
