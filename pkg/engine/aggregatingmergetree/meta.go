package aggregatingmergetree

import (
	"encoding/binary"
	"fmt"

	"go-aggr/pkg/compression"
	"go-aggr/pkg/customerrors"

	"github.com/pkg/errors"
)

var bin = binary.BigEndian

const (
	magic        = 0xA66
	version      = uint8(0x1)
	metadataSize = 6
	contentState = uint8(0x1)
	contentPlan  = uint8(0x2)
)

// metadata is the fixed header in front of every part and plan file.
type metadata struct {
	magic       uint16         // magic marker to identify store files
	version     uint8          // version of the file layout
	content     uint8          // contentState or contentPlan
	compression compression.ID // algorithm of the payload
	flags       uint8          // flags (unused)
}

func newMetadata(content uint8, algo compression.Algorithm) metadata {
	return metadata{
		magic:       magic,
		version:     version,
		content:     content,
		compression: algo.ID(),
	}
}

func (m metadata) MarshalBinary() ([]byte, error) {
	buf := make([]byte, metadataSize)
	bin.PutUint16(buf[0:2], m.magic)
	buf[2] = m.version
	buf[3] = m.content
	buf[4] = uint8(m.compression)
	buf[5] = m.flags
	return buf, nil
}

func (m *metadata) UnmarshalBinary(d []byte) error {
	if len(d) < metadataSize {
		return errors.Wrap(customerrors.ErrDecode, "in-sufficient data for unmarshal")
	} else if m == nil {
		return errors.New("cannot unmarshal into nil")
	}

	m.magic = bin.Uint16(d[0:2])
	m.version = d[2]
	m.content = d[3]
	m.compression = compression.ID(d[4])
	m.flags = d[5]
	return nil
}

func (m *metadata) verify(content uint8) error {
	if m.magic != magic {
		return errors.Wrapf(customerrors.ErrDecode, "bad magic %#x", m.magic)
	} else if m.version != version {
		return errors.Wrap(customerrors.ErrDecode, fmt.Sprintf("incompatible version %#x (expected: %#x)", m.version, version))
	} else if m.content != content {
		return errors.Wrapf(customerrors.ErrDecode, "unexpected content %#x (expected: %#x)", m.content, content)
	}
	return nil
}
