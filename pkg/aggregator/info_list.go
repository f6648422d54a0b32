package aggregator

import (
	"go-aggr/pkg/customerrors"
	"go-aggr/pkg/format"

	"github.com/pkg/errors"
)

// InfoList is the ordered list of aggregates of a statement. Positions are
// stable: the n-th info produces the n-th aggregate output column.
type InfoList struct {
	items []*Info
}

func NewInfoList(infos ...*Info) *InfoList {
	l := &InfoList{items: make([]*Info, 0, len(infos))}
	for _, info := range infos {
		l.Add(info)
	}
	return l
}

// Add appends info and returns its position.
func (l *InfoList) Add(info *Info) int {
	l.items = append(l.items, info)
	return len(l.items) - 1
}

func (l *InfoList) Len() int {
	return len(l.items)
}

func (l *InfoList) Get(i int) *Info {
	return l.items[i]
}

// Iterator returns the infos in order. The slice is a copy.
func (l *InfoList) Iterator() []*Info {
	return append([]*Info(nil), l.items...)
}

// HasDistinct reports whether any aggregate needs its input deduplicated
// before accumulation.
func (l *InfoList) HasDistinct() bool {
	for _, info := range l.items {
		if info.Distinct {
			return true
		}
	}
	return false
}

func (l *InfoList) MarshalBinary() ([]byte, error) {
	w := format.NewWriter(FormatInfoList)
	w.PutInt32(int32(len(l.items)))
	for i, info := range l.items {
		w.PutUint16(uint16(FormatInfoV2))
		if err := info.write(w); err != nil {
			return nil, errors.Wrapf(err, "failed to encode aggregate #%d", i)
		}
	}
	return w.Bytes(), nil
}

// UnmarshalBinary replaces the list with the decoded one. The declared
// count must match the encoded infos exactly.
func (l *InfoList) UnmarshalBinary(data []byte) error {
	r := format.NewReader(data)
	r.Expect(FormatInfoList)
	count := r.Int32()
	if err := r.Err(); err != nil {
		return err
	}
	if count < 0 {
		return errors.Wrapf(customerrors.ErrDecode, "negative aggregate count %d", count)
	} else if int(count) > r.Remaining()/minInfoSize {
		return errors.Wrapf(customerrors.ErrDecode, "aggregate count %d exceeds %d remaining bytes", count, r.Remaining())
	}

	items := make([]*Info, count)
	for i := range items {
		items[i] = &Info{}
		items[i].read(r)
		if err := r.Err(); err != nil {
			return errors.Wrapf(err, "aggregate #%d of %d", i, count)
		}
	}
	if err := r.Done(); err != nil {
		return errors.Wrapf(err, "after %d aggregates", count)
	}

	l.items = items
	return nil
}
