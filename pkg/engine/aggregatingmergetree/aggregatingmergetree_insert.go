package aggregatingmergetree

import (
	"path/filepath"

	"go-aggr/pkg/aggregator"
	"go-aggr/util/helpers"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Insert stores aggs as a new part of key and returns the part name. The
// aggregators are only serialized, the caller keeps using them. A part whose
// aggregate kinds differ from the parts already stored under key is refused
// with ErrKindMismatch.
func (t *AggregatingMergeTree) Insert(key string, aggs []aggregator.DatumAggregator) (string, error) {
	dir, err := t.keyPath(key)
	if err != nil {
		return "", err
	}
	payload, err := encodeState(aggs)
	if err != nil {
		return "", errors.Wrapf(err, "failed to encode state of '%s'", key)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	parts, err := t.parts(key)
	if err != nil {
		return "", err
	} else if len(parts) > 0 {
		st, err := t.readPart(parts[0])
		if err != nil {
			return "", err
		}
		if err := sameKinds(st.aggs, aggs); err != nil {
			return "", errors.Wrapf(err, "state '%s'", key)
		}
	}

	if err := helpers.CreateDir(dir); err != nil {
		return "", errors.Wrapf(err, "failed to create '%s'", dir)
	}

	name := uuid.NewString()
	if err := t.writeFile(filepath.Join(dir, name+partExt), contentState, payload); err != nil {
		return "", errors.Wrapf(err, "failed to write part '%s'", name)
	}

	t.log.WithField("key", key).Debugf("inserted part %s (%d aggregates, %d bytes)", name, len(aggs), len(payload))
	return name, nil
}
