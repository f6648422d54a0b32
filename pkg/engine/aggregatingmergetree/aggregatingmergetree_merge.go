package aggregatingmergetree

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go-aggr/pkg/aggregator"
	"go-aggr/pkg/customerrors"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Load returns the merge of every part stored under key, or ErrNotFound.
func (t *AggregatingMergeTree) Load(key string) ([]aggregator.DatumAggregator, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	aggs, _, err := t.load(key)
	return aggs, err
}

// Merge folds all parts of key into one and returns how many parts were
// folded. Keys with a single part are left alone. The new part lists the
// parts it replaces, so any of them that survive a failed removal are
// ignored by later reads.
func (t *AggregatingMergeTree) Merge(key string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	aggs, parts, err := t.load(key)
	if err != nil {
		return 0, err
	} else if len(parts) < 2 {
		return 0, nil
	}

	folded := make([]string, len(parts))
	for i, part := range parts {
		folded[i] = partName(part)
	}
	payload, err := encodeState(aggs, folded...)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to encode merged state of '%s'", key)
	}

	dir, _ := t.keyPath(key)
	name := uuid.NewString()
	if err := t.writeFile(filepath.Join(dir, name+partExt), contentState, payload); err != nil {
		return 0, errors.Wrapf(err, "failed to write merged part '%s'", name)
	}
	for _, part := range parts {
		if err := os.Remove(part); err != nil {
			return 0, errors.Wrapf(err, "failed to remove merged part '%s'", part)
		}
	}

	t.log.WithField("key", key).Debugf("merged %d parts into %s", len(parts), name)
	return len(parts), nil
}

// Drop removes every part of key.
func (t *AggregatingMergeTree) Drop(key string) error {
	dir, err := t.keyPath(key)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return os.RemoveAll(dir)
}

// load merges the live parts of key. The returned paths include parts
// already folded into another one.
func (t *AggregatingMergeTree) load(key string) ([]aggregator.DatumAggregator, []string, error) {
	parts, err := t.parts(key)
	if err != nil {
		return nil, nil, err
	} else if len(parts) == 0 {
		return nil, nil, errors.Wrapf(customerrors.ErrNotFound, "state '%s'", key)
	}

	states := make([]*state, len(parts))
	folded := map[string]struct{}{}
	for i, part := range parts {
		if states[i], err = t.readPart(part); err != nil {
			return nil, nil, err
		}
		for _, name := range states[i].folded {
			folded[name] = struct{}{}
		}
	}

	var result []aggregator.DatumAggregator
	for i, part := range parts {
		if _, ok := folded[partName(part)]; ok {
			continue
		}
		if result == nil {
			result = states[i].aggs
		} else if err := mergeStates(result, states[i].aggs); err != nil {
			return nil, nil, errors.Wrapf(err, "part '%s'", filepath.Base(part))
		}
	}
	if result == nil {
		return nil, nil, errors.Wrapf(customerrors.ErrDecode, "state '%s' has no live part", key)
	}
	return result, parts, nil
}

func (t *AggregatingMergeTree) readPart(path string) (*state, error) {
	payload, err := t.readFile(path, contentState)
	if err != nil {
		return nil, errors.Wrapf(err, "part '%s'", filepath.Base(path))
	}
	st, err := decodeState(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "part '%s'", filepath.Base(path))
	}
	return st, nil
}

func partName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), partExt)
}

// parts lists the part files of key in a stable order.
func (t *AggregatingMergeTree) parts(key string) ([]string, error) {
	dir, err := t.keyPath(key)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "failed to list parts of '%s'", key)
	}

	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), partExt) {
			parts = append(parts, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(parts)
	return parts, nil
}
