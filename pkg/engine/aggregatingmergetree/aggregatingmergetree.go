// Package aggregatingmergetree persists partial aggregate states. Every
// insert writes a new immutable part under the state key; reads merge all
// parts of the key, and Merge folds them into a single part. Compiled
// aggregate lists (plans) are stored next to the states.
//
// On-disk layout:
//
//	<DataPath>/states/<key>/<uuid>.part
//	<DataPath>/plans/<name>.plan
//
// Both file kinds start with a metadata header followed by the compressed
// payload.
package aggregatingmergetree

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go-aggr/pkg/compression"
	"go-aggr/pkg/customerrors"
	"go-aggr/util/helpers"
	"go-aggr/util/logger"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	partExt = ".part"
	planExt = ".plan"
)

type AggregatingMergeTree struct {
	path string
	algo compression.Algorithm
	log  *logrus.Entry

	mu *sync.RWMutex
}

func Open(opts *Options) (*AggregatingMergeTree, error) {
	if opts.DataPath == "" {
		return nil, errors.New("data path is required")
	}

	algo, err := compression.ByName(opts.Compression)
	if err != nil {
		return nil, err
	}

	tree := &AggregatingMergeTree{
		path: opts.DataPath,
		algo: algo,
		log:  logger.Component("store"),
		mu:   &sync.RWMutex{},
	}
	for _, dir := range []string{tree.statesPath(), tree.plansPath()} {
		if err := helpers.CreateDir(dir); err != nil {
			return nil, errors.Wrapf(err, "failed to create '%s'", dir)
		}
	}
	return tree, nil
}

func (t *AggregatingMergeTree) statesPath() string {
	return filepath.Join(t.path, "states")
}

func (t *AggregatingMergeTree) plansPath() string {
	return filepath.Join(t.path, "plans")
}

func (t *AggregatingMergeTree) keyPath(key string) (string, error) {
	if err := validateName(key); err != nil {
		return "", err
	}
	return filepath.Join(t.statesPath(), key), nil
}

// validateName rejects names that would escape their directory.
func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return errors.Errorf("invalid key '%s'", name)
	}
	return nil
}

func (t *AggregatingMergeTree) writeFile(path string, content uint8, payload []byte) error {
	header, err := newMetadata(content, t.algo).MarshalBinary()
	if err != nil {
		return err
	}
	compressed, err := t.algo.Compress(payload)
	if err != nil {
		return errors.Wrapf(err, "failed to compress with %s", t.algo.Name())
	}

	// write aside and rename, readers never see a half written file
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(header, compressed...), 0644); err != nil {
		return errors.Wrap(err, "failed to write file")
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "failed to rename file")
	}
	return nil
}

func (t *AggregatingMergeTree) readFile(path string, content uint8) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	meta := &metadata{}
	if err := meta.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	if err := meta.verify(content); err != nil {
		return nil, err
	}

	algo, err := compression.ByID(meta.compression)
	if err != nil {
		return nil, errors.Wrap(customerrors.ErrDecode, err.Error())
	}
	payload, err := algo.Decompress(data[metadataSize:])
	if err != nil {
		return nil, errors.Wrapf(customerrors.ErrDecode, "failed to decompress with %s: %v", algo.Name(), err)
	}
	return payload, nil
}
