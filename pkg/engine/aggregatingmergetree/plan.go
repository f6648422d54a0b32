package aggregatingmergetree

import (
	"os"
	"path/filepath"

	"go-aggr/pkg/aggregator"
	"go-aggr/pkg/customerrors"

	"github.com/pkg/errors"
)

func (t *AggregatingMergeTree) planPath(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	return filepath.Join(t.plansPath(), name+planExt), nil
}

// PutPlan stores the aggregate list of a compiled statement under name,
// replacing any previous plan.
func (t *AggregatingMergeTree) PutPlan(name string, infos *aggregator.InfoList) error {
	path, err := t.planPath(name)
	if err != nil {
		return err
	}
	payload, err := infos.MarshalBinary()
	if err != nil {
		return errors.Wrapf(err, "failed to encode plan '%s'", name)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writeFile(path, contentPlan, payload)
}

// LoadPlan returns the plan stored under name. A plan that no longer
// decodes, for example one written in a format this build does not read,
// is removed and ErrPlanInvalidated is returned so the caller recompiles.
func (t *AggregatingMergeTree) LoadPlan(name string) (*aggregator.InfoList, error) {
	path, err := t.planPath(name)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	payload, err := t.readFile(path, contentPlan)
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(customerrors.ErrNotFound, "plan '%s'", name)
	}

	infos := &aggregator.InfoList{}
	if err == nil {
		err = infos.UnmarshalBinary(payload)
	}
	if err == nil {
		return infos, nil
	} else if !errors.Is(err, customerrors.ErrDecode) {
		return nil, errors.Wrapf(err, "failed to read plan '%s'", name)
	}

	t.log.WithField("plan", name).WithError(err).Warn("dropping undecodable plan")
	if rmErr := os.Remove(path); rmErr != nil {
		return nil, errors.Wrapf(rmErr, "failed to remove plan '%s'", name)
	}
	return nil, errors.Wrapf(customerrors.ErrPlanInvalidated, "plan '%s': %v", name, err)
}
