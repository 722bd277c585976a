package training

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/stylemetric/sizefit/config"
	"github.com/stylemetric/sizefit/core/model"
	"github.com/stylemetric/sizefit/pkg/errors"
	"github.com/stylemetric/sizefit/preprocessing"
)

// SaveArtifacts writes one trained model's bundle into dir:
// {name}.gob (estimator), {name}_preprocessor.gob (fitted preprocessing
// state) and {name}_metrics.json (evaluation record).
func SaveArtifacts(dir string, result *Result, state *preprocessing.FittedState) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.Wrap(err, "sizefit: create models directory")
	}

	if err := model.SaveModel(result.Estimator, filepath.Join(dir, result.Name+".gob")); err != nil {
		return errors.Wrap(err, "sizefit: save estimator")
	}
	if err := preprocessing.SaveState(state, filepath.Join(dir, result.Name+"_preprocessor.gob")); err != nil {
		return errors.Wrap(err, "sizefit: save preprocessor state")
	}

	record := struct {
		Name    string                 `json:"model_name"`
		Params  map[string]interface{} `json:"params,omitempty"`
		Classes []string               `json:"classes,omitempty"`
		Record
	}{
		Name:    result.Name,
		Params:  result.Params,
		Classes: result.Classes,
		Record:  result.Metrics,
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return errors.Wrap(err, "sizefit: encode metrics record")
	}
	if err := os.WriteFile(filepath.Join(dir, result.Name+"_metrics.json"), data, 0o600); err != nil {
		return errors.Wrap(err, "sizefit: write metrics record")
	}
	return nil
}

// Bundle is one loaded model artifact set, ready for inference.
type Bundle struct {
	Name         string
	Algorithm    Algorithm
	TaskType     TaskType
	Estimator    model.Estimator
	Preprocessor *preprocessing.Preprocessor
}

// LoadArtifacts restores the named bundle from dir. The model name encodes
// the (algorithm, task) pair, so the matching estimator type is rebuilt from
// cfg before decoding into it.
func LoadArtifacts(dir, name string, cfg config.Config) (*Bundle, error) {
	alg, task, err := parseModelName(name)
	if err != nil {
		return nil, err
	}

	est, err := NewEstimator(alg, task, cfg)
	if err != nil {
		return nil, err
	}
	if err := model.LoadModel(est, filepath.Join(dir, name+".gob")); err != nil {
		return nil, errors.Wrap(err, "sizefit: load estimator")
	}
	// A persisted artifact is fitted by construction.
	if f, ok := est.(interface{ SetFitted() }); ok {
		f.SetFitted()
	}

	state, err := preprocessing.LoadState(filepath.Join(dir, name+"_preprocessor.gob"))
	if err != nil {
		return nil, errors.Wrap(err, "sizefit: load preprocessor state")
	}

	return &Bundle{
		Name:         name,
		Algorithm:    alg,
		TaskType:     task,
		Estimator:    est,
		Preprocessor: preprocessing.FromState(state),
	}, nil
}

// parseModelName splits "{algorithm}_{task_type}" back into its parts.
func parseModelName(name string) (Algorithm, TaskType, error) {
	for _, task := range []TaskType{Classification, Regression} {
		if alg, ok := strings.CutSuffix(name, "_"+string(task)); ok {
			parsed, err := ParseAlgorithm(alg)
			if err != nil {
				return "", "", err
			}
			return parsed, task, nil
		}
	}
	return "", "", errors.NewValueError("training.parseModelName",
		"model name "+name+` does not end in "_classification" or "_regression"`)
}
