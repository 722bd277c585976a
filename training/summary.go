package training

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/stylemetric/sizefit/pkg/errors"
)

// Summary is the session-level report across every registered model.
type Summary struct {
	SessionID   string            `json:"session_id"`
	CreatedAt   time.Time         `json:"created_at"`
	TotalModels int               `json:"total_models"`
	BestModel   string            `json:"best_model,omitempty"`
	BestScore   float64           `json:"best_score,omitempty"`
	Models      map[string]Record `json:"models"`
}

// Summary reports the session's registered models and best score.
func (t *Trainer) Summary() *Summary {
	s := &Summary{
		SessionID:   t.sessionID,
		CreatedAt:   t.started,
		TotalModels: len(t.models),
		BestModel:   t.bestName,
		Models:      make(map[string]Record, len(t.models)),
	}
	if t.bestName != "" {
		s.BestScore = t.bestScore
	}
	for name, result := range t.models {
		s.Models[name] = result.Metrics
	}
	return s
}

// SaveSummary writes the session summary to
// dir/training_summary_<session>.json and returns the written path.
func (t *Trainer) SaveSummary(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", errors.Wrap(err, "sizefit: create summary directory")
	}

	data, err := json.MarshalIndent(t.Summary(), "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "sizefit: encode training summary")
	}

	path := filepath.Join(dir, "training_summary_"+t.sessionID+".json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", errors.Wrap(err, "sizefit: write training summary")
	}
	return path, nil
}
