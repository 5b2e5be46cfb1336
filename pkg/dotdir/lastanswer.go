package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	lastAnswerFile = "last_answer.json"
)

// LastAnswer is the most recent answer received by "askbase ask". It lets
// "askbase feedback" rate an answer without the user copying its id around.
type LastAnswer struct {
	QuestionID string    `json:"question_id"`
	Question   string    `json:"question"`
	Confidence float64   `json:"confidence"`
	AnsweredAt time.Time `json:"answered_at"`
}

// LoadLastAnswer loads .askbase/last_answer.json.
// Returns nil, nil if nothing has been asked yet.
func (m *Manager) LoadLastAnswer(overrideDir string) (*LastAnswer, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return nil, nil
	}

	data, err := os.ReadFile(filepath.Join(dir, lastAnswerFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading last answer: %w", err)
	}

	la := &LastAnswer{}
	if err := json.Unmarshal(data, la); err != nil {
		return nil, fmt.Errorf("parsing last answer: %w", err)
	}

	return la, nil
}

// SaveLastAnswer persists the answer to .askbase/last_answer.json.
// It is a no-op when no askbase directory can be resolved.
func (m *Manager) SaveLastAnswer(la *LastAnswer, overrideDir string) error {
	if la == nil {
		return errors.New("cannot save nil last answer")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}
	if dir == "" {
		return nil
	}

	data, err := json.MarshalIndent(la, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling last answer: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, lastAnswerFile), data, 0o600); err != nil {
		return fmt.Errorf("writing last answer: %w", err)
	}

	return nil
}

// ClearLastAnswer removes the last answer file. Missing files are not an error.
func (m *Manager) ClearLastAnswer(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}
	if dir == "" {
		return nil
	}

	if err := os.Remove(filepath.Join(dir, lastAnswerFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing last answer: %w", err)
	}

	return nil
}
