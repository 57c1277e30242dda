package testutil

import (
	"context"
	"sync"
)

// ScriptedConfirmer answers every prompt with a fixed reply and records prompts.
type ScriptedConfirmer struct {
	mu      sync.Mutex
	Answer  bool
	Err     error
	Prompts []string
}

// Yes returns a confirmer that always agrees.
func Yes() *ScriptedConfirmer { return &ScriptedConfirmer{Answer: true} }

// No returns a confirmer that always declines.
func No() *ScriptedConfirmer { return &ScriptedConfirmer{Answer: false} }

func (c *ScriptedConfirmer) Confirm(_ context.Context, prompt string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Prompts = append(c.Prompts, prompt)
	return c.Answer, c.Err
}

// RecordingDeleter records the asset IDs it was asked to delete.
type RecordingDeleter struct {
	mu      sync.Mutex
	Err     error
	Deleted []string
}

func (d *RecordingDeleter) DeleteAsset(_ context.Context, assetID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return d.Err
	}
	d.Deleted = append(d.Deleted, assetID)
	return nil
}

// Calls returns a copy of the deleted IDs.
func (d *RecordingDeleter) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.Deleted...)
}
