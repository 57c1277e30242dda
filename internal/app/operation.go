package app

import (
	"encoding/json"

	"catalog-admin/internal/admin"
	"catalog-admin/internal/database"
)

// Operation tracks a CLI command that may mutate the backing store.
// Operations are created in memory with ID=0. Only mutating commands
// persist them (giving them an auto-increment ID from the history).
type Operation struct {
	ID         int64
	Name       string
	Parameters string
	Status     string // "success" or "failed"
	Message    string
}

// NewOperation creates a new in-memory operation.
func NewOperation(name string) *Operation {
	return &Operation{
		Name:   name,
		Status: database.StatusSuccess,
	}
}

// Persisted returns true if this operation has been saved to the history.
func (op *Operation) Persisted() bool {
	return op.ID != 0
}

// Fail marks the operation failed with the operator-facing message for err.
func (op *Operation) Fail(err error) {
	op.Status = database.StatusFailed
	op.Message = admin.UserMessage(err)
}

// encodeParams renders command parameters for the history. Values that
// cannot be encoded are dropped rather than failing the command.
func encodeParams(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	data, err := json.Marshal(params)
	if err != nil {
		return ""
	}
	return string(data)
}
