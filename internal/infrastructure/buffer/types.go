package buffer

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EntityAssignment = "assignment"

	OperationApply = "apply"

	// PriorityAssignment sorts assignment batches ahead of the default band.
	PriorityAssignment = 2
	defaultPriority    = 3
)

// Item is a write that should be retried when primary storage is unavailable.
// Data holds the whole payload; an assignment batch is never split.
type Item struct {
	ID        string          `json:"id"`
	RunID     string          `json:"run_id"`
	Entity    string          `json:"entity"`
	Operation string          `json:"operation"`
	Data      json.RawMessage `json:"data"`
	Priority  int             `json:"priority"`
	Retries   int             `json:"retries"`
	Timestamp time.Time       `json:"timestamp"`

	bucketKey []byte
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Priority <= 0 || i.Priority > 5 {
		i.Priority = defaultPriority
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now()
	}
}
