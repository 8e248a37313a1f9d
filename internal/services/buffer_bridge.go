package services

import (
	"context"
	"encoding/json"

	"github.com/fastygo/scheduler/domain"
	"github.com/fastygo/scheduler/internal/infrastructure/buffer"
	"github.com/fastygo/scheduler/usecase"
)

// BufferBridge turns a rejected assignment batch into a single buffer item.
type BufferBridge struct {
	processor *BufferProcessor
}

func NewBufferBridge(processor *BufferProcessor) *BufferBridge {
	return &BufferBridge{processor: processor}
}

func (b *BufferBridge) BufferAssignment(ctx context.Context, runID string, batch []domain.SessionAssignment) error {
	if b.processor == nil || len(batch) == 0 {
		return domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(batch)
	if err != nil {
		return err
	}
	item := buffer.Item{
		RunID:     runID,
		Entity:    buffer.EntityAssignment,
		Operation: buffer.OperationApply,
		Data:      payload,
		Priority:  buffer.PriorityAssignment,
	}
	return b.processor.BufferOperation(ctx, item)
}

var _ usecase.AssignmentBuffer = (*BufferBridge)(nil)
