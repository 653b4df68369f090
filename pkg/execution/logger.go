package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an execution record.
type Status int32

const (
	StatusUnknown Status = iota
	StatusPending
	StatusStarted
	StatusSuccess
	StatusFailed
	// StatusPartial marks a batch where some candidates failed.
	StatusPartial
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "STATUS_PENDING"
	case StatusStarted:
		return "STATUS_STARTED"
	case StatusSuccess:
		return "STATUS_SUCCESS"
	case StatusFailed:
		return "STATUS_FAILED"
	case StatusPartial:
		return "STATUS_PARTIAL"
	default:
		return "STATUS_UNKNOWN"
	}
}

// ExecutionRecord is one row of the executions collection.
type ExecutionRecord struct {
	ExecutionID       string
	Service           string
	Status            Status
	TriggerType       string
	Timestamp         time.Time
	StartTime         time.Time
	EndTime           time.Time
	InputsJSON        string
	OutputsJSON       string
	ErrorMessage      string
	ParentExecutionID string
}

// Database interface for Firestore operations
type Database interface {
	SetExecution(ctx context.Context, record *ExecutionRecord) error
	UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error
}

// ExecutionOptions contains optional fields for execution logging
type ExecutionOptions struct {
	TriggerType string
	Inputs      interface{}
}

func newExecutionID(service string) string {
	return fmt.Sprintf("%s-%s", service, uuid.NewString())
}

func encodeJSON(v interface{}) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// LogPending creates an execution record with PENDING status and captured inputs
func LogPending(ctx context.Context, db Database, service string, opts ExecutionOptions) (string, error) {
	execID := newExecutionID(service)
	now := time.Now().UTC()

	record := &ExecutionRecord{
		ExecutionID: execID,
		Service:     service,
		Status:      StatusPending,
		TriggerType: opts.TriggerType,
		Timestamp:   now,
		StartTime:   now,
		InputsJSON:  encodeJSON(opts.Inputs),
	}

	if err := db.SetExecution(ctx, record); err != nil {
		return execID, fmt.Errorf("failed to log execution pending: %w", err)
	}
	return execID, nil
}

// LogStart updates an execution record to STARTED status and records inputs
func LogStart(ctx context.Context, db Database, execID string, inputs interface{}) error {
	updates := map[string]interface{}{
		"status":     int32(StatusStarted),
		"start_time": time.Now().UTC(),
	}
	if in := encodeJSON(inputs); in != "" {
		updates["inputs_json"] = in
	}

	if err := db.UpdateExecution(ctx, execID, updates); err != nil {
		return fmt.Errorf("failed to log execution start: %w", err)
	}
	return nil
}

// LogChildExecutionStart creates an execution record with STARTED status and links it to a parent
func LogChildExecutionStart(ctx context.Context, db Database, service string, parentExecutionID string, opts ExecutionOptions) (string, error) {
	execID := newExecutionID(service)
	now := time.Now().UTC()

	record := &ExecutionRecord{
		ExecutionID:       execID,
		Service:           service,
		Status:            StatusStarted,
		TriggerType:       opts.TriggerType,
		Timestamp:         now,
		StartTime:         now,
		InputsJSON:        encodeJSON(opts.Inputs),
		ParentExecutionID: parentExecutionID,
	}

	if err := db.SetExecution(ctx, record); err != nil {
		return execID, fmt.Errorf("failed to log child execution start: %w", err)
	}
	return execID, nil
}

// LogSuccess updates an execution record with SUCCESS status
func LogSuccess(ctx context.Context, db Database, execID string, outputs interface{}) error {
	return LogExecutionStatus(ctx, db, execID, StatusSuccess, outputs)
}

// LogFailure updates an execution record with FAILED status
func LogFailure(ctx context.Context, db Database, execID string, err error, outputs interface{}) error {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":        int32(StatusFailed),
		"timestamp":     now,
		"end_time":      now,
		"error_message": err.Error(),
	}
	if out := encodeJSON(outputs); out != "" {
		updates["outputs_json"] = out
	}

	if updateErr := db.UpdateExecution(ctx, execID, updates); updateErr != nil {
		return fmt.Errorf("failed to log execution failure: %w", updateErr)
	}
	return nil
}

// LogExecutionStatus updates an execution record with a terminal status
func LogExecutionStatus(ctx context.Context, db Database, execID string, status Status, outputs interface{}) error {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":    int32(status),
		"timestamp": now,
		"end_time":  now,
	}
	if out := encodeJSON(outputs); out != "" {
		updates["outputs_json"] = out
	}

	if err := db.UpdateExecution(ctx, execID, updates); err != nil {
		return fmt.Errorf("failed to log execution status %v: %w", status, err)
	}
	return nil
}
