package firestore

import (
	"fmt"

	"github.com/ripixel/fitglue-media/pkg/domain/exercise"
	"github.com/ripixel/fitglue-media/pkg/execution"
)

// DefaultMediaURLField is the catalog field holding the public media URL.
const DefaultMediaURLField = "gif_url"

// Helper to safely get string from map
func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Helper to get a required string field, failing when absent or not a string
func requireString(m map[string]interface{}, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", fmt.Errorf("missing field %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q is %T, not a string", key, v)
	}
	return s, nil
}

// --- Exercise Converters ---

// FirestoreToExercise builds a catalog entry from a document. Rows without
// a string name or muscle group are rejected so one malformed document
// cannot take part in matching.
func FirestoreToExercise(id string, m map[string]interface{}, mediaField string) (exercise.Entry, error) {
	if mediaField == "" {
		mediaField = DefaultMediaURLField
	}
	name, err := requireString(m, "name")
	if err != nil {
		return exercise.Entry{}, fmt.Errorf("exercise %s: %w", id, err)
	}
	group, err := requireString(m, "muscle_group")
	if err != nil {
		return exercise.Entry{}, fmt.Errorf("exercise %s: %w", id, err)
	}

	e := exercise.Entry{
		ID:          id,
		Name:        name,
		MuscleGroup: group,
		MediaURL:    getString(m, mediaField),
	}
	if err := e.Validate(); err != nil {
		return exercise.Entry{}, err
	}
	return e, nil
}

// --- Execution Record ---

func ExecutionToFirestore(e *execution.ExecutionRecord) map[string]interface{} {
	m := map[string]interface{}{
		"execution_id": e.ExecutionID,
		"service":      e.Service,
		"status":       int32(e.Status),
		"timestamp":    e.Timestamp,
		"trigger_type": e.TriggerType,
		"start_time":   e.StartTime,
	}
	if !e.EndTime.IsZero() {
		m["end_time"] = e.EndTime
	}
	if e.InputsJSON != "" {
		m["inputs_json"] = e.InputsJSON
	}
	if e.OutputsJSON != "" {
		m["outputs_json"] = e.OutputsJSON
	}
	if e.ErrorMessage != "" {
		m["error_message"] = e.ErrorMessage
	}
	if e.ParentExecutionID != "" {
		m["parent_execution_id"] = e.ParentExecutionID
	}
	return m
}
