package pubsub

import (
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

const (
	// EventSourceExerciseMedia is the CloudEvent source for media batches.
	EventSourceExerciseMedia = "/exercise-media"
	// EventTypeMediaUpdated is emitted once per finished upload batch.
	EventTypeMediaUpdated = "com.fitglue.exercise.media.updated"
)

// NewCloudEvent creates a standardized CloudEvent v1.0 with a JSON payload
func NewCloudEvent(source, eventType string, data interface{}) (cloudevents.Event, error) {
	e := cloudevents.NewEvent()
	e.SetSpecVersion("1.0")
	e.SetID(uuid.NewString())
	e.SetTime(time.Now().UTC())
	e.SetType(eventType)
	e.SetSource(source)

	if err := e.SetData(cloudevents.ApplicationJSON, data); err != nil {
		return e, err
	}
	return e, nil
}
