package queue

import "context"

// Job consumes messages of one type from the queue.
type Job interface {
	// Name identifies the job in logs and registration.
	Name() string

	// Type is the message type this job handles.
	Type() string

	// Handle processes one payload. Returning an error triggers the retry
	// and dead-letter path.
	Handle(ctx context.Context, payload interface{}) error
}
