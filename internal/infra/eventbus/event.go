package eventbus

import "github.com/google/uuid"

// Topic names the four per-job lifecycle channels the bus carries.
type Topic string

const (
	TopicActive    Topic = "job-active"
	TopicProgress  Topic = "job-progress"
	TopicCompleted Topic = "job-completed"
	TopicFailed    Topic = "job-failed"
)

// ReturnValue carries a completed job's output, nested under "returnvalue"
// on the wire to match the job-completed payload shape.
type ReturnValue struct {
	Thumbnails []string `json:"thumbnails"`
}

// Event is the message shape published on every topic. job-active carries
// only JobID; job-progress sets Progress; job-completed sets Progress,
// Status, and ReturnValue; job-failed sets Progress (explicitly 0), Status,
// and Error. Progress is a pointer so a publisher can put an explicit 0 on
// the wire rather than have it dropped as an omitted zero value.
type Event struct {
	JobID       uuid.UUID    `json:"jobId"`
	Status      string       `json:"status,omitempty"`
	Progress    *int         `json:"progress,omitempty"`
	Error       string       `json:"error,omitempty"`
	ReturnValue *ReturnValue `json:"returnvalue,omitempty"`
}
