package queue

// TypeProcessThumbnail is the asynq task type for one thumbnail job.
const TypeProcessThumbnail = "thumbnail:process"

// QueueName is the single asynq queue this core dispatches through; the
// spec calls for global FIFO, not priority lanes, so unlike the teacher's
// critical/default/low split there is exactly one queue name here.
const QueueName = "thumbnails"
