package models

import "time"

// TaskType enumerates the scheduled-task kinds the scheduler persists.
type TaskType string

const (
	TaskEpisodeRelease TaskType = "episode_release"
	TaskMovieRelease   TaskType = "movie_release"
	TaskReindexShow    TaskType = "reindex_show"
	TaskReindexMovie   TaskType = "reindex_movie"
	TaskReindex        TaskType = "reindex"
)

// TaskStatus is a ScheduledTask's lifecycle status.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// ScheduledTask is a durable, uniquely-keyed (item_id, task_type,
// scheduled_for) row driving the due-task processor (spec §4.2/§4.8).
type ScheduledTask struct {
	ID            int64      `json:"id"`
	ItemID        int64      `json:"item_id"`
	TaskType      TaskType   `json:"task_type"`
	ScheduledFor  time.Time  `json:"scheduled_for"`
	Status        TaskStatus `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	ExecutedAt    *time.Time `json:"executed_at,omitempty"`
	OffsetSeconds *int       `json:"offset_seconds,omitempty"`
	Reason        *string    `json:"reason,omitempty"`
}

// IsReindex reports whether the task type requires a synchronous indexer
// call rather than a state transition + event enqueue (spec §4.8).
func (t TaskType) IsReindex() bool {
	switch t {
	case TaskReindexShow, TaskReindexMovie, TaskReindex:
		return true
	default:
		return false
	}
}
