package model

import "time"

// TaskKind is the kind of posting task requested from the posting service.
type TaskKind string

const (
	TaskKindComment TaskKind = "comment"
	TaskKindPost    TaskKind = "post"
	TaskKindReply   TaskKind = "reply"
	TaskKindUpvote  TaskKind = "upvote"
)

// TaskStatus is the lifecycle state of one posting submission. It only
// advances on a webhook event or an explicit cancel.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusSubmitted  TaskStatus = "submitted"
	TaskStatusAssigned   TaskStatus = "assigned"
	TaskStatusPublished  TaskStatus = "published"
	TaskStatusModRemoved TaskStatus = "mod_removed"
	TaskStatusCancelled  TaskStatus = "cancelled"
	TaskStatusFailed     TaskStatus = "failed"
)

// Terminal reports whether no further webhook event may advance the task.
// Published is not terminal: moderators can still remove published content.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusModRemoved, TaskStatusCancelled, TaskStatusFailed:
		return true
	}
	return false
}

// PostingTask is the tracking record for one submission to the external
// posting service. Request/response snapshots are kept for audit.
type PostingTask struct {
	ID              string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	DraftID         *string    `json:"draft_id,omitempty" gorm:"type:varchar(36);index"`
	ExternalID      string     `json:"external_id" gorm:"type:varchar(128);uniqueIndex;not null"`
	Kind            TaskKind   `json:"kind" gorm:"type:varchar(16);not null"`
	Status          TaskStatus `json:"status" gorm:"type:varchar(32);index;not null;default:pending"`
	TargetURL       string     `json:"target_url" gorm:"type:varchar(512)"`
	Content         string     `json:"content" gorm:"type:text"`
	RequestPayload  string     `json:"request_payload,omitempty" gorm:"type:text"`
	ResponsePayload string     `json:"response_payload,omitempty" gorm:"type:text"`
	Upvotes         int        `json:"upvotes"`
	SubmittedAt     time.Time  `json:"submitted_at"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (PostingTask) TableName() string { return "posting_tasks" }
