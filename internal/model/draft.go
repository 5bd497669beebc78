package model

import "time"

// DraftStatus is the moderation/submission state of a generated reply.
type DraftStatus string

const (
	DraftStatusDraft      DraftStatus = "draft"
	DraftStatusApproved   DraftStatus = "approved"
	DraftStatusRejected   DraftStatus = "rejected"
	DraftStatusSubmitting DraftStatus = "submitting"
	DraftStatusPosted     DraftStatus = "posted"
	DraftStatusFailed     DraftStatus = "failed"
	DraftStatusModRemoved DraftStatus = "mod_removed"
)

// Draft is a generated candidate response tied to exactly one DiscoveredItem.
// OriginalBody is written once at creation; moderator edits only touch Body.
type Draft struct {
	ID            string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ItemID        string      `json:"item_id" gorm:"type:varchar(36);index;not null"`
	Project       string      `json:"project" gorm:"type:varchar(64);index"`
	Body          string      `json:"body" gorm:"type:text"`
	OriginalBody  string      `json:"original_body" gorm:"type:text"`
	IsPromotional bool        `json:"is_promotional"`
	Approach      string      `json:"approach" gorm:"type:varchar(64)"`
	Status        DraftStatus `json:"status" gorm:"type:varchar(16);index;not null;default:draft"`
	RejectReason  *string     `json:"reject_reason,omitempty" gorm:"type:text"`
	PostedURL     *string     `json:"posted_url,omitempty" gorm:"type:varchar(512)"`
	Model         string      `json:"model" gorm:"type:varchar(64)"`
	Meta          string      `json:"meta,omitempty" gorm:"type:text"`
	CreatedAt     time.Time   `json:"created_at" gorm:"index:idx_draft_created"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func (Draft) TableName() string { return "drafts" }
