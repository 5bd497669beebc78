package model

import "time"

// Intent is the provisional/final classification of why a discovered post
// might be worth replying to.
type Intent string

const (
	IntentResearch          Intent = "research"
	IntentPainPoint         Intent = "pain_point"
	IntentCompetitorMention Intent = "competitor_mention"
	IntentQuestion          Intent = "question"
	IntentGeneral           Intent = "general"
)

// FilterStatus tracks where an item sits in the classification funnel.
type FilterStatus string

const (
	FilterPending    FilterStatus = "pending"
	FilterRelevant   FilterStatus = "relevant"
	FilterIrrelevant FilterStatus = "irrelevant"
	FilterSkipped    FilterStatus = "skipped"
)

// DiscoveredItem is a candidate third-party post found by the discovery
// engine. Unique per (project, url); rediscovery refreshes discovered_at
// without resetting classification state.
type DiscoveredItem struct {
	ID             string       `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Project        string       `json:"project" gorm:"type:varchar(64);index:idx_item_project;uniqueIndex:ux_item_project_url,priority:1;not null"`
	URL            string       `json:"url" gorm:"type:varchar(512);uniqueIndex:ux_item_project_url,priority:2;not null"`
	Channel        string       `json:"channel" gorm:"type:varchar(128);index"`
	Title          string       `json:"title" gorm:"type:text"`
	Snippet        string       `json:"snippet" gorm:"type:text"`
	Keyword        string       `json:"keyword" gorm:"type:varchar(255)"`
	Intent         Intent       `json:"intent" gorm:"type:varchar(32)"`
	RelevanceScore *float64     `json:"relevance_score"`
	FilterStatus   FilterStatus `json:"filter_status" gorm:"type:varchar(16);index;not null;default:pending"`
	DiscoveredAt   time.Time    `json:"discovered_at"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

func (DiscoveredItem) TableName() string { return "discovered_items" }
