package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RunKind distinguishes the two background run types exposed by the API.
type RunKind string

const (
	RunDiscovery      RunKind = "discovery"
	RunClassification RunKind = "classification"
)

// RunStatus is the scratch record for the latest run of one kind per project.
type RunStatus struct {
	Project    string    `json:"project"`
	Kind       RunKind   `json:"kind"`
	State      string    `json:"state"` // running, completed, failed
	Found      int       `json:"found"`
	Processed  int       `json:"processed"`
	Stored     int       `json:"stored"`
	Errors     int       `json:"errors"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// RunStore keeps run status records in redis with a TTL; they are scratch
// state, not audit history.
type RunStore struct {
	rdb *redis.Client
}

func NewRunStore(rdb *redis.Client) *RunStore {
	return &RunStore{rdb: rdb}
}

func runKey(kind RunKind, project string) string {
	return fmt.Sprintf("runs:%s:%s", kind, project)
}

// Set stores the latest run status for (kind, project).
func (s *RunStore) Set(ctx context.Context, rs RunStatus) error {
	b, err := json.Marshal(rs)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, runKey(rs.Kind, rs.Project), b, 24*time.Hour).Err()
}

// Get returns the latest run status, or (nil, nil) when none is recorded.
func (s *RunStore) Get(ctx context.Context, kind RunKind, project string) (*RunStatus, error) {
	b, err := s.rdb.Get(ctx, runKey(kind, project)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rs RunStatus
	if err := json.Unmarshal(b, &rs); err != nil {
		return nil, err
	}
	return &rs, nil
}
