// Package discovery finds candidate third-party posts per project keyword and
// persists them for classification.
package discovery

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"promoscout/internal/breaker"
	"promoscout/internal/config"
	"promoscout/internal/model"
	"promoscout/internal/serp"
	"promoscout/internal/storage"
)

// contentDomain restricts discovery to the external content site.
const contentDomain = "reddit.com"

// marketingChannels are always excluded; they are self-promotion dumping
// grounds, not genuine conversations.
var marketingChannels = map[string]struct{}{
	"promote":            {},
	"selfpromotion":      {},
	"shamelessplug":      {},
	"advertising":        {},
	"marketing":          {},
	"deals":              {},
	"coupons":            {},
	"affiliatemarketing": {},
}

// Searcher is the search boundary consumed by the engine.
type Searcher interface {
	Search(ctx context.Context, query, window string) ([]serp.Result, error)
}

// Result tallies one discovery run.
type Result struct {
	Found  int `json:"found"`  // raw results across all queries
	Unique int `json:"unique"` // after in-run dedup, before channel filtering
	Stored int `json:"stored"` // newly created rows
	Errors int `json:"errors"` // failed queries
}

// Engine runs discovery for one project at a time. Runs for different
// projects may proceed concurrently on separate goroutines.
type Engine struct {
	search Searcher
	store  *storage.Store
	runs   *storage.RunStore
	log    *zap.Logger
	fanout int
	now    func() time.Time
}

func NewEngine(search Searcher, store *storage.Store, runs *storage.RunStore, fanout int, log *zap.Logger) *Engine {
	if fanout <= 0 {
		fanout = 4
	}
	return &Engine{search: search, store: store, runs: runs, log: log, fanout: fanout, now: time.Now}
}

// Discover queries the search API per keyword (per target channel when any
// are configured), dedups by canonical URL, drops
// banned and marketing channels, and upserts the rest. A failing keyword is
// logged and tallied, never fatal; a fully open circuit degrades the run to
// zero progress.
func (e *Engine) Discover(ctx context.Context, p config.ProjectConfig) (Result, error) {
	started := e.now().UTC()
	e.setRunStatus(ctx, p.Name, "running", Result{}, started, time.Time{})

	var (
		mu      sync.Mutex
		res     Result
		results []serp.Result
		byKW    = map[string]string{} // canonical url -> keyword that found it
	)
	sem := make(chan struct{}, e.fanout)
	var wg sync.WaitGroup
	for _, q := range queries(p) {
		q := q
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			found, err := e.search.Search(ctx, q.query, p.TimeWindow)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Errors++
				if errors.Is(err, breaker.ErrOpen) {
					e.log.Warn("discovery: search circuit open", zap.String("project", p.Name), zap.String("keyword", q.keyword))
				} else {
					e.log.Error("discovery: keyword query failed", zap.String("project", p.Name), zap.String("query", q.query), zap.Error(err))
				}
				return
			}
			res.Found += len(found)
			for _, r := range found {
				cu := CanonicalURL(r.Link)
				if cu == "" {
					continue
				}
				if _, seen := byKW[cu]; seen {
					continue
				}
				byKW[cu] = q.keyword
				results = append(results, r)
				res.Unique++
			}
		}()
	}
	wg.Wait()

	banned := map[string]struct{}{}
	for _, ch := range p.BannedChannels {
		banned[strings.ToLower(strings.TrimSpace(ch))] = struct{}{}
	}

	now := e.now().UTC()
	for _, r := range results {
		cu := CanonicalURL(r.Link)
		ch := ChannelFromURL(r.Link)
		if _, ok := banned[ch]; ok {
			continue
		}
		if _, ok := marketingChannels[ch]; ok {
			continue
		}
		item := &model.DiscoveredItem{
			ID:           newID(),
			Project:      p.Name,
			URL:          cu,
			Channel:      ch,
			Title:        r.Title,
			Snippet:      r.Snippet,
			Keyword:      byKW[cu],
			Intent:       model.IntentGeneral,
			FilterStatus: model.FilterPending,
			DiscoveredAt: now,
		}
		created, err := e.store.UpsertItem(ctx, item)
		if err != nil {
			res.Errors++
			e.log.Error("discovery: upsert failed", zap.String("project", p.Name), zap.String("url", cu), zap.Error(err))
			continue
		}
		if created {
			res.Stored++
		}
	}

	e.setRunStatus(ctx, p.Name, "completed", res, started, e.now().UTC())
	e.log.Info("discovery: run completed",
		zap.String("project", p.Name),
		zap.Int("found", res.Found),
		zap.Int("unique", res.Unique),
		zap.Int("stored", res.Stored),
		zap.Int("errors", res.Errors))
	return res, nil
}

func (e *Engine) setRunStatus(ctx context.Context, project, state string, r Result, started, finished time.Time) {
	if e.runs == nil {
		return
	}
	rs := storage.RunStatus{
		Project:    project,
		Kind:       storage.RunDiscovery,
		State:      state,
		Found:      r.Found,
		Processed:  r.Unique,
		Stored:     r.Stored,
		Errors:     r.Errors,
		StartedAt:  started,
		FinishedAt: finished,
	}
	if err := e.runs.Set(ctx, rs); err != nil {
		e.log.Warn("discovery: run status write failed", zap.String("project", project), zap.Error(err))
	}
}

func newID() string { return uuid.New().String() }

type searchQuery struct {
	keyword string
	query   string
}

// queries expands the project's keywords into search queries. With target
// channels configured, each keyword is queried once per channel; otherwise
// once across the whole content domain.
func queries(p config.ProjectConfig) []searchQuery {
	var out []searchQuery
	for _, kw := range p.Keywords {
		if len(p.TargetChannels) == 0 {
			out = append(out, searchQuery{keyword: kw, query: kw + " site:" + contentDomain})
			continue
		}
		for _, ch := range p.TargetChannels {
			ch = strings.ToLower(strings.TrimSpace(ch))
			if ch == "" {
				continue
			}
			out = append(out, searchQuery{keyword: kw, query: kw + " site:" + contentDomain + "/r/" + ch})
		}
	}
	return out
}

// CanonicalURL normalizes a result link so rediscovery maps onto the same
// row: scheme/host lowered, www stripped, query and fragment dropped,
// trailing slash removed.
func CanonicalURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	u.Host = strings.ToLower(u.Host)
	u.Host = strings.TrimPrefix(u.Host, "www.")
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String()
}

// ChannelFromURL extracts the channel (subreddit) name from a content URL,
// lowercased. Empty when the URL has no channel segment.
func ChannelFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == "r" {
			return strings.ToLower(parts[i+1])
		}
	}
	return ""
}
