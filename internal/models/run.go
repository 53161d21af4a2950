package models

import "time"

// RunState is the orchestrator position within a single run.
type RunState string

const (
	StateFetchTrends   RunState = "fetch_trends"
	StateProcessTopics RunState = "process_topics"
	StateDone          RunState = "done"
	StateAborted       RunState = "aborted"
)

// TopicResult captures what happened to one processed topic.
type TopicResult struct {
	Topic   string
	Article *Article
	Report  Report
	Post    *Post
	Err     error
}

// Published reports whether the post for this topic was created.
func (r TopicResult) Published() bool {
	return r.Err == nil
}

// RunSummary describes a finished or aborted reporter run.
type RunSummary struct {
	RunID      string
	Region     string
	StartedAt  time.Time
	FinishedAt time.Time
	State      RunState
	Results    []TopicResult
}

// Counts returns the number of published and failed topics.
func (s *RunSummary) Counts() (published, failed int) {
	for _, r := range s.Results {
		if r.Published() {
			published++
		} else {
			failed++
		}
	}
	return published, failed
}
