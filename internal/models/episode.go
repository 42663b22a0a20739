package models

import (
	"time"

	"github.com/polluterofminds/parallax-server/internal/errors"
)

// Episode is the bookkeeping record of one case. The case number correlates generation artifacts, the ledger and
// player solve attempts.
type Episode struct {
	CaseNumber int64         `db:"case_number" json:"caseNumber"`
	CreatedAt  time.Time     `db:"created_at"  json:"createdAt"`
	Duration   time.Duration `db:"duration"    json:"duration"`
	CaseRef    string        `db:"case_ref"    json:"caseRef,omitempty"`
}

// EndsAt is when the case's time window elapses.
func (e Episode) EndsAt() time.Time {
	return e.CreatedAt.Add(e.Duration)
}

// SolveAttempt records one submitted guess.
type SolveAttempt struct {
	PlayerID   string    `db:"player_id"`
	CaseNumber int64     `db:"case_number"`
	CreatedAt  time.Time `db:"created_at"`
}

var ErrNoEpisode = errors.NewSentinel("no episode recorded")
