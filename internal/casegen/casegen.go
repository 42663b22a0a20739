// Package casegen runs the lifecycle of a case: generating it, serving it to players and judging their guesses.
//
// Exactly one case is live at a time. Every artifact is tagged with its case number and creating a new case is
// guarded by a named lease shared by the scheduler and manual triggers.
package casegen

import (
	"context"
	"time"

	"github.com/polluterofminds/parallax-server/internal/errors"
	"github.com/polluterofminds/parallax-server/internal/models"
	"github.com/polluterofminds/parallax-server/internal/repositories"
)

// LockName is the lease that serializes case creation.
const LockName = "case-generation"

var (
	ErrCaseInProgress   = errors.NewSentinel("a case is already being generated")
	ErrNoActiveCase     = errors.NewSentinel("no active case")
	ErrUnknownCharacter = errors.NewSentinel("unknown character")
	ErrEmptyGeneration  = errors.NewSentinel("text generator returned nothing")
	ErrLeakyTeaser      = errors.NewSentinel("teaser gives away the culprit")
)

// Stage is a state of the case creation state machine. Stages run strictly in declaration order.
type Stage string

const (
	StageTeardown         Stage = "teardown"
	StageRosterReady      Stage = "roster_ready"
	StageNarrativeReady   Stage = "narrative_ready"
	StageTeaserReady      Stage = "teaser_ready"
	StageSolutionReady    Stage = "solution_ready"
	StageCluesDistributed Stage = "clues_distributed"
	StagePublished        Stage = "published"
)

// Stages lists the case creation stages in order.
var Stages = []Stage{ //nolint:gochecknoglobals // constant list
	StageTeardown,
	StageRosterReady,
	StageNarrativeReady,
	StageTeaserReady,
	StageSolutionReady,
	StageCluesDistributed,
	StagePublished,
}

type RosterGenerator interface {
	Generate(ctx context.Context, n int) ([]models.Character, error)
}

type SolutionExtractor interface {
	ExtractSolution(ctx context.Context, narrative string) (models.StructuredSolution, error)
}

type ClueDistributor interface {
	Distribute(
		ctx context.Context,
		characters []models.Character,
		solution models.StructuredSolution,
		teaser string,
	) ([]models.MemoryFragment, error)
}

// EpisodeStore is the bookkeeping of cases, newest first.
type EpisodeStore interface {
	// Latest returns the newest episode or models.ErrNoEpisode.
	Latest(ctx context.Context) (models.Episode, error)
	Append(ctx context.Context, episode models.Episode) error
}

// Ledger is the external record of which case is active and who won it.
type Ledger interface {
	// SetCaseInfo opens caseNumber, the episode's case number, as the active case.
	SetCaseInfo(ctx context.Context, caseNumber int64, crimeInfoRef string) error
	GameOver(ctx context.Context, winner string) (string, error)
}

// Locker hands out named leases. A held lease is reported as repositories.ErrLocked.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (*repositories.Lease, error)
}

// SolveAttempts is the append-only log of guesses.
type SolveAttempts interface {
	Append(ctx context.Context, playerID string, caseNumber int64) error
	Count(ctx context.Context, playerID string, caseNumber int64) (int, error)
}

// Conversations stores the messages exchanged between a player and a character, per case.
type Conversations interface {
	// History returns the last limit messages, oldest first.
	History(ctx context.Context, caseNumber int64, playerID, characterID string, limit int) ([]models.ChatMessage, error)
	Append(ctx context.Context, caseNumber int64, playerID, characterID string, messages ...models.ChatMessage) error
}
