// Package artifacts defines the content-addressed store for case artifacts.
//
// Artifacts are opaque blobs tagged with key-value metadata. They are partitioned into a public visibility class
// (teaser, character profiles) and a private one (narrative, solution, memory fragments).
package artifacts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/polluterofminds/parallax-server/internal/errors"
)

type Visibility string

const (
	Public  Visibility = "public"
	Private Visibility = "private"
)

type Kind string

const (
	KindCharacter Kind = "character"
	KindNarrative Kind = "narrative"
	KindTeaser    Kind = "teaser"
	KindSolution  Kind = "solution"
	KindMemory    Kind = "memory"
)

// Kinds lists every kind the case lifecycle owns.
var Kinds = []Kind{KindCharacter, KindNarrative, KindTeaser, KindSolution, KindMemory} //nolint:gochecknoglobals // constant list

// Tag keys.
const (
	TagKind        = "kind"
	TagCaseNumber  = "case_number"
	TagCharacterID = "character_id"
	TagCategory    = "category"
)

var ErrNotFound = errors.NewSentinel("artifact not found")

// Artifact is a stored blob with its metadata.
type Artifact struct {
	ID         string
	CID        string
	Name       string
	Visibility Visibility
	Tags       map[string]string
	Content    []byte
	CreatedAt  time.Time
}

// Filter selects artifacts whose visibility matches and whose tags include every entry of Tags.
type Filter struct {
	Visibility Visibility
	Tags       map[string]string
}

// Store is the artifact persistence contract.
type Store interface {
	// Put stores a new artifact and returns it with ID, CID and CreatedAt set.
	Put(ctx context.Context, artifact Artifact) (Artifact, error)
	// Get returns the artifact with id or ErrNotFound.
	Get(ctx context.Context, id string) (Artifact, error)
	// List returns the artifacts matching filter, newest first.
	List(ctx context.Context, filter Filter) ([]Artifact, error)
	// Delete removes the artifacts with the given ids. Unknown ids are ignored.
	Delete(ctx context.Context, ids ...string) error
}

// ContentID returns the content address of content.
func ContentID(content []byte) string {
	sum := sha256.Sum256(content)
	return "sha256-" + hex.EncodeToString(sum[:])
}

// Ref returns the address that is published to the ledger for an artifact.
func Ref(a Artifact) string {
	return "ipfs://" + a.CID
}

// CaseTags builds the tags every case artifact carries.
func CaseTags(kind Kind, caseNumber int64, extra ...string) map[string]string {
	tags := map[string]string{
		TagKind:       string(kind),
		TagCaseNumber: strconv.FormatInt(caseNumber, 10),
	}
	for i := 0; i+1 < len(extra); i += 2 {
		tags[extra[i]] = extra[i+1]
	}
	return tags
}

// Matches reports whether a satisfies filter.
func (f Filter) Matches(a Artifact) bool {
	if f.Visibility != "" && f.Visibility != a.Visibility {
		return false
	}
	for k, v := range f.Tags {
		if a.Tags[k] != v {
			return false
		}
	}
	return true
}
