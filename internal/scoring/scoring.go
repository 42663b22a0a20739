// Package scoring compares a player's guess with the concealed solution of a case.
package scoring

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/polluterofminds/parallax-server/internal/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Score floors and weights.
const (
	NameFloor   = 0.6
	MotiveFloor = 0.4

	CriminalWeight = 0.4
	VictimsWeight  = 0.4
	MotiveWeight   = 0.2
)

// Scores are per-field similarities in [floor, 1] and their weighted total.
type Scores struct {
	Criminal float64 `json:"criminal"`
	Victims  float64 `json:"victims"`
	Motive   float64 `json:"motive"`
	Total    float64 `json:"total"`
}

// Score compares submitted to correct. It is pure and safe for concurrent use.
func Score(correct, submitted models.StructuredSolution) Scores {
	s := Scores{
		Criminal: max(nameSimilarity(correct.Criminal, submitted.Criminal), NameFloor),
		Victims:  max(nameSimilarity(correct.Victims, submitted.Victims), NameFloor),
		Motive:   max(jaccard(correct.Motive, submitted.Motive), MotiveFloor),
	}
	s.Total = total(s)
	return s
}

func total(s Scores) float64 {
	return CriminalWeight*s.Criminal + VictimsWeight*s.Victims + MotiveWeight*s.Motive
}

// Normalize lowercases text, folds accents, drops punctuation and trims surrounding space.
func Normalize(text string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), text)
	if err != nil {
		folded = text
	}
	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// nameSimilarity is one minus the edit distance relative to the correct text's length.
func nameSimilarity(correct, submitted string) float64 {
	c, s := Normalize(correct), Normalize(submitted)
	distance := levenshtein.ComputeDistance(c, s)
	return 1 - float64(distance)/float64(max(len([]rune(c)), 1))
}

// jaccard is the word set overlap of both texts.
func jaccard(a, b string) float64 {
	setA, setB := words(a), words(b)
	union := len(setA)
	intersection := 0
	for w := range setB {
		if setA[w] {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 1
	}
	return float64(intersection) / float64(union)
}

func words(text string) map[string]bool {
	set := map[string]bool{}
	for _, w := range strings.Fields(Normalize(text)) {
		set[w] = true
	}
	return set
}
