package scoring_test

import (
	"context"
	"io"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/polluterofminds/parallax-server/internal/ai/aitest"
	"github.com/polluterofminds/parallax-server/internal/errors"
	"github.com/polluterofminds/parallax-server/internal/models"
	"github.com/polluterofminds/parallax-server/internal/prompts"
	"github.com/polluterofminds/parallax-server/internal/scoring"
	"github.com/polluterofminds/parallax-server/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var karenCase = models.StructuredSolution{ //nolint:gochecknoglobals // test fixture
	Victims:  "Mark",
	Criminal: "Karen",
	Motive:   "financial betrayal / affair",
}

var approx = cmpopts.EquateApprox(0, 1e-9) //nolint:gochecknoglobals // test option

func TestNormalize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, want string
	}{
		{"  Karen Smith! ", "karen smith"},
		{"financial betrayal / affair", "financial betrayal  affair"},
		{"Zoë O'Brien-Núñez", "zoe obriennunez"},
		{"", ""},
		{"?!", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, scoring.Normalize(tt.in), tt.in)
	}
}

func TestScore_selfMatchIsPerfect(t *testing.T) {
	t.Parallel()
	solutions := []models.StructuredSolution{
		karenCase,
		{Victims: "Mark, Lisa", Criminal: "Zoë Núñez", Motive: "Revenge for her brother's death."},
		{Victims: "", Criminal: "", Motive: ""},
		{Victims: "a", Criminal: "b", Motive: "c"},
	}
	for _, s := range solutions {
		got := scoring.Score(s, s)
		if diff := cmp.Diff(scoring.Scores{Criminal: 1, Victims: 1, Motive: 1, Total: 1}, got, approx); diff != "" {
			t.Errorf("Score(%+v) mismatch (-want +got):\n%s", s, diff)
		}
	}
}

func TestScore_floorsAndTotal(t *testing.T) {
	t.Parallel()
	submissions := []models.StructuredSolution{
		{},
		{Victims: "Mark", Criminal: "Karen", Motive: "she was angry about money and cheating"},
		{Victims: "Mark", Criminal: "Tom", Motive: "revenge"},
		{Victims: "Everyone in Helix", Criminal: "Bartholomew Featherstonehaugh", Motive: "x"},
		{Victims: "mark", Criminal: "KAREN", Motive: "affair"},
		{Victims: "Marc", Criminal: "Karin", Motive: "financial betrayal"},
	}
	for _, submitted := range submissions {
		for _, pair := range [][2]models.StructuredSolution{{karenCase, submitted}, {submitted, karenCase}} {
			got := scoring.Score(pair[0], pair[1])
			assert.GreaterOrEqual(t, got.Criminal, scoring.NameFloor)
			assert.GreaterOrEqual(t, got.Victims, scoring.NameFloor)
			assert.GreaterOrEqual(t, got.Motive, scoring.MotiveFloor)
			assert.LessOrEqual(t, got.Criminal, 1.0)
			assert.LessOrEqual(t, got.Victims, 1.0)
			assert.LessOrEqual(t, got.Motive, 1.0)
			assert.InDelta(t, 0.4*got.Criminal+0.4*got.Victims+0.2*got.Motive, got.Total, 1e-12)
		}
	}
}

func TestScore(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		submitted models.StructuredSolution
		want      scoring.Scores
	}{
		{
			name:      "case and punctuation are ignored",
			submitted: models.StructuredSolution{Victims: "mark.", Criminal: "KAREN", Motive: "Financial betrayal, affair!"},
			want:      scoring.Scores{Criminal: 1, Victims: 1, Motive: 1, Total: 1},
		},
		{
			name:      "one typo in criminal",
			submitted: models.StructuredSolution{Victims: "Mark", Criminal: "Karin", Motive: "affair"},
			// 1 - 1/5 for the criminal, one shared word out of three for the motive.
			want: scoring.Scores{Criminal: 0.8, Victims: 1, Motive: 0.4, Total: 0.32 + 0.4 + 0.08},
		},
		{
			name:      "partial motive overlap",
			submitted: models.StructuredSolution{Victims: "Mark", Criminal: "Karen", Motive: "betrayal affair"},
			want:      scoring.Scores{Criminal: 1, Victims: 1, Motive: 2.0 / 3.0, Total: 0.8 + 0.2*2.0/3.0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tt.want, scoring.Score(karenCase, tt.submitted), approx); diff != "" {
				t.Errorf("Score mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

type fixedJudge struct {
	rating float64
	err    error
	calls  int
}

func (j *fixedJudge) RateMotive(context.Context, string, string) (float64, error) {
	j.calls++
	return j.rating, j.err
}

func TestEvaluate_scenarios(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	logger := testhelpers.NewLogger(io.Discard)

	t.Run("correct guess with reworded motive is solved", func(t *testing.T) {
		t.Parallel()
		judge := &fixedJudge{rating: 0.85}
		submitted := models.StructuredSolution{Victims: "Mark", Criminal: "Karen",
			Motive: "she was angry about money and cheating"}

		v := scoring.Evaluate(ctx, logger, karenCase, submitted, judge)
		assert.Equal(t, scoring.StatusSolved, v.Status)
		assert.True(t, v.Solved())
		assert.True(t, v.UsedJudge)
		assert.Equal(t, 1, judge.calls)
		assert.InDelta(t, 1, v.Scores.Criminal, 1e-9)
		assert.InDelta(t, 1, v.Scores.Victims, 1e-9)
		assert.InDelta(t, 0.85, v.Scores.Motive, 1e-9)
		assert.InDelta(t, 0.97, v.Scores.Total, 1e-9)
		assert.Equal(t, scoring.MessageSolved, v.Message)
	})

	t.Run("wrong criminal is wrong", func(t *testing.T) {
		t.Parallel()
		judge := &fixedJudge{rating: 0.1}
		submitted := models.StructuredSolution{Victims: "Mark", Criminal: "Tom", Motive: "revenge"}

		v := scoring.Evaluate(ctx, logger, karenCase, submitted, judge)
		assert.Equal(t, scoring.StatusWrong, v.Status)
		// "tom" is five edits away from "karen", so the criminal score sits on the floor.
		assert.InDelta(t, scoring.NameFloor, v.Scores.Criminal, 1e-9)
		assert.Equal(t, scoring.MessageCriminalWrong, v.CriminalMessage)
		assert.Equal(t, scoring.MessageVictimsRight, v.VictimsMessage)
		assert.Equal(t, scoring.MessageMotiveWrong, v.MotiveMessage)
		assert.InDelta(t, scoring.MotiveFloor, v.Scores.Motive, 1e-9, "judge rating is clamped to the floor")
	})
}

func TestEvaluate_judgeFallback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	logger := testhelpers.NewLogger(io.Discard)
	lowMotive := models.StructuredSolution{Victims: "Mark", Criminal: "Karen", Motive: "jealousy"}
	computed := scoring.Score(karenCase, lowMotive)

	t.Run("judge error keeps computed score", func(t *testing.T) {
		t.Parallel()
		judge := &fixedJudge{err: errors.NewSentinel("bad rating")}
		v := scoring.Evaluate(ctx, logger, karenCase, lowMotive, judge)
		assert.False(t, v.UsedJudge)
		assert.Equal(t, computed, v.Scores)
		assert.Equal(t, scoring.StatusWrong, v.Status)
	})

	t.Run("no judge", func(t *testing.T) {
		t.Parallel()
		v := scoring.Evaluate(ctx, logger, karenCase, lowMotive, nil)
		assert.Equal(t, computed, v.Scores)
	})

	t.Run("judge is not asked when the motive is good enough", func(t *testing.T) {
		t.Parallel()
		judge := &fixedJudge{rating: 0}
		v := scoring.Evaluate(ctx, logger, karenCase, karenCase, judge)
		assert.Zero(t, judge.calls)
		assert.True(t, v.Solved())
	})

	t.Run("total is recomputed after substitution", func(t *testing.T) {
		t.Parallel()
		judge := &fixedJudge{rating: 0.7}
		v := scoring.Evaluate(ctx, logger, karenCase, lowMotive, judge)
		assert.InDelta(t, 0.4*v.Scores.Criminal+0.4*v.Scores.Victims+0.2*0.7, v.Scores.Total, 1e-12)
		assert.True(t, v.Solved())
	})
}

func TestAIJudge(t *testing.T) {
	t.Parallel()
	tests := []struct {
		response string
		want     float64
		wantErr  bool
	}{
		{response: "0.85", want: 0.85},
		{response: " 1 ", want: 1},
		{response: "0.7. The intent matches.", want: 0.7},
		{response: "I'd say 0.7", wantErr: true},
		{response: "", wantErr: true},
		{response: "1.5", wantErr: true},
		{response: "-0.1", wantErr: true},
		{response: "NaN", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.response, func(t *testing.T) {
			t.Parallel()
			gen := aitest.Fixed(tt.response)
			got, err := scoring.NewAIJudge(gen, prompts.Default()).RateMotive(context.Background(), "greed", "money")
			assert.Equal(t, 1, gen.CallCount())
			if tt.wantErr {
				require.ErrorIs(t, err, scoring.ErrInvalidRating)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
			assert.False(t, math.IsNaN(got))
		})
	}
}
