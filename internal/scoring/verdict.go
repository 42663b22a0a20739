package scoring

import (
	"context"
	"log/slog"

	"github.com/polluterofminds/parallax-server/internal/errors"
	"github.com/polluterofminds/parallax-server/internal/models"
)

// Thresholds for a solved verdict. All four must hold.
const (
	CriminalThreshold = 0.8
	VictimsThreshold  = 0.8
	MotiveThreshold   = 0.6
	TotalThreshold    = 0.8
)

type Status string

const (
	StatusSolved Status = "solved"
	StatusWrong  Status = "wrong"
)

const (
	MessageSolved        = "Congrats! You've solved the crime. You just won the pot!"
	MessageCriminalRight = "You got the criminal correct!"
	MessageCriminalWrong = "You didn't get the criminal correct :("
	MessageVictimsRight  = "You got the victims right"
	MessageVictimsWrong  = "You didn't get the victims right :("
	MessageMotiveRight   = "You built a solid case and the motive will hold up in court!"
	MessageMotiveWrong   = "That motive has no chance of holding up in court."
)

// Judge rates how well a submitted motive matches the actual one, from 0 to 1.
type Judge interface {
	RateMotive(ctx context.Context, submitted string, actual string) (float64, error)
}

// Verdict is the outcome of a solve attempt. A wrong guess is a verdict, not an error.
type Verdict struct {
	Status          Status `json:"status"`
	Scores          Scores `json:"scores"`
	UsedJudge       bool   `json:"usedJudge"`
	Message         string `json:"message,omitempty"`
	CriminalMessage string `json:"criminal,omitempty"`
	VictimsMessage  string `json:"victims,omitempty"`
	MotiveMessage   string `json:"motive,omitempty"`
}

func (v Verdict) Solved() bool {
	return v.Status == StatusSolved
}

// Evaluate scores submitted and decides the verdict.
//
// When the motive score is below MotiveThreshold and judge is not nil, judge is asked once. A successful rating
// replaces the motive score, clamped into [MotiveFloor, 1], and the total is recomputed. A failed rating keeps the
// computed score.
func Evaluate(
	ctx context.Context,
	logger *slog.Logger,
	correct models.StructuredSolution,
	submitted models.StructuredSolution,
	judge Judge,
) Verdict {
	scores := Score(correct, submitted)
	usedJudge := false
	if scores.Motive < MotiveThreshold && judge != nil {
		rating, err := judge.RateMotive(ctx, submitted.Motive, correct.Motive)
		if err != nil {
			logger.LogAttrs(ctx, slog.LevelWarn, "motive judge failed, keeping computed score",
				slog.Float64("motive", scores.Motive), errors.SlogError(err))
		} else {
			usedJudge = true
			scores.Motive = min(max(rating, MotiveFloor), 1)
			scores.Total = total(scores)
		}
	}

	v := Verdict{Status: StatusWrong, Scores: scores, UsedJudge: usedJudge}
	if scores.Criminal >= CriminalThreshold &&
		scores.Victims >= VictimsThreshold &&
		scores.Motive >= MotiveThreshold &&
		scores.Total >= TotalThreshold {
		v.Status = StatusSolved
		v.Message = MessageSolved
		return v
	}

	v.CriminalMessage = pick(scores.Criminal >= CriminalThreshold, MessageCriminalRight, MessageCriminalWrong)
	v.VictimsMessage = pick(scores.Victims >= VictimsThreshold, MessageVictimsRight, MessageVictimsWrong)
	v.MotiveMessage = pick(scores.Motive >= MotiveThreshold, MessageMotiveRight, MessageMotiveWrong)
	return v
}

func pick(ok bool, right string, wrong string) string {
	if ok {
		return right
	}
	return wrong
}
