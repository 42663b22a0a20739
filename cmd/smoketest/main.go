package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/polluterofminds/parallax-server/internal/casegen"
	"github.com/polluterofminds/parallax-server/internal/e2etest"
	"github.com/polluterofminds/parallax-server/internal/errors"
	"github.com/polluterofminds/parallax-server/internal/logging"
	"github.com/polluterofminds/parallax-server/internal/models"
)

// TestCaseFile checks that a deployed server publishes a complete case file and accepts guesses.
func TestCaseFile(ctx context.Context, client *e2etest.Client) (casegen.CaseFile, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()

	file, err := client.CaseFile(ctx)
	if err != nil {
		return casegen.CaseFile{}, errors.Wrap(err, "fetch case file")
	}
	if file.Teaser == "" || len(file.Characters) == 0 {
		return casegen.CaseFile{}, errors.New("incomplete case file",
			slog.Int("characters", len(file.Characters)))
	}
	return file, nil
}

func TestSolve(ctx context.Context, client *e2etest.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second) //nolint:mnd // the motive judge may run
	defer cancel()

	result, err := client.Solve(ctx, "0xsmoketest", models.StructuredSolution{
		Victims:  "nobody",
		Criminal: "nobody",
		Motive:   "smoke test",
	})
	if err != nil {
		return errors.Wrap(err, "solve")
	}
	if result.Verdict.Solved() {
		return errors.New("nonsense guess solved the case")
	}
	return nil
}

func main() {
	logger := logging.NewLogger(os.Stdout, slog.LevelDebug, false)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		url      = "https://" + hostname
		client   = e2etest.NewClient(url)
		err      error
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", url))

	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not healthy", errors.SlogError(err))
		os.Exit(1)
	}
	file, err := TestCaseFile(ctx, client)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing case file", errors.SlogError(err))
		os.Exit(1)
	}
	ctx = logging.WithAttrs(ctx, slog.Int64("case_number", file.Episode.CaseNumber))
	if err = TestSolve(ctx, client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing solve", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌")
	os.Exit(0)
}
