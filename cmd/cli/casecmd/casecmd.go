// Package casecmd holds the case administration commands of parallax-cli.
package casecmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/polluterofminds/parallax-server/internal/config"
	"github.com/polluterofminds/parallax-server/internal/engine"
	"github.com/polluterofminds/parallax-server/internal/errors"
	"github.com/polluterofminds/parallax-server/internal/models"
	"github.com/polluterofminds/parallax-server/internal/prompts"
	"github.com/polluterofminds/parallax-server/internal/scoring"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{ //nolint:gochecknoglobals // cobra convention
	ID:    "case",
	Title: "Case operations",
}

// Commands builds the engine from environ for every invocation. A nil environ reads the process environment.
type Commands struct {
	logger  *slog.Logger
	environ map[string]string
	opts    []engine.Option
}

func New(logger *slog.Logger, environ map[string]string, opts ...engine.Option) *Commands {
	return &Commands{
		logger:  logger,
		environ: environ,
		opts:    opts,
	}
}

// Register adds the case group and its commands to root.
func (c *Commands) Register(root *cobra.Command) {
	root.AddGroup(Group)
	root.AddCommand(c.newCase(), c.teardown(), c.caseFile(), c.score(), c.interrogate())
}

func (c *Commands) withEngine(cmd *cobra.Command, fn func(ctx context.Context, e *engine.Engine) error) error {
	ctx := cmd.Context()
	cfg, err := config.Load(c.environ)
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	e, err := engine.New(ctx, cfg, c.logger, c.opts...)
	if err != nil {
		return errors.Wrap(err, "build engine")
	}
	err = fn(ctx, e)
	if closeErr := e.Close(context.WithoutCancel(ctx)); closeErr != nil {
		return errors.Join(err, closeErr)
	}
	return err
}

func (c *Commands) newCase() *cobra.Command {
	return &cobra.Command{
		Use:     "new-case",
		GroupID: Group.ID,
		Short:   "Create a new case",
		Long:    "Runs the full case generation pipeline and publishes the result, replacing the current case.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
				episode, err := e.Orchestrator.CreateCase(ctx)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Case %d published, reference %s\n", episode.CaseNumber, episode.CaseRef)
				return nil
			})
		},
	}
}

func (c *Commands) teardown() *cobra.Command {
	return &cobra.Command{
		Use:     "teardown",
		GroupID: Group.ID,
		Short:   "Delete all case artifacts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
				return e.Orchestrator.Teardown(ctx)
			})
		},
	}
}

func (c *Commands) caseFile() *cobra.Command {
	return &cobra.Command{
		Use:     "case-file",
		GroupID: Group.ID,
		Short:   "Print the public case file as JSON",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
				file, err := e.Reader.CurrentCase(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), file)
			})
		},
	}
}

func (c *Commands) score() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "score",
		GroupID: Group.ID,
		Short:   "Score a guess against the current case",
		Long:    "Scores a guess without recording a solve attempt. With --judge, a weak motive is rated by the text generator.",
		Args:    cobra.NoArgs,
	}
	var (
		guess    models.StructuredSolution
		useJudge bool
	)
	cmd.Flags().StringVar(&guess.Criminal, "criminal", "", "who committed the crime")
	cmd.Flags().StringVar(&guess.Victims, "victims", "", "who the victims are")
	cmd.Flags().StringVar(&guess.Motive, "motive", "", "why the crime happened")
	cmd.Flags().BoolVar(&useJudge, "judge", false, "ask the text generator to rate a weak motive")
	_ = cmd.MarkFlagRequired("criminal")
	_ = cmd.MarkFlagRequired("victims")
	_ = cmd.MarkFlagRequired("motive")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return c.withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
			episode, err := e.Reader.CurrentEpisode(ctx)
			if err != nil {
				return err
			}
			solution, err := e.Reader.Solution(ctx, episode.CaseNumber)
			if err != nil {
				return err
			}
			var judge scoring.Judge
			if useJudge {
				judge = scoring.NewAIJudge(e.Orchestrator.Gen, prompts.Default())
			}
			return printJSON(cmd.OutOrStdout(), scoring.Evaluate(ctx, c.logger, solution, guess, judge))
		})
	}
	return cmd
}

func (c *Commands) interrogate() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "interrogate [character-id] [question]",
		GroupID: Group.ID,
		Short:   "Question a character of the current case",
		Long:    "Questions a character. The character remembers earlier questions asked by the same --player.",
		Args:    cobra.MinimumNArgs(2), //nolint:mnd // id and at least one word
	}
	player := cmd.Flags().String("player", "cli", "who is asking")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return c.withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
			out := cmd.OutOrStdout()
			for chunk, err := range e.Interrogator.Ask(ctx, *player, args[0], strings.Join(args[1:], " ")) {
				if err != nil {
					return err
				}
				_, _ = io.WriteString(out, chunk)
			}
			_, _ = fmt.Fprintln(out)
			return nil
		})
	}
	return cmd
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return errors.Wrap(err, "encode output")
	}
	return nil
}
