// Package aitest provides a deterministic text generator for tests.
package aitest

import (
	"context"
	"iter"
	"strings"
	"sync"

	"github.com/polluterofminds/parallax-server/internal/errors"
)

var ErrScriptExhausted = errors.NewSentinel("scripted generator has no responses left")

// Call is one recorded generation request.
type Call struct {
	Prompt string
	System string
}

// Responder answers the n-th call, counting from zero.
type Responder func(n int, call Call) (string, error)

// Scripted is a Generator that answers from a Responder and records every call. It is safe for concurrent use.
type Scripted struct {
	mu      sync.Mutex
	respond Responder
	calls   []Call
}

func New(respond Responder) *Scripted {
	return &Scripted{respond: respond}
}

// Queue answers calls with responses in order and fails once they run out.
func Queue(responses ...string) *Scripted {
	return New(func(n int, _ Call) (string, error) {
		if n >= len(responses) {
			return "", ErrScriptExhausted
		}
		return responses[n], nil
	})
}

// Fixed answers every call with response.
func Fixed(response string) *Scripted {
	return New(func(int, Call) (string, error) {
		return response, nil
	})
}

func (s *Scripted) Complete(_ context.Context, prompt string, system string) (string, error) {
	s.mu.Lock()
	call := Call{Prompt: prompt, System: system}
	n := len(s.calls)
	s.calls = append(s.calls, call)
	s.mu.Unlock()
	return s.respond(n, call)
}

// CompleteStreaming yields the scripted response word by word.
func (s *Scripted) CompleteStreaming(ctx context.Context, prompt string, system string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		text, err := s.Complete(ctx, prompt, system)
		if err != nil {
			yield("", err)
			return
		}
		for i, word := range strings.Fields(text) {
			if i > 0 {
				word = " " + word
			}
			if !yield(word, nil) {
				return
			}
		}
	}
}

// Calls returns a copy of the recorded calls.
func (s *Scripted) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallCount returns the number of recorded calls.
func (s *Scripted) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
