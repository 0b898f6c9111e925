package app

import (
	"time"

	"github.com/jaminalder/trivia-checkers/internal/domain"
	"github.com/jaminalder/trivia-checkers/internal/trivia"
)

// Phase is the turn controller state.
type Phase string

const (
	AwaitingSelection   Phase = "awaiting_selection"
	AwaitingDestination Phase = "awaiting_destination"
	AwaitingChallenge   Phase = "awaiting_challenge"
	GameOver            Phase = "game_over"
)

// Challenge is the trivia question gating a pending move.
type Challenge struct {
	ID       string
	Question trivia.Question
	From     domain.Cell
	To       domain.Cell
	Deadline time.Time
}

// GameState is the in-memory state tracked per game.
type GameState struct {
	ID        string
	Game      domain.Game
	Phase     Phase
	Selected  *domain.Cell
	Hints     []domain.Cell
	Challenge *Challenge
	Notice    string
	Created   time.Time
	Updated   time.Time
}

// Timer is the handle of an armed challenge deadline.
type Timer interface {
	Stop() bool
}

type session struct {
	state GameState
	timer Timer
}

func (ss *session) stopTimer() {
	if ss.timer != nil {
		ss.timer.Stop()
		ss.timer = nil
	}
}

func (ss *session) clearSelection() {
	ss.state.Selected = nil
	ss.state.Hints = nil
}

// snapshot returns a deep copy safe to use outside the service lock.
func (ss *session) snapshot() GameState {
	cp := ss.state
	cp.Game = ss.state.Game.Clone()
	if ss.state.Selected != nil {
		sel := *ss.state.Selected
		cp.Selected = &sel
	}
	cp.Hints = append([]domain.Cell(nil), ss.state.Hints...)
	if ss.state.Challenge != nil {
		ch := *ss.state.Challenge
		ch.Question.Choices = append([]string(nil), ch.Question.Choices...)
		cp.Challenge = &ch
	}
	return cp
}

// Remaining returns the time left to answer the pending challenge.
func (gs GameState) Remaining(now time.Time) time.Duration {
	if gs.Challenge == nil {
		return 0
	}
	if d := gs.Challenge.Deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}
