package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jaminalder/trivia-checkers/internal/domain"
	"github.com/jaminalder/trivia-checkers/internal/obslog"
	"github.com/jaminalder/trivia-checkers/internal/trivia"
)

// Errors exposed by the service layer.
var (
	ErrNotFound         = errors.New("game not found")
	ErrNoSelection      = errors.New("no piece selected")
	ErrChallengePending = errors.New("challenge pending")
	ErrNoChallenge      = errors.New("no challenge pending")
	ErrNothingToUndo    = errors.New("nothing to undo")
	ErrNoQuestions      = errors.New("no question source")
)

// DefaultChallengeTimeout is the time a player has to answer.
const DefaultChallengeTimeout = 10 * time.Second

// QuestionSource hands out trivia questions.
type QuestionSource interface {
	Next() (trivia.Question, error)
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan []byte
	closed bool
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// offer delivers payload without blocking. It reports false when the
// subscriber is closed or its buffer is full.
func (s *subscriber) offer(payload []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- payload:
		return true
	default:
		return false
	}
}

// Service manages games, their challenge timers and subscribers.
type Service struct {
	mu        sync.Mutex
	games     map[string]*session
	subs      map[string]map[*subscriber]struct{}
	render    func(GameState) []byte
	questions QuestionSource
	timeout   time.Duration
	rules     domain.Rules
	afterFunc func(time.Duration, func()) Timer
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithQuestions sets the question source used for challenges.
func WithQuestions(q QuestionSource) Option { return func(s *Service) { s.questions = q } }

// WithChallengeTimeout sets the answer deadline. Non-positive values are ignored.
func WithChallengeTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRules sets the rule variant for new games.
func WithRules(r domain.Rules) Option { return func(s *Service) { s.rules = r } }

// WithRenderer sets the broadcast renderer.
func WithRenderer(renderer func(GameState) []byte) Option {
	return func(s *Service) {
		if renderer != nil {
			s.render = renderer
		}
	}
}

// WithTimerFunc replaces time.AfterFunc for challenge deadlines.
func WithTimerFunc(fn func(time.Duration, func()) Timer) Option {
	return func(s *Service) {
		if fn != nil {
			s.afterFunc = fn
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a service. Without WithQuestions the embedded bank is used.
func NewService(opts ...Option) *Service {
	s := &Service{
		games:     make(map[string]*session),
		subs:      make(map[string]map[*subscriber]struct{}),
		render:    func(GameState) []byte { return nil },
		timeout:   DefaultChallengeTimeout,
		rules:     domain.DefaultRules(),
		afterFunc: func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) },
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.questions == nil {
		if bank, err := trivia.LoadEmbedded(); err == nil {
			s.questions = bank
		} else {
			obslog.L().Error("load embedded questions", zap.Error(err))
		}
	}
	return s
}

// SetRenderer replaces the broadcast renderer function.
func (s *Service) SetRenderer(renderer func(GameState) []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if renderer == nil {
		s.render = func(GameState) []byte { return nil }
		return
	}
	s.render = renderer
}

// Now reports the service clock.
func (s *Service) Now() time.Time { return s.now() }

func (s *Service) newSessionLocked(id string) *session {
	now := s.now()
	ss := &session{state: GameState{
		ID:      id,
		Game:    domain.New(s.rules),
		Phase:   AwaitingSelection,
		Created: now,
		Updated: now,
	}}
	s.games[id] = ss
	return ss
}

// CreateGame creates and registers a new game.
func (s *Service) CreateGame() (*GameState, error) {
	s.mu.Lock()
	ss := s.newSessionLocked(uuid.NewString())
	cp := ss.snapshot()
	s.mu.Unlock()
	obslog.L().Info("game_create", zap.String("game", cp.ID))
	return &cp, nil
}

// Get returns a copy of the game state if present.
func (s *Service) Get(id string) (*GameState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.games[id]
	if !ok {
		return nil, false
	}
	cp := ss.snapshot()
	return &cp, true
}

// SelectPiece marks a piece of the side to move as selected and computes its
// hints. Selecting again replaces the previous selection.
func (s *Service) SelectPiece(id string, at domain.Cell) (*GameState, error) {
	return s.update(id, func(ss *session) error {
		if err := ss.ready(); err != nil {
			return err
		}
		g := &ss.state.Game
		piece, ok := g.Board.Get(at)
		switch {
		case !ok:
			return domain.ErrOutOfBounds
		case piece.Empty():
			return domain.ErrNoPiece
		case piece.Color != g.Turn:
			return domain.ErrNotYourPiece
		}
		sel := at
		ss.state.Selected = &sel
		ss.state.Hints = g.Rules.Hints(&g.Board, at)
		ss.state.Phase = AwaitingDestination
		ss.state.Notice = ""
		return nil
	})
}

// SelectCell picks the destination for the selected piece. A legal
// destination issues a challenge and arms its deadline; anything else is
// rejected without touching the state.
func (s *Service) SelectCell(id string, to domain.Cell) (*GameState, error) {
	var issued *Challenge
	gs, err := s.update(id, func(ss *session) error {
		if err := ss.ready(); err != nil {
			return err
		}
		if ss.state.Selected == nil {
			return ErrNoSelection
		}
		from := *ss.state.Selected
		if err := ss.state.Game.CheckMove(from, to); err != nil {
			return err
		}
		if s.questions == nil {
			return ErrNoQuestions
		}
		q, err := s.questions.Next()
		if err != nil {
			return fmt.Errorf("next question: %w", err)
		}
		ch := &Challenge{
			ID:       uuid.NewString(),
			Question: q,
			From:     from,
			To:       to,
			Deadline: s.now().Add(s.timeout),
		}
		ss.stopTimer()
		chID := ch.ID
		ss.timer = s.afterFunc(s.timeout, func() { s.expire(id, chID) })
		ss.state.Challenge = ch
		ss.state.Phase = AwaitingChallenge
		ss.state.Notice = ""
		issued = ch
		return nil
	})
	if err == nil {
		obslog.L().Info("challenge_issued",
			zap.String("game", id),
			zap.String("challenge", issued.ID),
			zap.String("turn", gs.Game.Turn.String()),
			zap.Duration("timeout", s.timeout),
		)
	}
	return gs, err
}

// Answer resolves the pending challenge with the chosen option. The
// challenge ID guards against answers to a challenge that already resolved.
func (s *Service) Answer(id, challengeID string, choice int) (*GameState, error) {
	return s.update(id, func(ss *session) error {
		ch := ss.state.Challenge
		if ch == nil || ch.ID != challengeID {
			return ErrNoChallenge
		}
		s.resolveLocked(ss, ch.Question.Correct(choice), "answer")
		return nil
	})
}

// expire resolves a challenge whose deadline passed as a wrong answer. It is
// a no-op when the challenge already resolved.
func (s *Service) expire(id, challengeID string) {
	_, _ = s.update(id, func(ss *session) error {
		ch := ss.state.Challenge
		if ch == nil || ch.ID != challengeID {
			return ErrNoChallenge
		}
		s.resolveLocked(ss, false, "timeout")
		return nil
	})
}

func (s *Service) resolveLocked(ss *session, correct bool, reason string) {
	ss.stopTimer()
	ch := ss.state.Challenge
	ss.state.Challenge = nil
	ss.clearSelection()
	g := &ss.state.Game
	mover := g.Turn
	log := obslog.L().With(zap.String("game", ss.state.ID), zap.String("challenge", ch.ID))
	log.Info("challenge_resolved",
		zap.Bool("correct", correct),
		zap.String("reason", reason),
		zap.String("turn", mover.String()),
	)

	switch {
	case correct:
		if err := g.Apply(ch.From, ch.To); err != nil {
			ss.state.Notice = "Correct, but that move is no longer possible."
			log.Warn("move_rejected", zap.Error(err))
			break
		}
		ss.state.Notice = fmt.Sprintf("Correct! %s moved.", mover.Name())
		log.Info("move_commit",
			zap.String("turn", mover.String()),
			zap.Int("from_row", ch.From.Row), zap.Int("from_col", ch.From.Col),
			zap.Int("to_row", ch.To.Row), zap.Int("to_col", ch.To.Col),
			zap.Int("moves", g.Moves),
		)
	case reason == "timeout":
		_ = g.Skip()
		ss.state.Notice = fmt.Sprintf("Time's up! %s's turn is skipped.", mover.Name())
	default:
		_ = g.Skip()
		ss.state.Notice = fmt.Sprintf("Incorrect! %s's turn is skipped.", mover.Name())
	}

	if g.Over {
		ss.state.Phase = GameOver
		ss.state.Notice = fmt.Sprintf("%s wins!", g.Winner.Name())
		log.Info("game_over", zap.String("winner", g.Winner.String()), zap.Int("moves", g.Moves))
		return
	}
	ss.state.Phase = AwaitingSelection
}

// Undo reverts the last committed move. It is refused while a challenge is
// pending and once the game is over.
func (s *Service) Undo(id string) (*GameState, error) {
	return s.update(id, func(ss *session) error {
		if ss.state.Challenge != nil {
			return ErrChallengePending
		}
		if !ss.state.Game.Undo() {
			return ErrNothingToUndo
		}
		ss.clearSelection()
		ss.state.Phase = AwaitingSelection
		ss.state.Notice = "Move undone."
		return nil
	})
}

// Restart discards the current game, and any pending challenge, for a fresh one.
func (s *Service) Restart(id string) (*GameState, error) {
	return s.update(id, func(ss *session) error {
		ss.stopTimer()
		ss.state.Game = domain.New(s.rules)
		ss.state.Phase = AwaitingSelection
		ss.state.Challenge = nil
		ss.state.Notice = ""
		ss.clearSelection()
		return nil
	})
}

// ready rejects input while a challenge is pending or the game is over.
func (ss *session) ready() error {
	switch ss.state.Phase {
	case GameOver:
		return domain.ErrGameOver
	case AwaitingChallenge:
		return ErrChallengePending
	}
	return nil
}

// update runs fn under the lock. On success the game is touched and the new
// state is broadcast; on failure the unchanged state is returned with the error.
func (s *Service) update(id string, fn func(ss *session) error) (*GameState, error) {
	s.mu.Lock()
	ss, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if err := fn(ss); err != nil {
		cp := ss.snapshot()
		s.mu.Unlock()
		return &cp, err
	}
	ss.state.Updated = s.now()
	cp := ss.snapshot()
	subs := s.copySubsLocked(id)
	payload := s.render(cp)
	s.mu.Unlock()

	s.fanOut(id, subs, payload)
	return &cp, nil
}

// fanOut delivers payload and drops slow subscribers by closing them.
func (s *Service) fanOut(id string, subs map[*subscriber]struct{}, payload []byte) {
	var toDrop []*subscriber
	for sub := range subs {
		if !sub.offer(payload) {
			sub.close()
			toDrop = append(toDrop, sub)
		}
	}
	if len(toDrop) > 0 {
		s.mu.Lock()
		for _, sub := range toDrop {
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
			}
		}
		s.mu.Unlock()
	}
}

// Subscribe registers a subscriber for an existing game. Returns a channel
// and an unsubscribe func.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan []byte, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[id]; !ok {
		return nil, nil, ErrNotFound
	}
	set := s.subs[id]
	if set == nil {
		set = make(map[*subscriber]struct{})
		s.subs[id] = set
	}
	sub := &subscriber{ch: make(chan []byte, 1)}
	set[sub] = struct{}{}

	unsubOnce := &sync.Once{}
	unsub := func() {
		unsubOnce.Do(func() {
			s.mu.Lock()
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
			}
			s.mu.Unlock()
			sub.close()
		})
	}
	go func() {
		<-ctx.Done()
		unsub()
	}()
	return sub.ch, unsub, nil
}

func (s *Service) copySubsLocked(id string) map[*subscriber]struct{} {
	out := make(map[*subscriber]struct{})
	if set, ok := s.subs[id]; ok {
		for k := range set {
			out[k] = struct{}{}
		}
	}
	return out
}

// Reap removes games idle for longer than maxIdle, stopping their timers and
// closing their subscribers. It returns the number of games removed.
func (s *Service) Reap(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)
	var closing []*subscriber
	var reaped []string

	s.mu.Lock()
	for id, ss := range s.games {
		if ss.state.Updated.After(cutoff) {
			continue
		}
		ss.stopTimer()
		delete(s.games, id)
		for sub := range s.subs[id] {
			closing = append(closing, sub)
		}
		delete(s.subs, id)
		reaped = append(reaped, id)
	}
	s.mu.Unlock()

	for _, sub := range closing {
		sub.close()
	}
	for _, id := range reaped {
		obslog.L().Info("session_reaped", zap.String("game", id), zap.Duration("max_idle", maxIdle))
	}
	return len(reaped)
}

// RunReaper calls Reap every interval until ctx is done.
func (s *Service) RunReaper(ctx context.Context, every, maxIdle time.Duration) {
	if every <= 0 || maxIdle <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Reap(maxIdle)
		}
	}
}
