// Package trivia supplies the questions that gate every move.
package trivia

import (
	"errors"
	"strings"
)

// Question is a multiple-choice prompt. Answer holds the key of the correct
// choice (see Key).
type Question struct {
	Text    string   `yaml:"question" json:"question"`
	Choices []string `yaml:"choices" json:"choices"`
	Answer  string   `yaml:"answer" json:"-"`
}

var (
	ErrEmptyBank       = errors.New("question bank is empty")
	ErrInvalidQuestion = errors.New("invalid question")
)

// Key returns the letter of an "A) ..." style choice, or the trimmed choice
// text for anything else ("True", "False").
func Key(choice string) string {
	s := strings.TrimSpace(choice)
	if len(s) >= 2 && s[1] == ')' && s[0] >= 'A' && s[0] <= 'Z' {
		return s[:1]
	}
	return s
}

// Correct reports whether choice index i is the right answer. Out of range
// indexes are wrong answers.
func (q Question) Correct(i int) bool {
	if i < 0 || i >= len(q.Choices) {
		return false
	}
	return strings.EqualFold(Key(q.Choices[i]), strings.TrimSpace(q.Answer))
}

// Validate checks that the question can be asked and answered.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" || len(q.Choices) < 2 {
		return ErrInvalidQuestion
	}
	for i := range q.Choices {
		if q.Correct(i) {
			return nil
		}
	}
	return ErrInvalidQuestion
}
