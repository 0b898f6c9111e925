package trivia

import (
	"embed"
	"fmt"
	"math/rand/v2"
	"os"
	"sync"

	yaml "gopkg.in/yaml.v3"
)

//go:embed questions.yaml
var defaultFiles embed.FS

type bankFile struct {
	Questions []Question `yaml:"questions"`
}

// Bank hands out random questions. It is safe for concurrent use.
type Bank struct {
	mu        sync.Mutex
	questions []Question
	rng       *rand.Rand
}

// NewBank returns a bank holding qs. A nil rng uses a randomly seeded source.
func NewBank(qs []Question, rng *rand.Rand) *Bank {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Bank{questions: append([]Question(nil), qs...), rng: rng}
}

// LoadEmbedded returns a bank with the built-in questions.
func LoadEmbedded() (*Bank, error) {
	raw, err := defaultFiles.ReadFile("questions.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded questions: %w", err)
	}
	qs, err := ParseYAML(raw)
	if err != nil {
		return nil, fmt.Errorf("parse embedded questions: %w", err)
	}
	return NewBank(qs, nil), nil
}

// LoadFile returns a bank read from a YAML file in the embedded format.
func LoadFile(path string) (*Bank, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	qs, err := ParseYAML(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return NewBank(qs, nil), nil
}

// ParseYAML decodes and validates a question list.
func ParseYAML(raw []byte) ([]Question, error) {
	var f bankFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	if len(f.Questions) == 0 {
		return nil, ErrEmptyBank
	}
	for i, q := range f.Questions {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("question %d (%q): %w", i+1, q.Text, err)
		}
	}
	return f.Questions, nil
}

// Next returns a random question.
func (b *Bank) Next() (Question, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.questions) == 0 {
		return Question{}, ErrEmptyBank
	}
	q := b.questions[b.rng.IntN(len(b.questions))]
	q.Choices = append([]string(nil), q.Choices...)
	return q, nil
}

// Replace swaps the bank contents. An empty list is ignored.
func (b *Bank) Replace(qs []Question) {
	if len(qs) == 0 {
		return
	}
	b.mu.Lock()
	b.questions = append([]Question(nil), qs...)
	b.mu.Unlock()
}

func (b *Bank) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.questions)
}
