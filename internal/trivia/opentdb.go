package trivia

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
)

// DefaultOpenTDBURL is the public Open Trivia DB endpoint.
const DefaultOpenTDBURL = "https://opentdb.com/api.php"

// OpenTDB fetches general-knowledge questions from an Open Trivia DB server.
type OpenTDB struct {
	baseURL  string
	http     *fasthttp.Client
	timeout  time.Duration
	category int

	mu  sync.Mutex
	rng *rand.Rand
}

type OpenTDBOption func(*OpenTDB)

func WithTimeout(d time.Duration) OpenTDBOption {
	return func(c *OpenTDB) { c.timeout = d }
}

func WithCategory(id int) OpenTDBOption {
	return func(c *OpenTDB) { c.category = id }
}

func WithRand(rng *rand.Rand) OpenTDBOption {
	return func(c *OpenTDB) { c.rng = rng }
}

func NewOpenTDB(baseURL string, opts ...OpenTDBOption) *OpenTDB {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultOpenTDBURL
	}
	c := &OpenTDB{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second},
		timeout:  10 * time.Second,
		category: 9,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return c
}

type openTDBResponse struct {
	ResponseCode int `json:"response_code"`
	Results      []struct {
		Question         string   `json:"question"`
		CorrectAnswer    string   `json:"correct_answer"`
		IncorrectAnswers []string `json:"incorrect_answers"`
	} `json:"results"`
}

// Fetch downloads up to amount multiple-choice questions.
func (c *OpenTDB) Fetch(ctx context.Context, amount int) ([]Question, error) {
	if amount <= 0 {
		amount = 30
	}
	q := url.Values{}
	q.Set("amount", strconv.Itoa(amount))
	q.Set("category", strconv.Itoa(c.category))
	q.Set("type", "multiple")
	q.Set("encode", "url3986")

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(c.baseURL + "?" + q.Encode())

	if err := c.http.DoDeadline(req, resp, c.deadline(ctx)); err != nil {
		return nil, fmt.Errorf("opentdb request: %w", err)
	}
	if status := resp.StatusCode(); status != fasthttp.StatusOK {
		return nil, fmt.Errorf("opentdb status %d", status)
	}

	var body openTDBResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("decode opentdb response: %w", err)
	}
	if body.ResponseCode != 0 {
		return nil, fmt.Errorf("opentdb response code %d", body.ResponseCode)
	}

	out := make([]Question, 0, len(body.Results))
	for _, r := range body.Results {
		text, err := url.PathUnescape(r.Question)
		if err != nil {
			return nil, fmt.Errorf("decode question: %w", err)
		}
		correct, err := url.PathUnescape(r.CorrectAnswer)
		if err != nil {
			return nil, fmt.Errorf("decode answer: %w", err)
		}
		answers := make([]string, 0, len(r.IncorrectAnswers)+1)
		for _, a := range r.IncorrectAnswers {
			dec, err := url.PathUnescape(a)
			if err != nil {
				return nil, fmt.Errorf("decode answer: %w", err)
			}
			answers = append(answers, dec)
		}
		out = append(out, c.labelled(text, correct, answers))
	}
	if len(out) == 0 {
		return nil, ErrEmptyBank
	}
	return out, nil
}

// Refill replaces the bank contents with freshly fetched questions. On error
// the bank is left as it was.
func (c *OpenTDB) Refill(ctx context.Context, bank *Bank, amount int) error {
	qs, err := c.Fetch(ctx, amount)
	if err != nil {
		return err
	}
	bank.Replace(qs)
	return nil
}

// labelled inserts the correct answer at a random position and prefixes every
// choice with its letter.
func (c *OpenTDB) labelled(text, correct string, incorrect []string) Question {
	c.mu.Lock()
	pos := c.rng.IntN(len(incorrect) + 1)
	c.mu.Unlock()

	answers := make([]string, 0, len(incorrect)+1)
	answers = append(answers, incorrect[:pos]...)
	answers = append(answers, correct)
	answers = append(answers, incorrect[pos:]...)

	q := Question{Text: text, Choices: make([]string, len(answers))}
	for i, a := range answers {
		letter := string(rune('A' + i))
		q.Choices[i] = letter + ") " + a
		if i == pos {
			q.Answer = letter
		}
	}
	return q
}

func (c *OpenTDB) deadline(ctx context.Context) time.Time {
	own := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(own) {
		return dl
	}
	return own
}
