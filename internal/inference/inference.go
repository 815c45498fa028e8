// Package inference extracts topic labels from content and generates channel
// search queries using a text-generation service.
package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gobreaker "github.com/sony/gobreaker/v2"

	"thirdcoast.systems/scout/internal/resilience"
	"thirdcoast.systems/scout/internal/topics"
)

// MaxTopics caps the labels kept from one inference.
const MaxTopics = 8

// Input is the text available for one item. Any field may be empty.
type Input struct {
	Transcript  string
	Title       string
	Description string
	Platform    string
}

type Client struct {
	complete CompleteFunc
	breaker  *gobreaker.CircuitBreaker[string]
	budget   *TokenBudget
}

func New(complete CompleteFunc, budget *TokenBudget) *Client {
	if budget == nil {
		budget = &TokenBudget{}
	}
	return &Client{
		complete: complete,
		breaker:  resilience.NewBreaker[string](resilience.DefaultBreakerConfig("inference")),
		budget:   budget,
	}
}

const topicSystemPrompt = `You label short-form and long-form creator content with topics.
Reply with JSON: {"topics": ["..."]}. List at most 8 topics, most specific and most relevant first.
Topics are short lowercase noun phrases (1-3 words). Do not include the platform name or the creator's name.`

// Infer returns normalized topic labels in the order the service ranked them.
// An empty result is not an error.
func (c *Client) Infer(ctx context.Context, in Input) ([]string, error) {
	if strings.TrimSpace(in.Transcript+in.Title+in.Description) == "" {
		return nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Platform: %s\n", in.Platform)
	fmt.Fprintf(&b, "Title: %s\n", in.Title)
	if in.Description != "" {
		fmt.Fprintf(&b, "Description:\n%s\n", in.Description)
	}
	if in.Transcript != "" {
		fmt.Fprintf(&b, "Transcript:\n%s\n", c.budget.Truncate(in.Transcript))
	}

	var reply struct {
		Topics []string `json:"topics"`
	}
	if err := c.call(ctx, topicSystemPrompt, b.String(), &reply); err != nil {
		return nil, err
	}

	labels := topics.NormalizeAll(reply.Topics)
	if len(labels) > MaxTopics {
		labels = labels[:MaxTopics]
	}
	return labels, nil
}

const querySystemPrompt = `You help find creator channels about a topic.
Reply with JSON: {"queries": ["..."]}. Each query is a short search phrase a viewer would type
to find channels that regularly publish about the topic.`

// GenerateQueries returns up to n distinct search phrases for topic.
func (c *Client) GenerateQueries(ctx context.Context, topic string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	prompt := fmt.Sprintf("Topic: %s\nNumber of queries: %d", topic, n)

	var reply struct {
		Queries []string `json:"queries"`
	}
	if err := c.call(ctx, querySystemPrompt, prompt, &reply); err != nil {
		return nil, err
	}

	out := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	for _, q := range reply.Queries {
		q = strings.Join(strings.Fields(q), " ")
		key := strings.ToLower(q)
		if q == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, q)
		if len(out) == n {
			break
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no search queries generated")
	}
	return out, nil
}

func (c *Client) call(ctx context.Context, system, prompt string, v any) error {
	content, err := c.breaker.Execute(func() (string, error) {
		return c.complete(ctx, system, prompt)
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(content), v); err != nil {
		return fmt.Errorf("decode inference reply: %w", err)
	}
	return nil
}
