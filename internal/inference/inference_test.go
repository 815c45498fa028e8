package inference

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func fixed(reply string, err error, gotPrompt *string) CompleteFunc {
	return func(ctx context.Context, system, prompt string) (string, error) {
		if gotPrompt != nil {
			*gotPrompt = prompt
		}
		return reply, err
	}
}

func TestInfer_NormalizesAndCaps(t *testing.T) {
	var prompt string
	c := New(fixed(`{"topics":["Street Food","street food","  #Travel ","a","b","c","d","e","f","g","h"]}`, nil, &prompt), nil)

	got, err := c.Infer(context.Background(), Input{Title: "Bangkok night market", Transcript: "so much food", Platform: "youtube"})
	require.NoError(t, err)
	require.Len(t, got, MaxTopics)
	require.Equal(t, []string{"street food", "travel", "a"}, got[:3])
	require.Contains(t, prompt, "Bangkok night market")
	require.Contains(t, prompt, "so much food")
}

func TestInfer_EmptyInputSkipsService(t *testing.T) {
	called := false
	c := New(func(ctx context.Context, system, prompt string) (string, error) {
		called = true
		return "", nil
	}, nil)

	got, err := c.Infer(context.Background(), Input{})
	require.NoError(t, err)
	require.Nil(t, got)
	require.False(t, called)
}

func TestInfer_ServiceError(t *testing.T) {
	c := New(fixed("", errors.New("unavailable"), nil), nil)
	_, err := c.Infer(context.Background(), Input{Title: "x"})
	require.Error(t, err)
}

func TestInfer_BadJSON(t *testing.T) {
	c := New(fixed("not json", nil, nil), nil)
	_, err := c.Infer(context.Background(), Input{Title: "x"})
	require.ErrorContains(t, err, "decode inference reply")
}

func TestGenerateQueries_DedupesAndLimits(t *testing.T) {
	c := New(fixed(`{"queries":["vegan  baking","Vegan baking","plant based desserts","egg free cakes","extra"]}`, nil, nil), nil)

	got, err := c.GenerateQueries(context.Background(), "vegan baking", 3)
	require.NoError(t, err)
	require.Equal(t, []string{"vegan baking", "plant based desserts", "egg free cakes"}, got)
}

func TestGenerateQueries_NoneIsError(t *testing.T) {
	c := New(fixed(`{"queries":[]}`, nil, nil), nil)
	_, err := c.GenerateQueries(context.Background(), "x", 3)
	require.Error(t, err)
}

func TestTokenBudget_FallbackTruncates(t *testing.T) {
	b := &TokenBudget{max: 2}
	require.Equal(t, "abcdef", b.Truncate(strings.Repeat("abcdef", 3)))
	require.Equal(t, "abc", b.Truncate("abc"))
	require.Equal(t, 2, b.Count("abcdef"))
}
