package inference

import (
	"log/slog"

	"github.com/pkoukk/tiktoken-go"
)

// TokenBudget truncates text to a token budget. Without an encoding it falls
// back to a rough estimate of three runes per token.
type TokenBudget struct {
	encoding *tiktoken.Tiktoken
	max      int
}

// NewTokenBudget uses the cl100k_base encoding when it can be loaded.
func NewTokenBudget(max int) *TokenBudget {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		slog.Warn("tiktoken encoding unavailable, estimating tokens", "error", err)
		encoding = nil
	}
	return &TokenBudget{encoding: encoding, max: max}
}

func (b *TokenBudget) Count(text string) int {
	if b.encoding == nil {
		return len([]rune(text)) / 3
	}
	return len(b.encoding.Encode(text, nil, nil))
}

// Truncate returns text cut to at most the budget.
func (b *TokenBudget) Truncate(text string) string {
	if b.max <= 0 {
		return text
	}
	if b.encoding == nil {
		rs := []rune(text)
		if limit := b.max * 3; len(rs) > limit {
			return string(rs[:limit])
		}
		return text
	}
	tokens := b.encoding.Encode(text, nil, nil)
	if len(tokens) <= b.max {
		return text
	}
	return b.encoding.Decode(tokens[:b.max])
}
