package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

var ErrAPIKeyNotSet = errors.New("OpenAI API key not set")

// OpenAI uses the hosted transcription endpoint.
type OpenAI struct {
	client openai.Client
	model  string
}

func NewOpenAI(apiKey, model string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	if model == "" {
		model = "whisper-1"
	}
	return &OpenAI{client: openai.NewClient(option.WithAPIKey(apiKey)), model: model}, nil
}

func (o *OpenAI) Transcribe(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	res, err := o.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  f,
		Model: openai.AudioModel(o.model),
	})
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}
