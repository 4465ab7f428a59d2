package tts

import (
	"context"
	"errors"
	"testing"

	"github.com/demoreel/demoreel/internal/config"
)

func TestSelectEngine(t *testing.T) {
	tests := []struct {
		name      string
		requested string
		apiKey    string
		want      string
		wantErr   error
	}{
		{"auto with key picks openai", "", "sk-test", EngineOpenAI, nil},
		{"auto without key picks local", "", "", EngineLocal, nil},
		{"explicit openai with key", EngineOpenAI, "sk-test", EngineOpenAI, nil},
		{"explicit openai without key fails", EngineOpenAI, "", "", ErrNoAPIKey},
		{"explicit local ignores key", EngineLocal, "sk-test", EngineLocal, nil},
		{"unknown engine", "festival", "", "", ErrUnknownEngine},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectEngine(tt.requested, tt.apiKey)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("SelectEngine() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("SelectEngine() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("SelectEngine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSynthesize_EmptyText(t *testing.T) {
	cfg := config.Default()
	tests := []string{"", "   ", "\n\t"}
	for _, text := range tests {
		_, err := Synthesize(context.Background(), cfg, text, "/tmp/out.mp3", "", "")
		if !errors.Is(err, ErrEmptyText) {
			t.Errorf("Synthesize(%q) error = %v, want ErrEmptyText", text, err)
		}
	}
}

func TestSynthesize_OpenAIWithoutKey(t *testing.T) {
	cfg := config.Default()
	cfg.OpenAIKey = ""
	_, err := Synthesize(context.Background(), cfg, "hello", "/tmp/out.mp3", "", EngineOpenAI)
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Synthesize() error = %v, want ErrNoAPIKey", err)
	}
}
