// Package tts turns narration text into audio files. Two engines: the OpenAI
// speech API when a key is configured, and a local synthesizer (say on macOS,
// espeak-ng elsewhere) as the zero-credential fallback.
package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/demoreel/demoreel/internal/config"
	"github.com/demoreel/demoreel/internal/probe"
)

// Engine names accepted in requests. Empty means auto-select.
const (
	EngineOpenAI = "openai"
	EngineLocal  = "local"
)

// Sentinel errors for synthesis failures.
var (
	// ErrEmptyText means there is nothing to synthesize.
	ErrEmptyText = errors.New("empty narration text")
	// ErrNoAPIKey means the OpenAI engine was requested without a key.
	ErrNoAPIKey = errors.New("openai engine requires an API key")
	// ErrUnknownEngine means the requested engine name is not recognized.
	ErrUnknownEngine = errors.New("unknown tts engine")
	// ErrEngineMissing means no local synthesizer binary is installed.
	ErrEngineMissing = errors.New("no local tts engine available")
)

// Result describes a synthesized narration file.
type Result struct {
	OutputPath string
	Engine     string
	Voice      string
	Duration   float64
	SizeBytes  int64
}

// Synthesize renders text to outputPath using the requested engine, or the
// best available one when engine is empty. voice overrides the configured
// voice and only applies to the OpenAI engine.
func Synthesize(ctx context.Context, cfg *config.Config, text, outputPath, voice, engine string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyText
	}
	if voice == "" {
		voice = cfg.TTSVoice
	}

	selected, err := SelectEngine(engine, cfg.OpenAIKey)
	if err != nil {
		return Result{}, err
	}

	switch selected {
	case EngineOpenAI:
		err = synthesizeOpenAI(ctx, cfg.OpenAIKey, text, voice, outputPath)
	case EngineLocal:
		err = synthesizeLocal(ctx, text, outputPath, cfg.Verbose)
		voice = "" // Local engines use their own default voice.
	}
	if err != nil {
		return Result{}, err
	}

	info, err := probe.Probe(ctx, outputPath)
	if err != nil {
		return Result{}, fmt.Errorf("synthesized audio unreadable: %w", err)
	}
	return Result{
		OutputPath: outputPath,
		Engine:     selected,
		Voice:      voice,
		Duration:   info.Duration,
		SizeBytes:  info.SizeBytes,
	}, nil
}

// SelectEngine resolves the engine choice. An explicit openai request
// without a key is an error rather than a silent downgrade; auto falls back
// to local. Exported for testing.
func SelectEngine(requested, apiKey string) (string, error) {
	switch requested {
	case EngineOpenAI:
		if apiKey == "" {
			return "", ErrNoAPIKey
		}
		return EngineOpenAI, nil
	case EngineLocal:
		return EngineLocal, nil
	case "":
		if apiKey != "" {
			return EngineOpenAI, nil
		}
		return EngineLocal, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEngine, requested)
	}
}
