package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	openAISpeechURL = "https://api.openai.com/v1/audio/speech"
	openAIModel     = "tts-1-hd"
)

// Long narrations take a while to render server-side.
var openAIClient = &http.Client{Timeout: 120 * time.Second}

type speechRequest struct {
	Model string `json:"model"`
	Voice string `json:"voice"`
	Input string `json:"input"`
}

// synthesizeOpenAI posts the text to the speech endpoint and streams the
// returned audio straight to outputPath.
func synthesizeOpenAI(ctx context.Context, apiKey, text, voice, outputPath string) error {
	body, err := json.Marshal(speechRequest{
		Model: openAIModel,
		Voice: voice,
		Input: text,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openAISpeechURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := openAIClient.Do(req)
	if err != nil {
		return fmt.Errorf("openai speech request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("openai speech: status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(outputPath)
		return fmt.Errorf("write synthesized audio: %w", err)
	}
	return f.Close()
}
