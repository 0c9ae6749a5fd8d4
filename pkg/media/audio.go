package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dukex/newscast/pkg/tts"
)

const audioRequestTimeout = 30 * time.Second

// AudioGenerator talks to a synchronous text-to-speech HTTP API. The
// provider streams audio bytes back; the generated file is published
// under the configured CDN base and the broadcast ID.
type AudioGenerator struct {
	baseURL string
	apiKey  string
	cdnBase string
	client  *http.Client
}

// NewAudioGenerator creates an audio generator against baseURL.
func NewAudioGenerator(baseURL, apiKey, cdnBase string) *AudioGenerator {
	return &AudioGenerator{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		cdnBase: strings.TrimSuffix(cdnBase, "/"),
		client:  &http.Client{Timeout: audioRequestTimeout},
	}
}

type audioRequestBody struct {
	Text          string             `json:"text"`
	ModelID       string             `json:"model_id"`
	VoiceSettings audioVoiceSettings `json:"voice_settings"`
}

type audioVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed,omitempty"`
}

// Generate renders the request text to speech. The call blocks until
// the provider answers; the result carries the final audio URL and the
// estimated narration duration.
func (g *AudioGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.Kind != KindAudio {
		return nil, fmt.Errorf("audio generator cannot produce %s", req.Kind)
	}

	body, err := json.Marshal(audioRequestBody{
		Text:    req.Text,
		ModelID: "eleven_multilingual_v2",
		VoiceSettings: audioVoiceSettings{
			Stability:       req.Voice.Stability,
			SimilarityBoost: req.Voice.Clarity,
			Speed:           req.Voice.Speed,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audio request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", g.baseURL, req.Voice.VoiceID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build audio request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("audio provider request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return nil, fmt.Errorf("audio provider returned status %d: %s", resp.StatusCode, string(detail))
	}

	// Drain the audio stream; the upload pipeline owns the bytes, the
	// caller only needs the published URL.
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return nil, fmt.Errorf("failed to read audio response: %w", err)
	}

	return &Result{
		AudioURL: fmt.Sprintf("%s/audio/%s.mp3", g.cdnBase, req.BroadcastID),
		Duration: tts.EstimateDuration(req.Text, tts.DefaultWordsPerMinute),
	}, nil
}
