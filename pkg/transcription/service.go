// Package transcription turns recordings into transcripts by calling a
// Whisper-compatible speech-to-text API.
package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	pferrors "github.com/otherjamesbrown/meeting-insights/pkg/errors"
	"github.com/otherjamesbrown/meeting-insights/pkg/logging"
	"github.com/otherjamesbrown/meeting-insights/pkg/transcript"
)

// Config points the service at a Whisper-compatible endpoint.
type Config struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key,omitempty"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Service transcribes audio over HTTP. It satisfies the pipeline's
// Transcriber interface.
type Service struct {
	cfg    Config
	client *http.Client
	logger logging.Logger
}

// NewService builds a transcription service.
func NewService(cfg Config, logger logging.Logger) *Service {
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Service{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.With(logging.F("component", "transcription")),
	}
}

// verbose_json response shape of /v1/audio/transcriptions.
type apiResponse struct {
	Text     string `json:"text"`
	Segments []struct {
		Start   float64 `json:"start"`
		End     float64 `json:"end"`
		Text    string  `json:"text"`
		Speaker string  `json:"speaker"`
	} `json:"segments"`
}

// Transcribe uploads the recording and parses the segment-level response.
// Progress lands in three sub-stages: upload, remote transcription, parsing.
func (s *Service) Transcribe(ctx context.Context, audioPath string, progress func(pct float64, stage string)) (*transcript.Transcript, error) {
	notify := func(pct float64, stage string) {
		if progress != nil {
			progress(pct, stage)
		}
	}

	notify(10, "Uploading audio")
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, pferrors.NewPipelineError(pferrors.ErrUpstreamDependency, "transcription",
			fmt.Sprintf("open recording %s", audioPath), err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		part, err := form.CreateFormFile("file", filepath.Base(audioPath))
		if err == nil {
			_, err = io.Copy(part, file)
		}
		if err == nil {
			err = form.WriteField("model", s.cfg.Model)
		}
		if err == nil {
			err = form.WriteField("response_format", "verbose_json")
		}
		if err == nil {
			err = form.Close()
		}
		pw.CloseWithError(err)
	}()

	url := strings.TrimSuffix(s.cfg.Endpoint, "/") + "/v1/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	notify(30, "Transcribing audio")
	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, pferrors.NewPipelineError(pferrors.ErrUpstreamDependency, "transcription",
			"transcription request failed", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, pferrors.NewPipelineError(pferrors.ErrUpstreamDependency, "transcription",
			fmt.Sprintf("transcription API returned HTTP %d: %s", resp.StatusCode, preview(body)), nil)
	}

	notify(80, "Parsing transcript")
	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, pferrors.NewPipelineError(pferrors.ErrMalformedResponse, "transcription",
			"decode transcription response", err)
	}

	result := &transcript.Transcript{
		Text:  strings.TrimSpace(parsed.Text),
		Model: s.cfg.Model,
	}
	for _, seg := range parsed.Segments {
		result.Segments = append(result.Segments, transcript.Segment{
			Text:    strings.TrimSpace(seg.Text),
			Start:   seg.Start,
			End:     seg.End,
			Speaker: seg.Speaker,
		})
	}

	notify(100, "Transcription complete")
	s.logger.Info("transcription complete",
		logging.F("segments", len(result.Segments)),
		logging.F("duration", time.Since(start)))
	return result, nil
}

func preview(body []byte) string {
	const n = 200
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}
