package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"storybook-server/internal/config"
	"storybook-server/internal/model"
	"storybook-server/pkg/codec"
	"storybook-server/pkg/retry"
)

// AIClient abstracts the generation backend. Illustration and narration
// return (nil, nil) when the backend could not produce the asset after the
// retry budget was spent; the caller decides whether a missing asset stops
// the run or leaves a hole to be filled by a later resume.
type AIClient interface {
	// GenerateScript produces the full page script plus the write-once
	// character descriptions. The result is validated structurally before it
	// is returned.
	GenerateScript(ctx context.Context, params model.StoryParams, pageCount int, predefinedCharacterDescription string) (*model.ScriptResult, error)
	// GenerateIllustration returns raw image bytes. The final prompt sent to
	// the backend is the visual style directive for styleID followed by the
	// scene prompt, so the chosen art style applies to every image of a book.
	GenerateIllustration(ctx context.Context, prompt, styleID, aspectRatio string) ([]byte, error)
	// GenerateNarration returns a playable WAV for the page text.
	GenerateNarration(ctx context.Context, text string, voice model.VoiceType) ([]byte, error)
	// AnalyzePhoto returns a physical description of the child in the photo
	// for use as a predefined main character look.
	AnalyzePhoto(ctx context.Context, imageData []byte, mimeType string) (string, error)
}

type aiClient struct {
	chat         *openai.Client
	httpClient   *http.Client
	logger       *zap.Logger
	apiKey       string
	mediaBaseURL string
	textModel    string
	imageModel   string
	ttsModel     string
}

// NewAIClient builds the production client. Text operations go through the
// OpenAI-compatible chat endpoint; image and speech go through the media
// endpoints of the same backend.
func NewAIClient(cfg *config.Config, logger *zap.Logger) AIClient {
	chatCfg := openai.DefaultConfig(cfg.AIAPIKey)
	chatCfg.BaseURL = cfg.AIBaseURL
	chatCfg.HTTPClient = &http.Client{Timeout: cfg.AITimeout}

	return &aiClient{
		chat:         openai.NewClientWithConfig(chatCfg),
		httpClient:   &http.Client{Timeout: cfg.AITimeout},
		logger:       logger.Named("AIClient"),
		apiKey:       cfg.AIAPIKey,
		mediaBaseURL: strings.TrimRight(cfg.AIMediaBaseURL, "/"),
		textModel:    cfg.AITextModel,
		imageModel:   cfg.AIImageModel,
		ttsModel:     cfg.AITTSModel,
	}
}

// classifyHTTPStatus maps a backend status code onto a retry kind.
func classifyHTTPStatus(status int) retry.Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return retry.KindPermission
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return retry.KindInvalidInput
	case status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= 500:
		return retry.KindTransient
	default:
		return retry.KindUnknown
	}
}

// classifyTransportErr wraps a transport-level failure. Timeouts and broken
// connections are transient; everything else stays unclassified.
func classifyTransportErr(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, context.DeadlineExceeded) {
		return retry.Transient(err)
	}
	return err
}

// classifyAPIErr converts a go-openai error into a kinded error.
func classifyAPIErr(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retry.Classify(classifyHTTPStatus(apiErr.HTTPStatusCode), err)
	}
	return classifyTransportErr(err)
}

// stripJSONFence removes a surrounding markdown code fence which some models
// add around JSON output despite the response format hint.
func stripJSONFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func (c *aiClient) GenerateScript(ctx context.Context, params model.StoryParams, pageCount int, predefinedCharacterDescription string) (*model.ScriptResult, error) {
	prompt := buildScriptPrompt(params, pageCount, predefinedCharacterDescription)

	start := time.Now()
	result, err := retry.DoValue(ctx, retry.Generation, func(ctx context.Context) (*model.ScriptResult, error) {
		resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.textModel,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			return nil, classifyAPIErr(err)
		}
		if len(resp.Choices) == 0 {
			return nil, retry.Transient(fmt.Errorf("%w: empty choices", model.ErrScriptGeneration))
		}

		var script model.ScriptResult
		raw := stripJSONFence(resp.Choices[0].Message.Content)
		if err := json.Unmarshal([]byte(raw), &script); err != nil {
			// Malformed JSON from the model is worth another attempt.
			return nil, retry.Transient(fmt.Errorf("%w: %v", model.ErrScriptGeneration, err))
		}
		if err := validateScript(&script, params, pageCount); err != nil {
			return nil, retry.Transient(err)
		}
		return &script, nil
	})
	aiRequestDuration.WithLabelValues("script").Observe(time.Since(start).Seconds())
	aiRequestsTotal.WithLabelValues("script", outcomeLabel(err)).Inc()

	if err != nil {
		c.logger.Error("Script generation failed", zap.Error(err))
		return nil, err
	}
	return result, nil
}

// validateScript checks the structural contract of a script payload. A
// payload failing any check is unusable for asset generation, so the whole
// call is treated as failed.
func validateScript(script *model.ScriptResult, params model.StoryParams, pageCount int) error {
	if strings.TrimSpace(script.Title) == "" {
		return fmt.Errorf("%w: missing title", model.ErrScriptGeneration)
	}
	if strings.TrimSpace(script.CharacterVisualDescription) == "" {
		return fmt.Errorf("%w: missing character visual description", model.ErrScriptGeneration)
	}
	if params.HasSideCharacter() && strings.TrimSpace(script.SideCharacterVisualDescription) == "" {
		return fmt.Errorf("%w: missing side character visual description", model.ErrScriptGeneration)
	}
	if !params.HasSideCharacter() {
		// Normalize: no side character means no description, whatever the
		// model returned.
		script.SideCharacterVisualDescription = ""
	}
	if len(script.Pages) != pageCount {
		return fmt.Errorf("%w: expected %d pages, got %d", model.ErrScriptGeneration, pageCount, len(script.Pages))
	}
	for i := range script.Pages {
		page := &script.Pages[i]
		if strings.TrimSpace(page.Text) == "" || strings.TrimSpace(page.ImagePrompt) == "" {
			return fmt.Errorf("%w: page %d has empty text or image prompt", model.ErrScriptGeneration, i+1)
		}
		page.PageNumber = i + 1
	}
	return nil
}

// mediaRequest is the JSON body shared by the image and speech endpoints.
type mediaRequest struct {
	Model       string `json:"model"`
	Prompt      string `json:"prompt"`
	Voice       string `json:"voice,omitempty"`
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type mediaResponse struct {
	Data string `json:"data"` // base64 payload
}

// postMedia performs one media-endpoint call and decodes the base64 payload.
func (c *aiClient) postMedia(ctx context.Context, path string, reqBody mediaRequest) ([]byte, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.mediaBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("media endpoint %s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
		return nil, retry.Classify(classifyHTTPStatus(resp.StatusCode), err)
	}

	var payload mediaResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, retry.Transient(fmt.Errorf("media endpoint %s returned unparseable body: %w", path, err))
	}
	if payload.Data == "" {
		return nil, retry.Transient(fmt.Errorf("media endpoint %s returned empty payload", path))
	}
	return codec.DecodeBase64(payload.Data)
}

func (c *aiClient) GenerateIllustration(ctx context.Context, prompt, styleID, aspectRatio string) ([]byte, error) {
	enhanced := styleDirective(styleID) + " " + prompt

	start := time.Now()
	data, err := retry.DoValue(ctx, retry.Generation, func(ctx context.Context) ([]byte, error) {
		return c.postMedia(ctx, "/images:generate", mediaRequest{Model: c.imageModel, Prompt: enhanced, AspectRatio: aspectRatio})
	})
	aiRequestDuration.WithLabelValues("illustration").Observe(time.Since(start).Seconds())
	aiRequestsTotal.WithLabelValues("illustration", outcomeLabel(err)).Inc()

	if err != nil {
		if retry.KindOf(err) == retry.KindPermission {
			// Permission failures will not heal on resume; surface them.
			return nil, err
		}
		c.logger.Warn("Illustration generation gave up, leaving page without image", zap.Error(err))
		return nil, nil
	}
	return data, nil
}

func (c *aiClient) GenerateNarration(ctx context.Context, text string, voice model.VoiceType) ([]byte, error) {
	start := time.Now()
	pcm, err := retry.DoValue(ctx, retry.Generation, func(ctx context.Context) ([]byte, error) {
		return c.postMedia(ctx, "/speech:generate", mediaRequest{
			Model:  c.ttsModel,
			Prompt: tonalPrefix(voice) + text,
			Voice:  voiceName(voice),
		})
	})
	aiRequestDuration.WithLabelValues("narration").Observe(time.Since(start).Seconds())
	aiRequestsTotal.WithLabelValues("narration", outcomeLabel(err)).Inc()

	if err != nil {
		if retry.KindOf(err) == retry.KindPermission {
			return nil, err
		}
		c.logger.Warn("Narration generation gave up", zap.Error(err))
		return nil, nil
	}
	// The speech endpoint returns raw PCM16; wrap it so clients can play the
	// file without extra tooling.
	return codec.PCM16ToWAV(pcm, codec.DefaultSampleRate, codec.DefaultChannels), nil
}

func (c *aiClient) AnalyzePhoto(ctx context.Context, imageData []byte, mimeType string) (string, error) {
	dataURI := fmt.Sprintf("data:%s;base64,%s", mimeType, codec.EncodeBase64(imageData))

	start := time.Now()
	description, err := retry.DoValue(ctx, retry.Generation, func(ctx context.Context) (string, error) {
		resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.textModel,
			Messages: []openai.ChatCompletionMessage{
				{
					Role: openai.ChatMessageRoleUser,
					MultiContent: []openai.ChatMessagePart{
						{Type: openai.ChatMessagePartTypeText, Text: photoAnalysisPrompt},
						{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURI}},
					},
				},
			},
		})
		if err != nil {
			return "", classifyAPIErr(err)
		}
		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			return "", retry.Transient(errors.New("photo analysis returned empty description"))
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	})
	aiRequestDuration.WithLabelValues("photo_analysis").Observe(time.Since(start).Seconds())
	aiRequestsTotal.WithLabelValues("photo_analysis", outcomeLabel(err)).Inc()

	if err != nil {
		c.logger.Error("Photo analysis failed", zap.Error(err))
		return "", err
	}
	return description, nil
}
