package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storybook-server/internal/config"
	"storybook-server/internal/model"
	"storybook-server/pkg/retry"
)

func validScript(pageCount int) *model.ScriptResult {
	pages := make([]model.StoryPage, pageCount)
	for i := range pages {
		pages[i] = model.StoryPage{
			Text:        fmt.Sprintf("Once upon a time, page %d.", i+1),
			ImagePrompt: fmt.Sprintf("scene %d", i+1),
		}
	}
	return &model.ScriptResult{
		Title:                          "The Brave Fox",
		CharacterVisualDescription:     "A small orange fox in a red scarf",
		SideCharacterVisualDescription: "A grey owl with round glasses",
		Pages:                          pages,
	}
}

func TestValidateScript(t *testing.T) {
	withSide := model.StoryParams{SideCharacterID: "sc_owl"}
	noSide := model.StoryParams{SideCharacterID: model.SideCharacterNone}

	t.Run("valid script passes and pages get renumbered", func(t *testing.T) {
		script := validScript(model.PageCount)
		require.NoError(t, validateScript(script, withSide, model.PageCount))
		for i, p := range script.Pages {
			assert.Equal(t, i+1, p.PageNumber)
		}
	})

	t.Run("wrong page count fails", func(t *testing.T) {
		script := validScript(model.PageCount - 1)
		err := validateScript(script, withSide, model.PageCount)
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrScriptGeneration)
	})

	t.Run("empty page text fails", func(t *testing.T) {
		script := validScript(model.PageCount)
		script.Pages[7].Text = "   "
		assert.ErrorIs(t, validateScript(script, withSide, model.PageCount), model.ErrScriptGeneration)
	})

	t.Run("empty image prompt fails", func(t *testing.T) {
		script := validScript(model.PageCount)
		script.Pages[0].ImagePrompt = ""
		assert.ErrorIs(t, validateScript(script, withSide, model.PageCount), model.ErrScriptGeneration)
	})

	t.Run("missing title fails", func(t *testing.T) {
		script := validScript(model.PageCount)
		script.Title = ""
		assert.ErrorIs(t, validateScript(script, withSide, model.PageCount), model.ErrScriptGeneration)
	})

	t.Run("missing side description fails when a side character exists", func(t *testing.T) {
		script := validScript(model.PageCount)
		script.SideCharacterVisualDescription = ""
		assert.ErrorIs(t, validateScript(script, withSide, model.PageCount), model.ErrScriptGeneration)
	})

	t.Run("stray side description is cleared when no side character", func(t *testing.T) {
		script := validScript(model.PageCount)
		require.NoError(t, validateScript(script, noSide, model.PageCount))
		assert.Empty(t, script.SideCharacterVisualDescription)
	})
}

func TestStripJSONFence(t *testing.T) {
	payload := `{"title":"x"}`

	assert.Equal(t, payload, stripJSONFence(payload))
	assert.Equal(t, payload, stripJSONFence("```json\n"+payload+"\n```"))
	assert.Equal(t, payload, stripJSONFence("```\n"+payload+"\n```"))
	assert.Equal(t, payload, stripJSONFence("  "+payload+"  "))
}

func TestGenerateIllustration_AppliesStyleDirective(t *testing.T) {
	var prompts, ratios []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/images:generate", r.URL.Path)
		var req struct {
			Prompt      string `json:"prompt"`
			AspectRatio string `json:"aspectRatio"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		prompts = append(prompts, req.Prompt)
		ratios = append(ratios, req.AspectRatio)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"data":%q}`, base64.StdEncoding.EncodeToString([]byte("png-bytes")))
	}))
	defer srv.Close()

	client := NewAIClient(&config.Config{
		AIAPIKey:       "key",
		AIBaseURL:      srv.URL,
		AIMediaBaseURL: srv.URL,
		AIImageModel:   "img-model",
		AITimeout:      5 * time.Second,
	}, zap.NewNop())

	t.Run("known style id prefixes its directive", func(t *testing.T) {
		data, err := client.GenerateIllustration(context.Background(),
			"Main Character: a fox. Scene: a fox by a stream.", "style_watercolor", AspectSquare)
		require.NoError(t, err)
		assert.Equal(t, []byte("png-bytes"), data)

		require.NotEmpty(t, prompts)
		sent := prompts[len(prompts)-1]
		assert.True(t, strings.HasPrefix(sent, visualStyles["style_watercolor"]), "got prompt %q", sent)
		assert.Contains(t, sent, "Scene: a fox by a stream.")
		assert.Equal(t, AspectSquare, ratios[len(ratios)-1])
	})

	t.Run("unknown style id falls back to the generic directive", func(t *testing.T) {
		_, err := client.GenerateIllustration(context.Background(), "Scene: a hill.", "style_vaporwave", AspectSquare)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(prompts[len(prompts)-1], fallbackStyleDirective))
	})
}

func TestClassifyHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		want   retry.Kind
	}{
		{401, retry.KindPermission},
		{403, retry.KindPermission},
		{400, retry.KindInvalidInput},
		{422, retry.KindInvalidInput},
		{408, retry.KindTransient},
		{429, retry.KindTransient},
		{500, retry.KindTransient},
		{503, retry.KindTransient},
		{404, retry.KindUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyHTTPStatus(tt.status), "status %d", tt.status)
	}
}
