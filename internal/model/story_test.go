package model_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storybook-server/internal/model"
)

func makePages(n int) []model.StoryPage {
	pages := make([]model.StoryPage, n)
	for i := range pages {
		pages[i] = model.StoryPage{
			PageNumber:  i + 1,
			Text:        fmt.Sprintf("page %d text", i+1),
			ImagePrompt: fmt.Sprintf("page %d scene", i+1),
		}
	}
	return pages
}

func TestResumeCursor(t *testing.T) {
	story := &model.Story{Pages: makePages(model.PageCount)}

	assert.Equal(t, 0, story.ResumeCursor(), "fresh story resumes at the first page")

	story.Pages[0].ImageURL = "https://cdn/img0.jpg"
	story.Pages[1].ImageURL = "https://cdn/img1.jpg"
	assert.Equal(t, 2, story.ResumeCursor())

	for i := range story.Pages {
		story.Pages[i].ImageURL = fmt.Sprintf("https://cdn/img%d.jpg", i)
	}
	assert.Equal(t, len(story.Pages), story.ResumeCursor(), "fully illustrated story has nothing to resume")
}

// The cursor must always point at the first page without an image, whatever
// subset of pages happens to carry one.
func TestResumeCursor_Randomized(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		story := &model.Story{Pages: makePages(model.PageCount)}
		for i := range story.Pages {
			if rng.Intn(2) == 0 {
				story.Pages[i].ImageURL = fmt.Sprintf("https://cdn/img%d.jpg", i)
			}
		}

		want := len(story.Pages)
		for i, p := range story.Pages {
			if p.ImageURL == "" {
				want = i
				break
			}
		}
		require.Equal(t, want, story.ResumeCursor(), "trial %d", trial)
	}
}

func TestAssetsComplete(t *testing.T) {
	story := &model.Story{Pages: makePages(3)}
	assert.False(t, story.AssetsComplete())

	for i := range story.Pages {
		story.Pages[i].ImageURL = "https://cdn/img.jpg"
	}
	assert.True(t, story.AssetsComplete(), "silent story is complete once every page has an image")

	story.NarrationEnabled = true
	assert.False(t, story.AssetsComplete(), "narrated story also needs audio")

	for i := range story.Pages {
		story.Pages[i].AudioURL = "https://cdn/audio.wav"
	}
	assert.True(t, story.AssetsComplete())
}

func TestCreditCost(t *testing.T) {
	assert.Equal(t, 20, model.CreditCost(true))
	assert.Equal(t, 10, model.CreditCost(false))
}

func TestStoryParams_SideCharacter(t *testing.T) {
	assert.False(t, model.StoryParams{SideCharacterID: ""}.HasSideCharacter())
	assert.False(t, model.StoryParams{SideCharacterID: model.SideCharacterNone}.HasSideCharacter())
	assert.True(t, model.StoryParams{SideCharacterID: "sc_dragon"}.HasSideCharacter())

	villain := model.StoryParams{SideCharacterID: model.SideCharacterVillain}
	assert.True(t, villain.HasSideCharacter())
	assert.True(t, villain.HasVillain())
}
