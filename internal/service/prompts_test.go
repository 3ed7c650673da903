package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"storybook-server/internal/model"
)

func TestTextRequirements_AgeBands(t *testing.T) {
	tests := []struct {
		age  int
		want string
	}{
		{1, "exactly 3 short, basic sentences"},
		{2, "exactly 3 short, basic sentences"},
		{3, "exactly 4 sentences"},
		{4, "exactly 4 sentences"},
		{5, "exactly 5 sentences"},
		{6, "exactly 6 sentences"},
		{7, "7 to 8 sentences"},
		{10, "7 to 8 sentences"},
	}

	for _, tt := range tests {
		got := textRequirements(tt.age, "English")
		assert.Contains(t, got, tt.want, "age %d", tt.age)
		assert.Contains(t, got, "English")
	}
}

func TestStyleDirective_FallsBack(t *testing.T) {
	assert.Equal(t, visualStyles["style_watercolor"], styleDirective("style_watercolor"))
	assert.Equal(t, fallbackStyleDirective, styleDirective("style_does_not_exist"))
	assert.Equal(t, fallbackStyleDirective, styleDirective(""))
}

func TestCharacterGuide(t *testing.T) {
	assert.Equal(t,
		"Characters: 1) A small fox in a red scarf. 2) A grumpy owl with round glasses.",
		CharacterGuide("A small fox in a red scarf", "A grumpy owl with round glasses"))

	assert.Equal(t,
		"Main Character: A small fox in a red scarf.",
		CharacterGuide("A small fox in a red scarf", ""))

	assert.Equal(t, "", CharacterGuide("", ""))
}

func TestCoverAndPagePrompts(t *testing.T) {
	guide := CharacterGuide("A small fox", "")

	cover := CoverPrompt(guide, "an enchanted forest")
	assert.Contains(t, cover, guide)
	assert.Contains(t, cover, "Action: Book cover close up. Both characters smiling.")
	assert.Contains(t, cover, "Setting: an enchanted forest.")

	page := PagePrompt(guide, "the fox finds a glowing door", "an enchanted forest")
	assert.Contains(t, page, guide)
	assert.Contains(t, page, "Scene: the fox finds a glowing door.")
	assert.Contains(t, page, "Ensure characters look consistent.")
	assert.Contains(t, page, "Setting: an enchanted forest.")
}

func TestBuildScriptPrompt_VillainBranch(t *testing.T) {
	params := model.StoryParams{
		MainCharacterID:   "mc_fox",
		MainCharacterName: "Fin",
		SideCharacterID:   model.SideCharacterVillain,
		SideCharacterType: "Shadow Wizard",
		Location:          "a mountain village",
		Theme:             "courage",
		StyleID:           "style_pixar",
		ChildAge:          6,
		Language:          "en",
	}

	prompt := buildScriptPrompt(params, model.PageCount, "")
	assert.Contains(t, prompt, "ANTAGONIST/VILLAIN: This is a Shadow Wizard")
	assert.Contains(t, prompt, `Name is "Fin"`)
	assert.Contains(t, prompt, "Create exactly 16 pages.")
	assert.Contains(t, prompt, "exactly 6 sentences")
	assert.NotContains(t, prompt, "There is NO side character")
}

func TestBuildScriptPrompt_NoSideCharacter(t *testing.T) {
	params := model.StoryParams{
		MainCharacterID: "mc_bunny",
		SideCharacterID: model.SideCharacterNone,
		Location:        "the seaside",
		Theme:           "friendship",
		StyleID:         "style_watercolor",
		ChildAge:        3,
		Language:        "tr",
	}

	prompt := buildScriptPrompt(params, model.PageCount, "")
	assert.Contains(t, prompt, "There is NO side character.")
	assert.Contains(t, prompt, "Turkish (Türkçe)")
	assert.Contains(t, prompt, "exactly 4 sentences")
	assert.Contains(t, prompt, "Generate a cute name for the main character")
}

func TestBuildScriptPrompt_PredefinedCharacterLook(t *testing.T) {
	params := model.StoryParams{
		MainCharacterID: "mc_photo",
		Location:        "space",
		Theme:           "curiosity",
		StyleID:         "style_pixar",
		Language:        "en",
	}

	prompt := buildScriptPrompt(params, model.PageCount, "curly brown hair, green eyes, round glasses")
	assert.Contains(t, prompt, "MANDATORY Main Character Look: curly brown hair, green eyes, round glasses")
	assert.NotContains(t, prompt, "Main Character Type: mc_photo")
}

func TestBuildScriptPrompt_DefaultsAge(t *testing.T) {
	params := model.StoryParams{
		MainCharacterID: "mc_fox",
		Location:        "forest",
		Theme:           "kindness",
		StyleID:         "style_pixar",
		Language:        "en",
	}

	prompt := buildScriptPrompt(params, model.PageCount, "")
	assert.Contains(t, prompt, "aged 5")
	assert.Contains(t, prompt, "exactly 5 sentences")
}

func TestVoiceMapping(t *testing.T) {
	assert.Equal(t, "Charon", voiceName(model.VoiceMale))
	assert.Equal(t, "Kore", voiceName(model.VoiceFemale))

	assert.True(t, strings.Contains(tonalPrefix(model.VoiceMale), "baba"))
	assert.True(t, strings.Contains(tonalPrefix(model.VoiceFemale), "anne"))
}
