package model

import (
	"time"
)

// VoiceType selects the narration voice for a story.
type VoiceType string

const (
	VoiceMale   VoiceType = "Male"
	VoiceFemale VoiceType = "Female"
)

// PageCount is the contractual number of pages in a generated storybook.
const PageCount = 16

// Credit cost of a single generation run.
const (
	CreditCostNarrated = 20
	CreditCostSilent   = 10
)

// StoryParams is the configuration captured when a generation run starts.
// It is frozen for the lifetime of the run: resume reuses the persisted copy
// and never rebuilds it from user state.
type StoryParams struct {
	MainCharacterID   string    `json:"mainCharacterId"`
	MainCharacterName string    `json:"mainCharacterName"`
	SideCharacterID   string    `json:"sideCharacterId"`
	SideCharacterName string    `json:"sideCharacterName"`
	SideCharacterType string    `json:"sideCharacterType,omitempty"`
	Location          string    `json:"location"`
	Theme             string    `json:"theme"`
	StyleID           string    `json:"styleId"`
	Voice             VoiceType `json:"voice"`
	ChildAge          int       `json:"childAge,omitempty"`
	Language          string    `json:"language"`
}

// Side character sentinel IDs. "sc_none" means the story has a single
// protagonist; "sc_villain" switches the script prompt to antagonist framing.
const (
	SideCharacterNone    = "sc_none"
	SideCharacterVillain = "sc_villain"
)

// HasSideCharacter reports whether a second character takes part in the story.
func (p StoryParams) HasSideCharacter() bool {
	return p.SideCharacterID != "" && p.SideCharacterID != SideCharacterNone
}

// HasVillain reports whether the side character is the antagonist variant.
func (p StoryParams) HasVillain() bool {
	return p.SideCharacterID == SideCharacterVillain
}

// StoryPage is one unit of the narrative. ImagePrompt is model input only and
// is never shown to the reader. ImageURL/AudioURL stay empty until the
// corresponding asset has been generated and uploaded.
type StoryPage struct {
	PageNumber  int    `json:"pageNumber"`
	Text        string `json:"text"`
	ImagePrompt string `json:"imagePrompt"`
	ImageURL    string `json:"imageUrl,omitempty"`
	AudioURL    string `json:"audioUrl,omitempty"`
}

// HasImage reports whether the page illustration has been resolved.
func (p StoryPage) HasImage() bool { return p.ImageURL != "" }

// Story is the aggregate checkpointed to durable storage after every
// observable change. The visual description fields are written once at script
// generation time and reused verbatim in every image prompt afterwards.
type Story struct {
	ID                             string      `json:"id"`
	OwnerID                        string      `json:"ownerId"`
	Title                          string      `json:"title"`
	CoverImageURL                  string      `json:"coverImage,omitempty"`
	CreatedAt                      time.Time   `json:"createdAt"`
	Params                         StoryParams `json:"params"`
	Pages                          []StoryPage `json:"pages"`
	IsComplete                     bool        `json:"isComplete"`
	NarrationEnabled               bool        `json:"narrationEnabled"`
	CharacterVisualDescription     string      `json:"characterVisualDescription"`
	SideCharacterVisualDescription string      `json:"sideCharacterVisualDescription"`
}

// ResumeCursor returns the index of the first page without an illustration,
// or len(Pages) when every page has one. Because pages are processed and
// checkpointed strictly in order, this index is monotonic across checkpoints
// and is the single source of truth for where a resumed run continues.
func (s *Story) ResumeCursor() int {
	for i, p := range s.Pages {
		if !p.HasImage() {
			return i
		}
	}
	return len(s.Pages)
}

// AssetsComplete reports whether every page has an image and, if narration
// was requested for this story, audio as well. A story must never be marked
// complete while this is false.
func (s *Story) AssetsComplete() bool {
	for _, p := range s.Pages {
		if !p.HasImage() {
			return false
		}
		if s.NarrationEnabled && p.AudioURL == "" {
			return false
		}
	}
	return true
}

// ScriptResult is the structured payload produced by the script generation
// call: the full page texts and prompts plus the two write-once visual
// description anchors.
type ScriptResult struct {
	Title                          string      `json:"title"`
	CharacterVisualDescription     string      `json:"characterVisualDescription"`
	SideCharacterVisualDescription string      `json:"sideCharacterVisualDescription"`
	Pages                          []StoryPage `json:"pages"`
}

// OwnerSettings are read once per generation run from the profile service.
// Mid-run changes do not affect pages that were already decided.
type OwnerSettings struct {
	NarrationEnabled bool `json:"narrationEnabled"`
}

// CreditCost returns the cost of a run given the narration decision.
func CreditCost(narration bool) int {
	if narration {
		return CreditCostNarrated
	}
	return CreditCostSilent
}
