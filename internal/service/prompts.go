package service

import (
	"fmt"
	"strings"

	"storybook-server/internal/model"
)

// ageBand defines the per-page text policy for one age range. The bands are
// data, not control flow, so text complexity rules can be adjusted and tested
// without touching the generation call.
type ageBand struct {
	MaxAge      int // inclusive upper bound; the last band catches everything above
	Requirement string
}

var ageBands = []ageBand{
	{2, "Target Age 0-2: Use very simple, rhythmic and melodic language in %s. Each page MUST have exactly 3 short, basic sentences. Keep it very easy to follow for a toddler."},
	{4, "Target Age 3-4: Use simple and engaging language in %s. Each page MUST have exactly 4 sentences. The story should be clear and move at a steady pace."},
	{5, "Target Age 5: Use expressive language in %s with a richer vocabulary. Each page MUST have exactly 5 sentences. Include some simple dialogue between characters."},
	{6, "Target Age 6: Use descriptive and engaging language in %s. Each page MUST have exactly 6 sentences. Include dialogue and expressive scenes to make the story come alive."},
	{0, "Target Age 7+: Use descriptive, immersive and slightly complex narrative in %s. Each page MUST have 7 to 8 sentences. Include frequent dialogue and build a deep story world suitable for school-age children."},
}

// textRequirements returns the sentence-count/vocabulary policy line for the
// given child age.
func textRequirements(childAge int, targetLang string) string {
	for _, band := range ageBands[:len(ageBands)-1] {
		if childAge <= band.MaxAge {
			return fmt.Sprintf(band.Requirement, targetLang)
		}
	}
	return fmt.Sprintf(ageBands[len(ageBands)-1].Requirement, targetLang)
}

// visualStyles maps a style identifier to the image prompt directive for it.
var visualStyles = map[string]string{
	"style_pixar":      "Children's book illustration, 3d render, pixar style, colorful, cute, vibrant, high quality.",
	"style_watercolor": "Soft watercolor children's book illustration, gentle pastel palette, dreamy textures, hand-painted look.",
	"style_anime":      "Anime style children's illustration, big expressive eyes, clean line art, bright cel shading.",
	"style_papercraft": "Paper cutout collage illustration for children, layered paper textures, playful shapes, soft shadows.",
	"style_claymation": "Claymation style children's illustration, handmade clay figures, stop-motion look, warm studio lighting.",
}

const fallbackStyleDirective = "Children's book illustration, 3d render, pixar style, colorful, cute, vibrant, high quality."

// Aspect ratios the image endpoint accepts. Book assets are square.
const (
	AspectSquare = "1:1"
	AspectWide   = "16:9"
)

// styleDirective looks up the visual directive for a style id, falling back
// to the generic colorful 3D directive for unknown ids.
func styleDirective(styleID string) string {
	if directive, ok := visualStyles[styleID]; ok {
		return directive
	}
	return fallbackStyleDirective
}

// targetLanguage renders the language code as the prompt wording expects.
func targetLanguage(code string) string {
	if code == "tr" {
		return "Turkish (Türkçe)"
	}
	return "English"
}

// buildScriptPrompt assembles the full instruction for the script generation
// call. predefinedCharacterDescription, when non-empty, pins the main
// character look (used for the photo-based "star in your own story" flow).
func buildScriptPrompt(params model.StoryParams, pageCount int, predefinedCharacterDescription string) string {
	targetLang := targetLanguage(params.Language)
	childAge := params.ChildAge
	if childAge <= 0 {
		childAge = 5
	}

	mainNameInstructions := fmt.Sprintf("User did not provide a name. Generate a cute name for the main character in %s.", targetLang)
	if params.MainCharacterName != "" {
		mainNameInstructions = fmt.Sprintf("Name is %q", params.MainCharacterName)
	}

	var sideCharacterPrompt string
	switch {
	case !params.HasSideCharacter():
		sideCharacterPrompt = "There is NO side character. Set sideCharacterVisualDescription to an empty string."
	case params.HasVillain():
		villainType := params.SideCharacterType
		if villainType == "" {
			villainType = "Villain"
		}
		sideNameInstructions := fmt.Sprintf("User did not provide a name. Generate a fitting name for this villain in %s.", targetLang)
		if params.SideCharacterName != "" {
			sideNameInstructions = fmt.Sprintf("Name is %q", params.SideCharacterName)
		}
		sideCharacterPrompt = fmt.Sprintf("ANTAGONIST/VILLAIN: This is a %s. %s. CRITICAL REQUIREMENT: This character is the BAD character/VILLAIN of the story. The story MUST involve a conflict where the hero overcomes this villain's challenge. The hero should be brave and clever.", villainType, sideNameInstructions)
	default:
		sideNameInstructions := fmt.Sprintf("User did not provide a name. Generate a cute name for this companion in %s.", targetLang)
		if params.SideCharacterName != "" {
			sideNameInstructions = fmt.Sprintf("Name is %q", params.SideCharacterName)
		}
		sideCharacterPrompt = fmt.Sprintf("Side Character: %s. %s", params.SideCharacterID, sideNameInstructions)
	}

	characterDescriptionGuidance := fmt.Sprintf("Main Character Type: %s.", params.MainCharacterID)
	if predefinedCharacterDescription != "" {
		characterDescriptionGuidance = fmt.Sprintf("MANDATORY Main Character Look: %s. Use this as the base for characterVisualDescription.", predefinedCharacterDescription)
	}

	styleGuidance := fmt.Sprintf("The visual style of the book is: %s Describe image prompts suitable for this specific style.", styleDirective(params.StyleID))

	var b strings.Builder
	fmt.Fprintf(&b, "You are a professional children's book author. Write a bedtime story for a child aged %d in %s.\n\n", childAge, targetLang)
	fmt.Fprintf(&b, "Characters:\n1. Main Character: %s %s\n2. %s\n\n", characterDescriptionGuidance, mainNameInstructions, sideCharacterPrompt)
	fmt.Fprintf(&b, "Setting: %s.\nTheme: %s.\nStyle: %s\n\n", params.Location, params.Theme, styleGuidance)
	fmt.Fprintf(&b, "Requirements:\n- Create exactly %d pages.\n- Provide a catchy Title in %s.\n- %s\n\n", pageCount, targetLang, textRequirements(childAge, targetLang))
	b.WriteString("CONSISTENCY REQUIREMENT:\n")
	b.WriteString("1. characterVisualDescription: A detailed physical description of the MAIN character (clothes, colors, accessories) consistent with the chosen style.\n")
	b.WriteString("2. sideCharacterVisualDescription: A detailed physical description of the SIDE/VILLAIN character (clothes, colors, accessories) consistent with the chosen style. If no side character is used, this MUST be an empty string.\n\n")
	b.WriteString("Output JSON format only, with fields: title (string), characterVisualDescription (string), sideCharacterVisualDescription (string), pages (array of {pageNumber, text, imagePrompt}).")
	return b.String()
}

// CharacterGuide formats the write-once visual descriptions into the prompt
// prefix shared by the cover and every page illustration. Reusing the same
// guide verbatim is what keeps character appearance consistent across pages.
func CharacterGuide(mainDescription, sideDescription string) string {
	if mainDescription == "" {
		return ""
	}
	if sideDescription != "" {
		return fmt.Sprintf("Characters: 1) %s. 2) %s.", mainDescription, sideDescription)
	}
	return fmt.Sprintf("Main Character: %s.", mainDescription)
}

// CoverPrompt builds the cover illustration prompt from the character guide
// and the story location.
func CoverPrompt(characterGuide, location string) string {
	return fmt.Sprintf("%s Action: Book cover close up. Both characters smiling. Setting: %s.", characterGuide, location)
}

// PagePrompt builds a page illustration prompt around the per-page scene
// description produced by the script step.
func PagePrompt(characterGuide, imagePrompt, location string) string {
	return fmt.Sprintf("%s Scene: %s. Ensure characters look consistent. Setting: %s.", characterGuide, imagePrompt, location)
}

// Narration voices: each voice type maps to a fixed backend voice plus a
// tone-setting instruction prepended to the page text. The instructions are
// in Turkish, the product's home market.
const (
	voiceNameMale   = "Charon"
	voiceNameFemale = "Kore"

	tonalPrefixMale   = "Tok, güven verici ve akıcı bir baba sesiyle, normal bir tempoda anlat: "
	tonalPrefixFemale = "Yumuşak, şefkatli ve akıcı bir anne sesiyle, canlı ve normal bir hızda anlat: "
)

func voiceName(v model.VoiceType) string {
	if v == model.VoiceMale {
		return voiceNameMale
	}
	return voiceNameFemale
}

func tonalPrefix(v model.VoiceType) string {
	if v == model.VoiceMale {
		return tonalPrefixMale
	}
	return tonalPrefixFemale
}

// photoAnalysisPrompt asks the vision model for a reusable physical
// description of the child in the photo, suitable for image prompts.
const photoAnalysisPrompt = "Analyze this photo of a child. Create a detailed physical description for a character based on the appearance of the child in the photo. Focus on: hair color/style, skin tone, eye color, and any notable features like glasses. The description should be suitable for use in image generation prompts. Avoid names, just physical attributes. Keep it concise."
