package orchestrator_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storybook-server/internal/messaging"
	"storybook-server/internal/mocks"
	"storybook-server/internal/model"
	"storybook-server/internal/orchestrator"
	"storybook-server/internal/service"
)

const testOwner = "owner-1"

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func scriptFixture(pageCount int) *model.ScriptResult {
	pages := make([]model.StoryPage, pageCount)
	for i := range pages {
		pages[i] = model.StoryPage{
			PageNumber:  i + 1,
			Text:        fmt.Sprintf("Page %d of the tale.", i+1),
			ImagePrompt: fmt.Sprintf("the fox on adventure %d", i+1),
		}
	}
	return &model.ScriptResult{
		Title:                      "The Brave Fox",
		CharacterVisualDescription: "A small orange fox in a red scarf",
		Pages:                      pages,
	}
}

func storyParams() model.StoryParams {
	return model.StoryParams{
		MainCharacterID: "mc_fox",
		SideCharacterID: model.SideCharacterNone,
		Location:        "an enchanted forest",
		Theme:           "courage",
		StyleID:         "style_pixar",
		Voice:           model.VoiceFemale,
		ChildAge:        5,
		Language:        "en",
	}
}

type fixture struct {
	repo     *mocks.MockStoryRepository
	ai       *mocks.MockAIClient
	storage  *mocks.MockStorageClient
	profile  *mocks.MockProfileClient
	notifier *mocks.MockNotifier
	push     *mocks.MockPushSender
	lock     *mocks.MockRunLock
	orch     *orchestrator.Orchestrator

	updates     []messaging.StoryUpdatePayload
	checkpoints []int // resume cursor at each upsert
	stories     []model.Story
}

func newFixture(t *testing.T, pageCount int) *fixture {
	f := &fixture{
		repo:     mocks.NewMockStoryRepository(t),
		ai:       mocks.NewMockAIClient(t),
		storage:  mocks.NewMockStorageClient(t),
		profile:  mocks.NewMockProfileClient(t),
		notifier: mocks.NewMockNotifier(t),
		push:     mocks.NewMockPushSender(t),
		lock:     mocks.NewMockRunLock(t),
	}

	f.notifier.On("Notify", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			f.updates = append(f.updates, args.Get(1).(messaging.StoryUpdatePayload))
		}).
		Return(nil).Maybe()

	f.orch = orchestrator.New(
		f.repo, f.ai, f.storage, f.profile, f.notifier, f.push, f.lock,
		orchestrator.Config{
			PageCount:      pageCount,
			InterPageDelay: time.Millisecond,
			JPEGQuality:    70,
		},
		zap.NewNop(),
	)
	return f
}

// recordCheckpoints makes every Upsert succeed and snapshots the story state
// at each call.
func (f *fixture) recordCheckpoints() {
	f.repo.On("Upsert", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			story := args.Get(1).(*model.Story)
			f.checkpoints = append(f.checkpoints, story.ResumeCursor())
			f.stories = append(f.stories, *story)
		}).
		Return(nil)
}

func (f *fixture) expectLockCycle() {
	f.lock.On("Acquire", mock.Anything, testOwner).Return(true, nil).Once()
	f.lock.On("Refresh", mock.Anything, testOwner).Return(nil).Maybe()
	f.lock.On("Release", mock.Anything, testOwner).Return(nil).Once()
}

func (f *fixture) lastUpdate() messaging.StoryUpdatePayload {
	if len(f.updates) == 0 {
		return messaging.StoryUpdatePayload{}
	}
	return f.updates[len(f.updates)-1]
}

func startTask(params model.StoryParams) messaging.StoryTaskPayload {
	return messaging.StoryTaskPayload{
		TaskID:  "task-1",
		Type:    messaging.TaskTypeStart,
		OwnerID: testOwner,
		Params:  &params,
	}
}

func TestStart_FullRunWithoutNarration(t *testing.T) {
	f := newFixture(t, model.PageCount)
	f.expectLockCycle()
	f.recordCheckpoints()

	f.profile.On("Settings", mock.Anything, testOwner).
		Return(model.OwnerSettings{NarrationEnabled: false}, nil).Once()
	f.profile.On("Balance", mock.Anything, testOwner).Return(100, nil).Once()
	f.profile.On("Debit", mock.Anything, testOwner, model.CreditCostSilent, "story_generation").
		Return(nil).Once()
	f.profile.On("DeviceTokens", mock.Anything, testOwner).Return([]string{"tok"}, nil).Maybe()
	f.push.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil).Maybe()

	f.ai.On("GenerateScript", mock.Anything, mock.Anything, model.PageCount, "").
		Return(scriptFixture(model.PageCount), nil).Once()
	// Cover plus every page.
	f.ai.On("GenerateIllustration", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(pngBytes(t), nil).Times(model.PageCount + 1)
	f.storage.On("Upload", mock.Anything, mock.Anything, "image/jpeg", testOwner, mock.Anything, mock.Anything).
		Return("https://cdn/asset.jpg", nil).Times(model.PageCount + 1)

	err := f.orch.Handle(context.Background(), startTask(storyParams()))
	require.NoError(t, err)

	f.ai.AssertNotCalled(t, "GenerateNarration", mock.Anything, mock.Anything, mock.Anything)

	// Draft + cover + one per page + completion.
	require.Len(t, f.checkpoints, model.PageCount+3)
	for i := 1; i < len(f.checkpoints); i++ {
		assert.GreaterOrEqual(t, f.checkpoints[i], f.checkpoints[i-1],
			"checkpoint cursor must never move backwards")
	}

	final := f.stories[len(f.stories)-1]
	assert.True(t, final.IsComplete)
	assert.True(t, final.AssetsComplete())
	assert.Equal(t, "The Brave Fox", final.Title)
	assert.NotEmpty(t, final.CoverImageURL)

	last := f.lastUpdate()
	assert.Equal(t, messaging.StatusSuccess, last.Status)
	assert.Equal(t, model.PageCount, last.PageIndex)
}

func TestStart_NarrationEnabledGeneratesAudio(t *testing.T) {
	const pageCount = 4
	f := newFixture(t, pageCount)
	f.expectLockCycle()
	f.recordCheckpoints()

	f.profile.On("Settings", mock.Anything, testOwner).
		Return(model.OwnerSettings{NarrationEnabled: true}, nil).Once()
	f.profile.On("Balance", mock.Anything, testOwner).Return(100, nil).Once()
	f.profile.On("Debit", mock.Anything, testOwner, model.CreditCostNarrated, "story_generation").
		Return(nil).Once()
	f.profile.On("DeviceTokens", mock.Anything, testOwner).Return(nil, nil).Maybe()

	f.ai.On("GenerateScript", mock.Anything, mock.Anything, pageCount, "").
		Return(scriptFixture(pageCount), nil).Once()
	f.ai.On("GenerateIllustration", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(pngBytes(t), nil).Times(pageCount + 1)
	f.ai.On("GenerateNarration", mock.Anything, mock.Anything, model.VoiceFemale).
		Return([]byte("RIFF-wav-data"), nil).Times(pageCount)

	f.storage.On("Upload", mock.Anything, mock.Anything, "image/jpeg", testOwner, mock.Anything, mock.Anything).
		Return("https://cdn/img.jpg", nil).Times(pageCount + 1)
	f.storage.On("Upload", mock.Anything, mock.Anything, "audio/wav", testOwner, mock.Anything, mock.Anything).
		Return("https://cdn/audio.wav", nil).Times(pageCount)

	err := f.orch.Handle(context.Background(), startTask(storyParams()))
	require.NoError(t, err)

	final := f.stories[len(f.stories)-1]
	assert.True(t, final.IsComplete)
	assert.True(t, final.NarrationEnabled)
	for _, p := range final.Pages {
		assert.NotEmpty(t, p.ImageURL)
		assert.NotEmpty(t, p.AudioURL)
	}
}

func TestStart_IllustrationsUseChosenStyle(t *testing.T) {
	const pageCount = 3
	f := newFixture(t, pageCount)
	f.expectLockCycle()
	f.recordCheckpoints()

	f.profile.On("Settings", mock.Anything, testOwner).
		Return(model.OwnerSettings{NarrationEnabled: false}, nil).Once()
	f.profile.On("Balance", mock.Anything, testOwner).Return(100, nil).Once()
	f.profile.On("Debit", mock.Anything, testOwner, model.CreditCostSilent, "story_generation").
		Return(nil).Once()
	f.profile.On("DeviceTokens", mock.Anything, testOwner).Return(nil, nil).Maybe()

	f.ai.On("GenerateScript", mock.Anything, mock.Anything, pageCount, "").
		Return(scriptFixture(pageCount), nil).Once()

	var styleIDs, ratios []string
	f.ai.On("GenerateIllustration", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			styleIDs = append(styleIDs, args.String(2))
			ratios = append(ratios, args.String(3))
		}).
		Return(pngBytes(t), nil).Times(pageCount + 1)
	f.storage.On("Upload", mock.Anything, mock.Anything, "image/jpeg", testOwner, mock.Anything, mock.Anything).
		Return("https://cdn/img.jpg", nil).Times(pageCount + 1)

	params := storyParams()
	params.StyleID = "style_watercolor"
	err := f.orch.Handle(context.Background(), startTask(params))
	require.NoError(t, err)

	require.Len(t, styleIDs, pageCount+1, "cover plus every page")
	for i, id := range styleIDs {
		assert.Equal(t, "style_watercolor", id, "illustration %d", i)
		assert.Equal(t, service.AspectSquare, ratios[i])
	}
}

func TestStart_InsufficientCredits(t *testing.T) {
	f := newFixture(t, model.PageCount)
	f.expectLockCycle()

	f.profile.On("Settings", mock.Anything, testOwner).
		Return(model.OwnerSettings{NarrationEnabled: false}, nil).Once()
	f.profile.On("Balance", mock.Anything, testOwner).Return(5, nil).Once()

	err := f.orch.Handle(context.Background(), startTask(storyParams()))
	require.NoError(t, err)

	f.profile.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.ai.AssertNotCalled(t, "GenerateScript", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)

	last := f.lastUpdate()
	assert.Equal(t, messaging.StatusError, last.Status)
	assert.Contains(t, last.ErrorDetails, "insufficient credits")
}

func TestStart_RejectedWhenRunInProgress(t *testing.T) {
	f := newFixture(t, model.PageCount)
	f.lock.On("Acquire", mock.Anything, testOwner).Return(false, nil).Once()

	err := f.orch.Handle(context.Background(), startTask(storyParams()))
	require.NoError(t, err)

	f.profile.AssertNotCalled(t, "Settings", mock.Anything, mock.Anything)
	f.lock.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)

	last := f.lastUpdate()
	assert.Equal(t, messaging.StatusError, last.Status)
	assert.Contains(t, last.ErrorDetails, "in progress")
}

func TestStart_ScriptFailureKeepsCredits(t *testing.T) {
	f := newFixture(t, model.PageCount)
	f.expectLockCycle()

	f.profile.On("Settings", mock.Anything, testOwner).
		Return(model.OwnerSettings{NarrationEnabled: false}, nil).Once()
	f.profile.On("Balance", mock.Anything, testOwner).Return(100, nil).Once()
	f.profile.On("Debit", mock.Anything, testOwner, model.CreditCostSilent, "story_generation").
		Return(nil).Once()

	f.ai.On("GenerateScript", mock.Anything, mock.Anything, model.PageCount, "").
		Return(nil, model.ErrScriptGeneration).Once()

	err := f.orch.Handle(context.Background(), startTask(storyParams()))
	require.NoError(t, err)

	f.repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	assert.Equal(t, messaging.StatusError, f.lastUpdate().Status)
}

func TestStart_PageFailureParksRunAsResumable(t *testing.T) {
	f := newFixture(t, model.PageCount)
	f.expectLockCycle()
	f.recordCheckpoints()

	f.profile.On("Settings", mock.Anything, testOwner).
		Return(model.OwnerSettings{NarrationEnabled: false}, nil).Once()
	f.profile.On("Balance", mock.Anything, testOwner).Return(100, nil).Once()
	f.profile.On("Debit", mock.Anything, testOwner, model.CreditCostSilent, "story_generation").
		Return(nil).Once()
	f.profile.On("DeviceTokens", mock.Anything, testOwner).Return([]string{"tok"}, nil).Once()
	f.push.On("Send", mock.Anything, []string{"tok"}, mock.Anything, mock.Anything, mock.Anything).
		Return(nil).Once()

	f.ai.On("GenerateScript", mock.Anything, mock.Anything, model.PageCount, "").
		Return(scriptFixture(model.PageCount), nil).Once()
	// Cover and pages 1..6 succeed; page 7 gives up.
	f.ai.On("GenerateIllustration", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(pngBytes(t), nil).Times(7)
	f.ai.On("GenerateIllustration", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, nil).Once()
	f.storage.On("Upload", mock.Anything, mock.Anything, "image/jpeg", testOwner, mock.Anything, mock.Anything).
		Return("https://cdn/img.jpg", nil).Times(7)

	err := f.orch.Handle(context.Background(), startTask(storyParams()))
	require.NoError(t, err, "parked runs are acknowledged, not dead-lettered")

	last := f.lastUpdate()
	assert.Equal(t, messaging.StatusResumable, last.Status)
	assert.Equal(t, 6, last.PageIndex, "resume cursor points at the first unfinished page")
	assert.True(t, last.NetworkError)

	final := f.stories[len(f.stories)-1]
	for i := 0; i < 6; i++ {
		assert.NotEmpty(t, final.Pages[i].ImageURL, "page %d finished before the failure", i)
	}
	assert.Equal(t, 6, final.ResumeCursor())
	assert.False(t, final.IsComplete)
}

func resumableStory(t *testing.T, donePages int) *model.Story {
	script := scriptFixture(model.PageCount)
	story := &model.Story{
		ID:                         "story-1",
		OwnerID:                    testOwner,
		Title:                      script.Title,
		CoverImageURL:              "https://cdn/cover.jpg",
		CreatedAt:                  time.Now().UTC(),
		Params:                     storyParams(),
		Pages:                      script.Pages,
		CharacterVisualDescription: script.CharacterVisualDescription,
	}
	for i := 0; i < donePages; i++ {
		story.Pages[i].ImageURL = fmt.Sprintf("https://cdn/img_%d.jpg", i)
	}
	require.Equal(t, donePages, story.ResumeCursor())
	return story
}

func resumeTask(storyID string) messaging.StoryTaskPayload {
	return messaging.StoryTaskPayload{
		TaskID:  "task-2",
		Type:    messaging.TaskTypeResume,
		OwnerID: testOwner,
		StoryID: storyID,
	}
}

func TestResume_ContinuesFromCursorWithoutRedebit(t *testing.T) {
	f := newFixture(t, model.PageCount)
	f.expectLockCycle()
	f.recordCheckpoints()

	story := resumableStory(t, 6)
	f.repo.On("GetByID", mock.Anything, "story-1").Return(story, nil).Once()
	f.profile.On("DeviceTokens", mock.Anything, testOwner).Return(nil, nil).Maybe()

	remaining := model.PageCount - 6
	f.ai.On("GenerateIllustration", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(pngBytes(t), nil).Times(remaining)
	f.storage.On("Upload", mock.Anything, mock.Anything, "image/jpeg", testOwner, "story-1", mock.Anything).
		Return("https://cdn/img.jpg", nil).Times(remaining)

	err := f.orch.Handle(context.Background(), resumeTask("story-1"))
	require.NoError(t, err)

	// Resume is already paid for.
	f.profile.AssertNotCalled(t, "Settings", mock.Anything, mock.Anything)
	f.profile.AssertNotCalled(t, "Balance", mock.Anything, mock.Anything)
	f.profile.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	final := f.stories[len(f.stories)-1]
	assert.True(t, final.IsComplete)
	for i := 0; i < 6; i++ {
		assert.Equal(t, fmt.Sprintf("https://cdn/img_%d.jpg", i), final.Pages[i].ImageURL,
			"finished pages keep their original assets")
	}
	assert.Equal(t, messaging.StatusSuccess, f.lastUpdate().Status)
}

func TestResume_CompleteStoryIsNoOp(t *testing.T) {
	f := newFixture(t, model.PageCount)

	story := resumableStory(t, model.PageCount)
	story.IsComplete = true
	f.repo.On("GetByID", mock.Anything, "story-1").Return(story, nil).Once()
	f.profile.On("DeviceTokens", mock.Anything, testOwner).Return(nil, nil).Maybe()

	err := f.orch.Handle(context.Background(), resumeTask("story-1"))
	require.NoError(t, err)

	f.lock.AssertNotCalled(t, "Acquire", mock.Anything, mock.Anything)
	f.ai.AssertNotCalled(t, "GenerateIllustration", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, messaging.StatusSuccess, f.lastUpdate().Status)
}

func TestResume_OwnerMismatchRejected(t *testing.T) {
	f := newFixture(t, model.PageCount)

	story := resumableStory(t, 3)
	story.OwnerID = "someone-else"
	f.repo.On("GetByID", mock.Anything, "story-1").Return(story, nil).Once()

	err := f.orch.Handle(context.Background(), resumeTask("story-1"))
	require.NoError(t, err)

	f.lock.AssertNotCalled(t, "Acquire", mock.Anything, mock.Anything)
	last := f.lastUpdate()
	assert.Equal(t, messaging.StatusError, last.Status)
	assert.Contains(t, last.ErrorDetails, "forbidden")
}

func TestStart_CheckpointFailureAbortsRun(t *testing.T) {
	f := newFixture(t, model.PageCount)
	f.expectLockCycle()

	f.profile.On("Settings", mock.Anything, testOwner).
		Return(model.OwnerSettings{NarrationEnabled: false}, nil).Once()
	f.profile.On("Balance", mock.Anything, testOwner).Return(100, nil).Once()
	f.profile.On("Debit", mock.Anything, testOwner, model.CreditCostSilent, "story_generation").
		Return(nil).Once()

	f.ai.On("GenerateScript", mock.Anything, mock.Anything, model.PageCount, "").
		Return(scriptFixture(model.PageCount), nil).Once()
	f.repo.On("Upsert", mock.Anything, mock.Anything).
		Return(errors.New("connection refused")).Once()

	err := f.orch.Handle(context.Background(), startTask(storyParams()))
	require.Error(t, err, "checkpoint failures dead-letter the task")

	f.ai.AssertNotCalled(t, "GenerateIllustration", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, messaging.StatusError, f.lastUpdate().Status)
}

func TestHandle_UnknownTaskType(t *testing.T) {
	f := newFixture(t, model.PageCount)

	err := f.orch.Handle(context.Background(), messaging.StoryTaskPayload{
		TaskID: "task-x", Type: "replay", OwnerID: testOwner,
	})
	assert.Error(t, err)
}
