package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"storybook-server/internal/messaging"
	"storybook-server/internal/model"
	"storybook-server/internal/repository"
	"storybook-server/internal/service"
	"storybook-server/pkg/codec"
	"storybook-server/pkg/retry"
)

// State labels the phase a generation run is in, for logging and updates.
type State string

const (
	StateIdle             State = "idle"
	StateSpendingCredits  State = "spending_credits"
	StateGeneratingScript State = "generating_script"
	StateGeneratingCover  State = "generating_cover"
	StateGeneratingPage   State = "generating_page"
	StateCompleted        State = "completed"
	StateErrored          State = "errored"
	StateResuming         State = "resuming"
)

// Config holds the pipeline policy knobs.
type Config struct {
	PageCount      int
	InterPageDelay time.Duration
	JPEGQuality    int
}

// Orchestrator drives a story generation run from credits to completed
// assets. It is the single writer of story state: every observable change
// goes through a repository upsert before the run moves on, so a crash at
// any point leaves a draft a resume task can pick up.
type Orchestrator struct {
	repo     repository.StoryRepository
	ai       service.AIClient
	storage  service.StorageClient
	profile  service.ProfileClient
	notifier messaging.Notifier
	push     service.PushSender
	lock     RunLock
	limiter  *rate.Limiter
	logger   *zap.Logger
	cfg      Config

	mu     sync.Mutex
	active map[string]struct{}
}

// New wires an orchestrator. The rate limiter paces page starts so the
// backend sees a steady request rhythm instead of a burst per story.
func New(
	repo repository.StoryRepository,
	ai service.AIClient,
	storage service.StorageClient,
	profile service.ProfileClient,
	notifier messaging.Notifier,
	push service.PushSender,
	lock RunLock,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.PageCount <= 0 {
		cfg.PageCount = model.PageCount
	}
	if cfg.InterPageDelay <= 0 {
		cfg.InterPageDelay = 800 * time.Millisecond
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = codec.DefaultJPEGQuality
	}
	return &Orchestrator{
		repo:     repo,
		ai:       ai,
		storage:  storage,
		profile:  profile,
		notifier: notifier,
		push:     push,
		lock:     lock,
		limiter:  rate.NewLimiter(rate.Every(cfg.InterPageDelay), 1),
		logger:   logger.Named("Orchestrator"),
		cfg:      cfg,
		active:   make(map[string]struct{}),
	}
}

// run is the mutable context of one Handle call.
type run struct {
	task    messaging.StoryTaskPayload
	story   *model.Story
	state   State
	started time.Time
	kind    string // "start" or "resume", metric label
}

// Handle implements messaging.TaskHandler. Business failures are reported to
// the owner and acknowledged; only infrastructure failures (checkpointing,
// unknown task shapes) propagate and dead-letter the task.
func (o *Orchestrator) Handle(ctx context.Context, task messaging.StoryTaskPayload) error {
	switch task.Type {
	case messaging.TaskTypeStart:
		return o.handleStart(ctx, task)
	case messaging.TaskTypeResume:
		return o.handleResume(ctx, task)
	default:
		return fmt.Errorf("unknown task type %q for task %s", task.Type, task.TaskID)
	}
}

// beginOwner registers an in-process run for the owner. Returns false when
// this process is already generating for them.
func (o *Orchestrator) beginOwner(ownerID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.active[ownerID]; busy {
		return false
	}
	o.active[ownerID] = struct{}{}
	return true
}

func (o *Orchestrator) endOwner(ownerID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, ownerID)
}

// acquireRun takes both the in-process guard and the cross-process Redis
// lock. A Redis outage degrades to in-process guarding only.
func (o *Orchestrator) acquireRun(ctx context.Context, ownerID string) (release func(), ok bool) {
	if !o.beginOwner(ownerID) {
		return nil, false
	}

	acquired, err := o.lock.Acquire(ctx, ownerID)
	if err != nil {
		o.logger.Warn("Run lock unavailable, proceeding with in-process guard only",
			zap.String("ownerId", ownerID), zap.Error(err))
		return func() { o.endOwner(ownerID) }, true
	}
	if !acquired {
		o.endOwner(ownerID)
		return nil, false
	}

	return func() {
		_ = o.lock.Release(context.WithoutCancel(ctx), ownerID)
		o.endOwner(ownerID)
	}, true
}

func (o *Orchestrator) handleStart(ctx context.Context, task messaging.StoryTaskPayload) error {
	if task.Params == nil {
		return fmt.Errorf("start task %s carries no story params", task.TaskID)
	}

	release, ok := o.acquireRun(ctx, task.OwnerID)
	if !ok {
		o.logger.Info("Start ignored, generation already in progress",
			zap.String("taskId", task.TaskID), zap.String("ownerId", task.OwnerID))
		o.notifyError(ctx, task, "", model.ErrGenerationInProgress.Error(), false)
		runsTotal.WithLabelValues("start", outcomeRejected).Inc()
		return nil
	}
	defer release()

	r := &run{task: task, state: StateIdle, started: time.Now(), kind: "start"}

	settings, err := o.profile.Settings(ctx, task.OwnerID)
	if err != nil {
		o.logger.Error("Failed to read owner settings", zap.String("taskId", task.TaskID), zap.Error(err))
		o.notifyError(ctx, task, "", "Could not read your profile settings. Please try again.", true)
		runsTotal.WithLabelValues(r.kind, outcomeFailed).Inc()
		return nil
	}
	narration := settings.NarrationEnabled
	cost := model.CreditCost(narration)

	r.state = StateSpendingCredits
	o.notifyProgress(ctx, r, messaging.StageSpendingCredits, 0)

	balance, err := o.profile.Balance(ctx, task.OwnerID)
	if err != nil {
		o.notifyError(ctx, task, "", "Could not check your credit balance. Please try again.", true)
		runsTotal.WithLabelValues(r.kind, outcomeFailed).Inc()
		return nil
	}
	if balance < cost {
		o.logger.Info("Insufficient credits",
			zap.String("ownerId", task.OwnerID), zap.Int("balance", balance), zap.Int("cost", cost))
		o.notifyError(ctx, task, "", model.ErrInsufficientCredits.Error(), false)
		runsTotal.WithLabelValues(r.kind, outcomeRejected).Inc()
		return nil
	}
	if err := o.profile.Debit(ctx, task.OwnerID, cost, "story_generation"); err != nil {
		if errors.Is(err, model.ErrInsufficientCredits) {
			o.notifyError(ctx, task, "", model.ErrInsufficientCredits.Error(), false)
			runsTotal.WithLabelValues(r.kind, outcomeRejected).Inc()
			return nil
		}
		o.notifyError(ctx, task, "", "Could not charge credits. Please try again.", true)
		runsTotal.WithLabelValues(r.kind, outcomeFailed).Inc()
		return nil
	}
	creditsDebitedTotal.Add(float64(cost))

	r.state = StateGeneratingScript
	o.notifyProgress(ctx, r, messaging.StageGeneratingScript, 0)

	script, err := o.ai.GenerateScript(ctx, *task.Params, o.cfg.PageCount, "")
	if err != nil {
		// Credits stay spent; the script never existed so there is nothing
		// to resume.
		o.logger.Error("Script generation failed", zap.String("taskId", task.TaskID), zap.Error(err))
		o.notifyError(ctx, task, "", scriptFailureMessage(err), retry.IsTransient(err))
		runsTotal.WithLabelValues(r.kind, outcomeFailed).Inc()
		return nil
	}

	r.story = &model.Story{
		ID:                             uuid.NewString(),
		OwnerID:                        task.OwnerID,
		Title:                          script.Title,
		CreatedAt:                      time.Now().UTC(),
		Params:                         *task.Params,
		Pages:                          script.Pages,
		NarrationEnabled:               narration,
		CharacterVisualDescription:     script.CharacterVisualDescription,
		SideCharacterVisualDescription: script.SideCharacterVisualDescription,
	}
	if err := o.checkpoint(ctx, r); err != nil {
		return err
	}

	return o.generateAssets(ctx, r)
}

func (o *Orchestrator) handleResume(ctx context.Context, task messaging.StoryTaskPayload) error {
	story, err := o.repo.GetByID(ctx, task.StoryID)
	if err != nil {
		if errors.Is(err, model.ErrStoryNotFound) {
			o.notifyError(ctx, task, task.StoryID, model.ErrStoryNotFound.Error(), false)
			return nil
		}
		return err
	}
	if story.OwnerID != task.OwnerID {
		o.logger.Warn("Resume rejected, owner mismatch",
			zap.String("taskId", task.TaskID), zap.String("storyId", story.ID))
		o.notifyError(ctx, task, story.ID, model.ErrForbidden.Error(), false)
		return nil
	}
	if story.IsComplete && story.AssetsComplete() {
		// Foreground-regained resumes race with completion; finishing twice
		// must be harmless.
		o.notifySuccess(ctx, &run{task: task, story: story})
		return nil
	}

	release, ok := o.acquireRun(ctx, task.OwnerID)
	if !ok {
		o.logger.Info("Resume ignored, generation already in progress",
			zap.String("taskId", task.TaskID), zap.String("ownerId", task.OwnerID))
		return nil
	}
	defer release()

	r := &run{task: task, story: story, state: StateResuming, started: time.Now(), kind: "resume"}
	o.logger.Info("Resuming story generation",
		zap.String("storyId", story.ID),
		zap.Int("cursor", story.ResumeCursor()),
		zap.Int("pageCount", len(story.Pages)))

	// Resume never re-debits: the run was paid for when it started.
	return o.generateAssets(ctx, r)
}

// generateAssets runs cover and page asset generation from wherever the
// story left off. Pages with a persisted image (and audio, when narration is
// on) are skipped, which is what makes resume idempotent. A page whose
// assets cannot be produced parks the whole run instead of skipping ahead:
// every page before the saved cursor is fully finished, and the owner gets
// one resume signal rather than a finished book with holes.
func (o *Orchestrator) generateAssets(ctx context.Context, r *run) error {
	story := r.story
	guide := service.CharacterGuide(story.CharacterVisualDescription, story.SideCharacterVisualDescription)

	if story.CoverImageURL == "" {
		r.state = StateGeneratingCover
		o.notifyProgress(ctx, r, messaging.StageGeneratingCover, 0)
		if err := o.generateCover(ctx, r, guide); err != nil {
			return err
		}
	}

	for i := range story.Pages {
		page := &story.Pages[i]
		needImage := !page.HasImage()
		needAudio := story.NarrationEnabled && page.AudioURL == ""
		if !needImage && !needAudio {
			continue
		}

		if err := o.limiter.Wait(ctx); err != nil {
			// Shutdown between pages. The last checkpoint already covers
			// everything done so far.
			o.parkRun(ctx, r, retry.Transient(err))
			return nil
		}

		r.state = StateGeneratingPage
		o.notifyProgress(ctx, r, messaging.StageGeneratingPage, i)

		var imageURL, audioURL string
		g, gctx := errgroup.WithContext(ctx)
		if needImage {
			g.Go(func() error {
				data, err := o.ai.GenerateIllustration(gctx, service.PagePrompt(guide, page.ImagePrompt, story.Params.Location), story.Params.StyleID, service.AspectSquare)
				if err != nil {
					return err
				}
				if data == nil {
					return retry.Transient(fmt.Errorf("illustration unavailable for page %d", i+1))
				}
				jpg, err := codec.CompressImage(data, o.cfg.JPEGQuality)
				if err != nil {
					return err
				}
				url, err := o.storage.Upload(gctx, jpg, "image/jpeg", story.OwnerID, story.ID, assetFileName("img", i))
				if err != nil {
					return err
				}
				imageURL = url
				return nil
			})
		}
		if needAudio {
			g.Go(func() error {
				wav, err := o.ai.GenerateNarration(gctx, page.Text, story.Params.Voice)
				if err != nil {
					return err
				}
				if wav == nil {
					return retry.Transient(fmt.Errorf("narration unavailable for page %d", i+1))
				}
				url, err := o.storage.Upload(gctx, wav, "audio/wav", story.OwnerID, story.ID, assetFileName("audio", i))
				if err != nil {
					return err
				}
				audioURL = url
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			o.parkRun(ctx, r, err)
			return nil
		}

		if imageURL != "" {
			page.ImageURL = imageURL
		}
		if audioURL != "" {
			page.AudioURL = audioURL
		}
		if err := o.checkpoint(ctx, r); err != nil {
			return err
		}
		pagesCompletedTotal.Inc()
		_ = o.lock.Refresh(ctx, story.OwnerID)
	}

	if !story.AssetsComplete() {
		o.parkRun(ctx, r, retry.Transient(errors.New("story assets incomplete after page loop")))
		return nil
	}

	story.IsComplete = true
	if err := o.checkpoint(ctx, r); err != nil {
		return err
	}

	r.state = StateCompleted
	o.notifySuccess(ctx, r)
	runsTotal.WithLabelValues(r.kind, outcomeCompleted).Inc()
	runDuration.Observe(time.Since(r.started).Seconds())
	o.logger.Info("Story generation completed",
		zap.String("storyId", story.ID),
		zap.String("ownerId", story.OwnerID),
		zap.Duration("elapsed", time.Since(r.started)))
	return nil
}

// generateCover fetches and attaches the cover illustration. Cover failures
// are soft: a storybook without a cover is still a storybook, and a later
// resume retries it.
func (o *Orchestrator) generateCover(ctx context.Context, r *run, guide string) error {
	story := r.story
	data, err := o.ai.GenerateIllustration(ctx, service.CoverPrompt(guide, story.Params.Location), story.Params.StyleID, service.AspectSquare)
	if err != nil || data == nil {
		o.logger.Warn("Cover generation unavailable, continuing without cover",
			zap.String("storyId", story.ID), zap.Error(err))
		return nil
	}

	jpg, err := codec.CompressImage(data, o.cfg.JPEGQuality)
	if err != nil {
		o.logger.Warn("Cover image unusable, continuing without cover",
			zap.String("storyId", story.ID), zap.Error(err))
		return nil
	}

	url, err := o.storage.Upload(ctx, jpg, "image/jpeg", story.OwnerID, story.ID, assetFileName("cover", 0))
	if err != nil {
		o.logger.Warn("Cover upload failed, continuing without cover",
			zap.String("storyId", story.ID), zap.Error(err))
		return nil
	}

	story.CoverImageURL = url
	return o.checkpoint(ctx, r)
}

// checkpoint persists the story. A failed checkpoint aborts the run and
// dead-letters the task: continuing would generate assets the next resume
// cannot see.
func (o *Orchestrator) checkpoint(ctx context.Context, r *run) error {
	if err := o.repo.Upsert(ctx, r.story); err != nil {
		r.state = StateErrored
		o.logger.Error("Checkpoint failed, aborting run",
			zap.String("storyId", r.story.ID), zap.Error(err))
		o.notifyError(ctx, r.task, r.story.ID, "Could not save your story progress. Please try again later.", true)
		runsTotal.WithLabelValues(r.kind, outcomeFailed).Inc()
		return fmt.Errorf("checkpoint of story %s failed: %w", r.story.ID, err)
	}
	return nil
}

// parkRun records a recoverable failure: the story stays as its last
// checkpoint and the owner is told the run can be resumed.
func (o *Orchestrator) parkRun(ctx context.Context, r *run, err error) {
	r.state = StateErrored
	networkErr := retry.IsTransient(err)

	message := "Story generation hit a problem. Your progress is saved; you can resume anytime."
	if networkErr {
		message = "Connection trouble interrupted the story. Your progress is saved; resume when you're back online."
	} else if retry.KindOf(err) == retry.KindPermission {
		message = "The generation service rejected our credentials. Your progress is saved; please contact support."
	}

	o.logger.Warn("Run parked for resume",
		zap.String("storyId", r.story.ID),
		zap.Int("cursor", r.story.ResumeCursor()),
		zap.Bool("networkError", networkErr),
		zap.Error(err))

	o.notify(ctx, messaging.StoryUpdatePayload{
		TaskID:       r.task.TaskID,
		OwnerID:      r.task.OwnerID,
		StoryID:      r.story.ID,
		Status:       messaging.StatusResumable,
		PageIndex:    r.story.ResumeCursor(),
		PageCount:    len(r.story.Pages),
		ErrorDetails: message,
		NetworkError: networkErr,
	})
	o.sendPush(ctx, r.task.OwnerID, "Your story is waiting", "Generation was interrupted. Open the app to continue your storybook.", map[string]string{
		"storyId": r.story.ID,
		"action":  "resume",
	})
	runsTotal.WithLabelValues(r.kind, outcomeResumable).Inc()
}

func (o *Orchestrator) notifyProgress(ctx context.Context, r *run, stage string, pageIndex int) {
	payload := messaging.StoryUpdatePayload{
		TaskID:    r.task.TaskID,
		OwnerID:   r.task.OwnerID,
		Status:    messaging.StatusProgress,
		Stage:     stage,
		PageIndex: pageIndex,
		PageCount: o.cfg.PageCount,
	}
	if r.story != nil {
		payload.StoryID = r.story.ID
		payload.PageCount = len(r.story.Pages)
	}
	o.notify(ctx, payload)
}

func (o *Orchestrator) notifySuccess(ctx context.Context, r *run) {
	o.notify(ctx, messaging.StoryUpdatePayload{
		TaskID:    r.task.TaskID,
		OwnerID:   r.task.OwnerID,
		StoryID:   r.story.ID,
		Status:    messaging.StatusSuccess,
		PageIndex: len(r.story.Pages),
		PageCount: len(r.story.Pages),
	})
	o.sendPush(ctx, r.task.OwnerID, "Your storybook is ready!", r.story.Title, map[string]string{
		"storyId": r.story.ID,
		"action":  "open",
	})
}

func (o *Orchestrator) notifyError(ctx context.Context, task messaging.StoryTaskPayload, storyID, message string, networkErr bool) {
	o.notify(ctx, messaging.StoryUpdatePayload{
		TaskID:       task.TaskID,
		OwnerID:      task.OwnerID,
		StoryID:      storyID,
		Status:       messaging.StatusError,
		ErrorDetails: message,
		NetworkError: networkErr,
	})
}

// notify publishes an update; delivery is best-effort and never fails a run.
func (o *Orchestrator) notify(ctx context.Context, payload messaging.StoryUpdatePayload) {
	if err := o.notifier.Notify(ctx, payload); err != nil {
		o.logger.Warn("Failed to publish run update",
			zap.String("taskId", payload.TaskID),
			zap.String("status", payload.Status),
			zap.Error(err))
	}
}

// sendPush delivers an out-of-app notification, best-effort.
func (o *Orchestrator) sendPush(ctx context.Context, ownerID, title, body string, data map[string]string) {
	tokens, err := o.profile.DeviceTokens(ctx, ownerID)
	if err != nil {
		o.logger.Warn("Failed to fetch device tokens", zap.String("ownerId", ownerID), zap.Error(err))
		return
	}
	if len(tokens) == 0 {
		return
	}
	if err := o.push.Send(ctx, tokens, title, body, data); err != nil {
		o.logger.Warn("Push delivery failed", zap.String("ownerId", ownerID), zap.Error(err))
	}
}

// scriptFailureMessage maps a script failure onto the owner-facing message.
func scriptFailureMessage(err error) string {
	switch retry.KindOf(err) {
	case retry.KindTransient:
		return "Connection trouble while writing the story. Please try again."
	case retry.KindPermission:
		return "The story service rejected our credentials. Please contact support."
	default:
		if strings.Contains(err.Error(), model.ErrScriptGeneration.Error()) {
			return "The story came out malformed. Please try again."
		}
		return "Could not write the story. Please try again."
	}
}

// assetFileName builds a collision-free object name for a page asset. The
// nonce keeps a regenerated asset from being served from a stale CDN cache
// of its predecessor.
func assetFileName(prefix string, pageIndex int) string {
	nonce := uuid.NewString()[:8]
	switch prefix {
	case "cover":
		return fmt.Sprintf("cover_%s.jpg", nonce)
	case "audio":
		return fmt.Sprintf("audio_%d_%s.wav", pageIndex, nonce)
	default:
		return fmt.Sprintf("img_%d_%s.jpg", pageIndex, nonce)
	}
}
