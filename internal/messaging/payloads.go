package messaging

import "storybook-server/internal/model"

// Queue names. Tasks are consumed by the worker; updates go out to whatever
// pushes state to readers (websocket gateway, notification fan-out).
const (
	StoryTasksQueue   = "story_generation_tasks"
	StoryUpdatesQueue = "story_generation_updates"

	// Dead-letter wiring for the tasks queue.
	DeadLetterExchange = "storybook_dlx"
	StoryTasksDLQ      = "story_generation_tasks_dlq"
)

// Task types.
const (
	TaskTypeStart  = "start"
	TaskTypeResume = "resume"
)

// StoryTaskPayload is the unit of work published to StoryTasksQueue.
// For start tasks Params is the frozen run configuration; for resume tasks
// StoryID identifies the persisted draft and Params is ignored.
type StoryTaskPayload struct {
	TaskID  string             `json:"taskId"`
	Type    string             `json:"type"`
	OwnerID string             `json:"ownerId"`
	StoryID string             `json:"storyId,omitempty"`
	Params  *model.StoryParams `json:"params,omitempty"`
}

// Update statuses published to StoryUpdatesQueue.
const (
	StatusProgress  = "progress"
	StatusSuccess   = "success"
	StatusError     = "error"
	StatusResumable = "resumable"
)

// Stages reported in progress updates, in pipeline order.
const (
	StageSpendingCredits  = "spending_credits"
	StageGeneratingScript = "generating_script"
	StageGeneratingCover  = "generating_cover"
	StageGeneratingPage   = "generating_page"
)

// StoryUpdatePayload is one observable state transition of a generation run.
type StoryUpdatePayload struct {
	TaskID       string `json:"taskId"`
	OwnerID      string `json:"ownerId"`
	StoryID      string `json:"storyId,omitempty"`
	Status       string `json:"status"`
	Stage        string `json:"stage,omitempty"`
	PageIndex    int    `json:"pageIndex,omitempty"`
	PageCount    int    `json:"pageCount,omitempty"`
	ErrorDetails string `json:"errorDetails,omitempty"`
	// NetworkError distinguishes "check your connection and resume" from
	// errors that retrying will not fix.
	NetworkError bool `json:"networkError,omitempty"`
}
