// Package campaign implements the campaign workflow: creators submit
// agreement forms and drafts against campaign tasks, admins review them,
// and decisions advance the task pipeline and notify the creator.
package campaign

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// TaskStatus is the workflow state of a campaign task.
type TaskStatus string

const (
	TaskInProgress      TaskStatus = "IN_PROGRESS"
	TaskPendingReview   TaskStatus = "PENDING_REVIEW"
	TaskCompleted       TaskStatus = "COMPLETED"
	TaskChangesRequired TaskStatus = "CHANGES_REQUIRED"
)

// SubmissionKind distinguishes agreement forms from draft videos.
type SubmissionKind string

const (
	KindAgreement SubmissionKind = "agreement"
	KindDraft     SubmissionKind = "draft"
)

// Campaign is a brand campaign a creator works on.
type Campaign struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatorID string    `json:"creatorId"`
	AdminIDs  []string  `json:"adminIds"`
	CreatedAt time.Time `json:"createdAt"`
}

// Task is one step of a campaign's pipeline. Position orders tasks within
// the campaign; completing a task moves its successor to IN_PROGRESS.
type Task struct {
	ID         string     `json:"id"`
	CampaignID string     `json:"campaignId"`
	Title      string     `json:"title"`
	Position   int        `json:"position"`
	Status     TaskStatus `json:"status"`
}

// Submission is a file a creator submitted against a task.
type Submission struct {
	ID         string         `json:"id"`
	TaskID     string         `json:"taskId"`
	CampaignID string         `json:"campaignId"`
	CreatorID  string         `json:"creatorId"`
	Kind       SubmissionKind `json:"kind"`
	FileURL    string         `json:"fileUrl"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Feedback is an admin's review note attached to a rejected submission.
type Feedback struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submissionId"`
	AdminID      string    `json:"adminId"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Store defines campaign persistence.
type Store interface {
	// GetCampaign returns a campaign with its admin list.
	GetCampaign(ctx context.Context, id string) (*Campaign, error)

	// GetTask returns a single task.
	GetTask(ctx context.Context, id string) (*Task, error)

	// ListTasks returns a campaign's tasks ordered by position.
	ListTasks(ctx context.Context, campaignID string) ([]Task, error)

	// UpdateTaskStatus moves a task to a new workflow state.
	UpdateTaskStatus(ctx context.Context, taskID string, status TaskStatus) error

	// CreateSubmission persists a new submission.
	CreateSubmission(ctx context.Context, sub *Submission) error

	// GetSubmission returns a single submission.
	GetSubmission(ctx context.Context, id string) (*Submission, error)

	// ListSubmissions returns a task's submissions, newest first.
	ListSubmissions(ctx context.Context, taskID string) ([]Submission, error)

	// CreateFeedback persists an admin review note.
	CreateFeedback(ctx context.Context, f *Feedback) error

	// WithTx returns a store whose writes run inside tx, so a submission
	// can commit atomically with its transcode enqueue. Non-transactional
	// stores return themselves.
	WithTx(tx pgx.Tx) Store
}

var (
	// ErrNotFound is returned when a campaign, task, or submission does
	// not exist.
	ErrNotFound = errors.New("campaign: not found")

	// ErrFileRequired is returned on a submission without a file.
	ErrFileRequired = errors.New("campaign: file url is required")

	// ErrNotAdmin is returned when the reviewer is not an admin of the
	// submission's campaign.
	ErrNotAdmin = errors.New("campaign: reviewer is not a campaign admin")

	// ErrUnknownDecision is returned on a review decision other than
	// approve or reject.
	ErrUnknownDecision = errors.New("campaign: unknown review decision")
)
