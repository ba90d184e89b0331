package campaign

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/colabhq/campaignd/internal/notification"
)

// Decision is an admin's verdict on a submission.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Notifier creates durable notifications with best-effort push delivery.
// Implemented by notification.Dispatcher.
type Notifier interface {
	Notify(ctx context.Context, userID, message string, category notification.Category, relatedID string) (*notification.Notification, error)
	NotifyAll(ctx context.Context, userIDs []string, message string, category notification.Category, relatedID string) error
}

// Service runs the campaign workflow on top of the store. All mutations
// from HTTP controllers and background jobs go through here so the task
// pipeline advances in exactly one place.
type Service struct {
	log      *slog.Logger
	store    Store
	notifier Notifier
}

// NewService creates the campaign service.
func NewService(log *slog.Logger, store Store, notifier Notifier) *Service {
	return &Service{log: log, store: store, notifier: notifier}
}

// SubmitAgreement records an agreement-form upload against a task and
// moves the task to PENDING_REVIEW. Campaign admins are notified so the
// review queue surfaces the submission.
func (s *Service) SubmitAgreement(ctx context.Context, creatorID, taskID, fileURL string) (*Submission, error) {
	return s.submit(ctx, s.store, creatorID, taskID, fileURL, KindAgreement)
}

// SubmitDraft records a draft-video upload against a task and moves the
// task to PENDING_REVIEW. The caller is responsible for enqueueing the
// transcode job for the stored file.
func (s *Service) SubmitDraft(ctx context.Context, creatorID, taskID, fileURL string) (*Submission, error) {
	return s.submit(ctx, s.store, creatorID, taskID, fileURL, KindDraft)
}

// SubmitDraftTx is SubmitDraft with the writes bound to tx, so the
// caller can commit the submission atomically with its transcode
// enqueue.
func (s *Service) SubmitDraftTx(ctx context.Context, tx pgx.Tx, creatorID, taskID, fileURL string) (*Submission, error) {
	return s.submit(ctx, s.store.WithTx(tx), creatorID, taskID, fileURL, KindDraft)
}

func (s *Service) submit(ctx context.Context, store Store, creatorID, taskID, fileURL string, kind SubmissionKind) (*Submission, error) {
	if fileURL == "" {
		return nil, ErrFileRequired
	}

	task, err := store.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	sub := &Submission{
		ID:         uuid.NewString(),
		TaskID:     task.ID,
		CampaignID: task.CampaignID,
		CreatorID:  creatorID,
		Kind:       kind,
		FileURL:    fileURL,
		CreatedAt:  time.Now().UTC(),
	}
	if err := store.CreateSubmission(ctx, sub); err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}

	if err := store.UpdateTaskStatus(ctx, task.ID, TaskPendingReview); err != nil {
		return nil, fmt.Errorf("update task status: %w", err)
	}

	cmp, err := store.GetCampaign(ctx, task.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}

	// Notification failures never roll the upload back; the submission
	// is already durable.
	adminMsg := fmt.Sprintf("New %s submitted for %s", kind, cmp.Title)
	if err := s.notifier.NotifyAll(ctx, cmp.AdminIDs, adminMsg, notification.CategoryAgreement, sub.ID); err != nil {
		s.log.ErrorContext(ctx, "notify campaign admins",
			slog.String("submission_id", sub.ID),
			slog.Any("error", err),
		)
	}

	// The creator gets a confirmation of their own upload.
	creatorMsg := fmt.Sprintf("Agreement Form for Campaign %s is submitted.", cmp.Title)
	category := notification.CategoryAgreement
	if kind == KindDraft {
		creatorMsg = fmt.Sprintf("Draft for Campaign %s is submitted.", cmp.Title)
		category = notification.CategoryDraft
	}
	if _, err := s.notifier.Notify(ctx, creatorID, creatorMsg, category, sub.ID); err != nil {
		s.log.ErrorContext(ctx, "notify creator",
			slog.String("submission_id", sub.ID),
			slog.Any("error", err),
		)
	}

	return sub, nil
}

// Review applies an admin decision to a submission.
//
// Approve completes the submission's task, opens the successor task, and
// notifies the creator that the next step is available. Reject moves the
// task to CHANGES_REQUIRED, records the admin's feedback against the
// submission, and asks the creator to resubmit.
func (s *Service) Review(ctx context.Context, adminID, submissionID string, decision Decision, comment string) error {
	sub, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("get submission: %w", err)
	}

	cmp, err := s.store.GetCampaign(ctx, sub.CampaignID)
	if err != nil {
		return fmt.Errorf("get campaign: %w", err)
	}
	if !isAdmin(cmp, adminID) {
		return ErrNotAdmin
	}

	switch decision {
	case DecisionApprove:
		return s.approve(ctx, cmp, sub)
	case DecisionReject:
		return s.reject(ctx, cmp, sub, adminID, comment)
	default:
		return ErrUnknownDecision
	}
}

func (s *Service) approve(ctx context.Context, cmp *Campaign, sub *Submission) error {
	if err := s.store.UpdateTaskStatus(ctx, sub.TaskID, TaskCompleted); err != nil {
		return fmt.Errorf("complete task: %w", err)
	}

	next, err := s.successor(ctx, cmp.ID, sub.TaskID)
	if err != nil {
		return err
	}

	msg := "Agreement approved"
	relatedID := sub.ID
	if next != nil {
		if err := s.store.UpdateTaskStatus(ctx, next.ID, TaskInProgress); err != nil {
			return fmt.Errorf("open successor task: %w", err)
		}
		msg = "First Draft is open for submission"
		relatedID = next.ID
	}

	if _, err := s.notifier.Notify(ctx, sub.CreatorID, msg, notification.CategoryDraft, relatedID); err != nil {
		return fmt.Errorf("notify creator: %w", err)
	}
	return nil
}

func (s *Service) reject(ctx context.Context, cmp *Campaign, sub *Submission, adminID, comment string) error {
	if err := s.store.UpdateTaskStatus(ctx, sub.TaskID, TaskChangesRequired); err != nil {
		return fmt.Errorf("update task status: %w", err)
	}

	fb := &Feedback{
		ID:           uuid.NewString(),
		SubmissionID: sub.ID,
		AdminID:      adminID,
		Comment:      comment,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateFeedback(ctx, fb); err != nil {
		return fmt.Errorf("create feedback: %w", err)
	}

	msg := fmt.Sprintf("Please Resubmit Your Agreement Form for %s", cmp.Title)
	if _, err := s.notifier.Notify(ctx, sub.CreatorID, msg, notification.CategoryAgreement, sub.ID); err != nil {
		return fmt.Errorf("notify creator: %w", err)
	}
	return nil
}

// Submissions lists a task's submissions, newest first.
func (s *Service) Submissions(ctx context.Context, taskID string) ([]Submission, error) {
	return s.store.ListSubmissions(ctx, taskID)
}

// successor finds the task positioned directly after taskID in its
// campaign, or nil when taskID is the last task.
func (s *Service) successor(ctx context.Context, campaignID, taskID string) (*Task, error) {
	tasks, err := s.store.ListTasks(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	for i, t := range tasks {
		if t.ID == taskID && i+1 < len(tasks) {
			next := tasks[i+1]
			return &next, nil
		}
	}
	return nil, nil
}

func isAdmin(cmp *Campaign, userID string) bool {
	for _, id := range cmp.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
