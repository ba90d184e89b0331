package campaign

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colabhq/campaignd/internal/notification"
	"github.com/colabhq/campaignd/pkg/logger"
)

type memStore struct {
	campaigns   map[string]*Campaign
	tasks       map[string]*Task
	submissions map[string]*Submission
	feedback    []Feedback
}

func newMemStore() *memStore {
	return &memStore{
		campaigns:   make(map[string]*Campaign),
		tasks:       make(map[string]*Task),
		submissions: make(map[string]*Submission),
	}
}

func (s *memStore) GetCampaign(_ context.Context, id string) (*Campaign, error) {
	c, ok := s.campaigns[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *memStore) GetTask(_ context.Context, id string) (*Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

func (s *memStore) ListTasks(_ context.Context, campaignID string) ([]Task, error) {
	var out []Task
	for _, t := range s.tasks {
		if t.CampaignID == campaignID {
			out = append(out, *t)
		}
	}
	for i := range out {
		for j := i + 1; j < len(out); j++ {
			if out[j].Position < out[i].Position {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (s *memStore) UpdateTaskStatus(_ context.Context, taskID string, status TaskStatus) error {
	t, ok := s.tasks[taskID]
	if !ok {
		return ErrNotFound
	}
	t.Status = status
	return nil
}

func (s *memStore) CreateSubmission(_ context.Context, sub *Submission) error {
	cp := *sub
	s.submissions[sub.ID] = &cp
	return nil
}

func (s *memStore) GetSubmission(_ context.Context, id string) (*Submission, error) {
	sub, ok := s.submissions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sub, nil
}

func (s *memStore) ListSubmissions(_ context.Context, taskID string) ([]Submission, error) {
	var out []Submission
	for _, sub := range s.submissions {
		if sub.TaskID == taskID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (s *memStore) CreateFeedback(_ context.Context, f *Feedback) error {
	s.feedback = append(s.feedback, *f)
	return nil
}

func (s *memStore) WithTx(pgx.Tx) Store { return s }

type recordedNotice struct {
	userID  string
	message string
}

type recordingNotifier struct {
	notices []recordedNotice
}

func (n *recordingNotifier) Notify(_ context.Context, userID, message string, _ notification.Category, _ string) (*notification.Notification, error) {
	n.notices = append(n.notices, recordedNotice{userID: userID, message: message})
	return &notification.Notification{UserID: userID, Message: message}, nil
}

func (n *recordingNotifier) NotifyAll(ctx context.Context, userIDs []string, message string, category notification.Category, relatedID string) error {
	for _, userID := range userIDs {
		if _, err := n.Notify(ctx, userID, message, category, relatedID); err != nil {
			return err
		}
	}
	return nil
}

// fixture seeds one campaign with two ordered tasks: an agreement task in
// progress and a first-draft task not yet opened.
func newFixture(t *testing.T) (*Service, *memStore, *recordingNotifier) {
	t.Helper()

	store := newMemStore()
	store.campaigns["cmp-1"] = &Campaign{
		ID:        "cmp-1",
		Title:     "Summer Launch",
		CreatorID: "creator-1",
		AdminIDs:  []string{"admin-1", "admin-2"},
		CreatedAt: time.Now().UTC(),
	}
	store.tasks["task-agreement"] = &Task{
		ID:         "task-agreement",
		CampaignID: "cmp-1",
		Title:      "Agreement Form",
		Position:   1,
		Status:     TaskInProgress,
	}
	store.tasks["task-draft"] = &Task{
		ID:         "task-draft",
		CampaignID: "cmp-1",
		Title:      "First Draft",
		Position:   2,
		Status:     TaskChangesRequired,
	}

	notifier := &recordingNotifier{}
	return NewService(logger.NewNope(), store, notifier), store, notifier
}

func TestService_SubmitAgreement(t *testing.T) {
	t.Parallel()

	svc, store, notifier := newFixture(t)

	sub, err := svc.SubmitAgreement(context.Background(), "creator-1", "task-agreement", "https://cdn.example.com/agreement.pdf")
	require.NoError(t, err)

	assert.Equal(t, KindAgreement, sub.Kind)
	assert.Equal(t, "cmp-1", sub.CampaignID)
	assert.Equal(t, TaskPendingReview, store.tasks["task-agreement"].Status)

	// Both campaign admins hear about the new submission, and the
	// creator gets an upload confirmation.
	require.Len(t, notifier.notices, 3)
	assert.Equal(t, "admin-1", notifier.notices[0].userID)
	assert.Equal(t, "admin-2", notifier.notices[1].userID)
	assert.Equal(t, "creator-1", notifier.notices[2].userID)
	assert.Equal(t, "Agreement Form for Campaign Summer Launch is submitted.", notifier.notices[2].message)
}

func TestService_SubmitDraft_ConfirmsCreator(t *testing.T) {
	t.Parallel()

	svc, store, notifier := newFixture(t)

	sub, err := svc.SubmitDraftTx(context.Background(), nil, "creator-1", "task-draft", "https://cdn.example.com/draft.mp4")
	require.NoError(t, err)

	assert.Equal(t, KindDraft, sub.Kind)
	assert.Equal(t, TaskPendingReview, store.tasks["task-draft"].Status)

	require.Len(t, notifier.notices, 3)
	assert.Equal(t, "creator-1", notifier.notices[2].userID)
	assert.Equal(t, "Draft for Campaign Summer Launch is submitted.", notifier.notices[2].message)
}

func TestService_Submit_RequiresFile(t *testing.T) {
	t.Parallel()

	svc, _, _ := newFixture(t)
	_, err := svc.SubmitAgreement(context.Background(), "creator-1", "task-agreement", "")
	assert.ErrorIs(t, err, ErrFileRequired)
}

func TestService_Submit_UnknownTask(t *testing.T) {
	t.Parallel()

	svc, _, _ := newFixture(t)
	_, err := svc.SubmitAgreement(context.Background(), "creator-1", "task-ghost", "https://cdn.example.com/f.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Review_Approve(t *testing.T) {
	t.Parallel()

	svc, store, notifier := newFixture(t)

	sub, err := svc.SubmitAgreement(context.Background(), "creator-1", "task-agreement", "https://cdn.example.com/agreement.pdf")
	require.NoError(t, err)
	notifier.notices = nil

	require.NoError(t, svc.Review(context.Background(), "admin-1", sub.ID, DecisionApprove, ""))

	assert.Equal(t, TaskCompleted, store.tasks["task-agreement"].Status)
	assert.Equal(t, TaskInProgress, store.tasks["task-draft"].Status)

	// Exactly one notification for the creator announcing the next step.
	require.Len(t, notifier.notices, 1)
	assert.Equal(t, "creator-1", notifier.notices[0].userID)
	assert.Equal(t, "First Draft is open for submission", notifier.notices[0].message)
}

func TestService_Review_ApproveLastTask(t *testing.T) {
	t.Parallel()

	svc, store, notifier := newFixture(t)

	sub, err := svc.SubmitDraft(context.Background(), "creator-1", "task-draft", "https://cdn.example.com/draft.mp4")
	require.NoError(t, err)
	notifier.notices = nil

	require.NoError(t, svc.Review(context.Background(), "admin-1", sub.ID, DecisionApprove, ""))

	assert.Equal(t, TaskCompleted, store.tasks["task-draft"].Status)

	// No successor to open; the creator still hears about the approval.
	require.Len(t, notifier.notices, 1)
	assert.Equal(t, "Agreement approved", notifier.notices[0].message)
}

func TestService_Review_Reject(t *testing.T) {
	t.Parallel()

	svc, store, notifier := newFixture(t)

	sub, err := svc.SubmitAgreement(context.Background(), "creator-1", "task-agreement", "https://cdn.example.com/agreement.pdf")
	require.NoError(t, err)
	notifier.notices = nil

	require.NoError(t, svc.Review(context.Background(), "admin-2", sub.ID, DecisionReject, "signature missing"))

	assert.Equal(t, TaskChangesRequired, store.tasks["task-agreement"].Status)

	require.Len(t, store.feedback, 1)
	assert.Equal(t, sub.ID, store.feedback[0].SubmissionID)
	assert.Equal(t, "admin-2", store.feedback[0].AdminID)
	assert.Equal(t, "signature missing", store.feedback[0].Comment)

	require.Len(t, notifier.notices, 1)
	assert.Equal(t, "creator-1", notifier.notices[0].userID)
	assert.Equal(t, "Please Resubmit Your Agreement Form for Summer Launch", notifier.notices[0].message)
}

func TestService_Review_RejectsNonAdmin(t *testing.T) {
	t.Parallel()

	svc, store, _ := newFixture(t)

	sub, err := svc.SubmitAgreement(context.Background(), "creator-1", "task-agreement", "https://cdn.example.com/agreement.pdf")
	require.NoError(t, err)

	err = svc.Review(context.Background(), "creator-1", sub.ID, DecisionApprove, "")
	assert.ErrorIs(t, err, ErrNotAdmin)
	assert.Equal(t, TaskPendingReview, store.tasks["task-agreement"].Status)
}

func TestService_Review_UnknownDecision(t *testing.T) {
	t.Parallel()

	svc, _, _ := newFixture(t)

	sub, err := svc.SubmitAgreement(context.Background(), "creator-1", "task-agreement", "https://cdn.example.com/agreement.pdf")
	require.NoError(t, err)

	err = svc.Review(context.Background(), "admin-1", sub.ID, Decision("maybe"), "")
	assert.ErrorIs(t, err, ErrUnknownDecision)
}

func TestService_Review_UnknownSubmission(t *testing.T) {
	t.Parallel()

	svc, _, _ := newFixture(t)
	err := svc.Review(context.Background(), "admin-1", "sub-ghost", DecisionApprove, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Submissions(t *testing.T) {
	t.Parallel()

	svc, _, _ := newFixture(t)

	_, err := svc.SubmitAgreement(context.Background(), "creator-1", "task-agreement", "https://cdn.example.com/v1.pdf")
	require.NoError(t, err)
	_, err = svc.SubmitAgreement(context.Background(), "creator-1", "task-agreement", "https://cdn.example.com/v2.pdf")
	require.NoError(t, err)

	subs, err := svc.Submissions(context.Background(), "task-agreement")
	require.NoError(t, err)
	assert.Len(t, subs, 2)
}
