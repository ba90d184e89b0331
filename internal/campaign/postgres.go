package campaign

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is the query surface shared by pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists campaigns, tasks, submissions, and feedback.
type PostgresStore struct {
	db querier
}

// NewPostgresStore creates a Postgres-backed campaign store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: pool}
}

// WithTx returns a store bound to tx instead of the pool.
func (s *PostgresStore) WithTx(tx pgx.Tx) Store {
	return &PostgresStore{db: tx}
}

func (s *PostgresStore) GetCampaign(ctx context.Context, id string) (*Campaign, error) {
	var c Campaign
	err := s.db.QueryRow(ctx, `
		SELECT id, title, creator_id, created_at
		FROM campaigns WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Title, &c.CreatorID, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT user_id FROM campaign_admins WHERE campaign_id = $1`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	c.AdminIDs, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var userID string
		err := row.Scan(&userID)
		return userID, err
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) GetTask(ctx context.Context, id string) (*Task, error) {
	var t Task
	err := s.db.QueryRow(ctx, `
		SELECT id, campaign_id, title, position, status
		FROM campaign_tasks WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.CampaignID, &t.Title, &t.Position, &t.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PostgresStore) ListTasks(ctx context.Context, campaignID string) ([]Task, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, campaign_id, title, position, status
		FROM campaign_tasks WHERE campaign_id = $1
		ORDER BY position ASC`,
		campaignID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Task, error) {
		var t Task
		err := row.Scan(&t.ID, &t.CampaignID, &t.Title, &t.Position, &t.Status)
		return t, err
	})
}

func (s *PostgresStore) UpdateTaskStatus(ctx context.Context, taskID string, status TaskStatus) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE campaign_tasks SET status = $2 WHERE id = $1`,
		taskID, status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateSubmission(ctx context.Context, sub *Submission) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO submissions (id, task_id, campaign_id, creator_id, kind, file_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sub.ID, sub.TaskID, sub.CampaignID, sub.CreatorID, sub.Kind, sub.FileURL, sub.CreatedAt,
	)
	return err
}

func (s *PostgresStore) GetSubmission(ctx context.Context, id string) (*Submission, error) {
	var sub Submission
	err := s.db.QueryRow(ctx, `
		SELECT id, task_id, campaign_id, creator_id, kind, file_url, created_at
		FROM submissions WHERE id = $1`,
		id,
	).Scan(&sub.ID, &sub.TaskID, &sub.CampaignID, &sub.CreatorID, &sub.Kind, &sub.FileURL, &sub.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *PostgresStore) ListSubmissions(ctx context.Context, taskID string) ([]Submission, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, task_id, campaign_id, creator_id, kind, file_url, created_at
		FROM submissions WHERE task_id = $1
		ORDER BY created_at DESC`,
		taskID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Submission, error) {
		var sub Submission
		err := row.Scan(&sub.ID, &sub.TaskID, &sub.CampaignID, &sub.CreatorID, &sub.Kind, &sub.FileURL, &sub.CreatedAt)
		return sub, err
	})
}

func (s *PostgresStore) CreateFeedback(ctx context.Context, f *Feedback) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO feedback (id, submission_id, admin_id, comment, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		f.ID, f.SubmissionID, f.AdminID, f.Comment, f.CreatedAt,
	)
	return err
}
