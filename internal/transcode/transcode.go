// Package transcode runs the background video pipeline for draft
// submissions. Each job downloads the raw upload, spawns ffmpeg as a
// separate process, streams progress to the creator over the realtime
// channel, and stores the transcoded result.
package transcode

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/colabhq/campaignd/internal/realtime"
	"github.com/colabhq/campaignd/pkg/storage"
)

// TaskName is the queue task name draft submissions are enqueued under.
const TaskName = "video:transcode"

// resultPrefix is the storage prefix for transcoded output.
const resultPrefix = "drafts/transcoded"

// Payload describes one transcode job.
type Payload struct {
	SubmissionID string `json:"submission_id"`
	CreatorID    string `json:"creator_id"`

	// SourceKey is the storage key of the raw upload.
	SourceKey string `json:"source_key"`

	// DurationSeconds is the media duration probed at upload time. Zero
	// disables percentage progress; only start and completion are pushed.
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// Pusher delivers realtime events to a user's registered connection.
type Pusher interface {
	Push(userID, event string, data any) bool
}

// Task is the transcode queue task.
type Task struct {
	log     *slog.Logger
	store   storage.Storage
	tracker *realtime.Tracker
	pusher  Pusher

	ffmpegPath string
	workDir    string
}

// TaskOption configures the transcode task.
type TaskOption func(*Task)

// WithFFmpegPath overrides the ffmpeg binary path. Defaults to "ffmpeg"
// resolved from PATH.
func WithFFmpegPath(path string) TaskOption {
	return func(t *Task) {
		t.ffmpegPath = path
	}
}

// WithWorkDir overrides the scratch directory for intermediate files.
// Defaults to the OS temp directory.
func WithWorkDir(dir string) TaskOption {
	return func(t *Task) {
		t.workDir = dir
	}
}

// NewTask creates the transcode task.
func NewTask(log *slog.Logger, store storage.Storage, tracker *realtime.Tracker, pusher Pusher, opts ...TaskOption) *Task {
	t := &Task{
		log:        log,
		store:      store,
		tracker:    tracker,
		pusher:     pusher,
		ffmpegPath: "ffmpeg",
		workDir:    os.TempDir(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the queue task name.
func (t *Task) Name() string { return TaskName }

// Handle runs one transcode job. The tracker entry moves from queued to
// running when the process starts and is always removed on exit, so a
// cancelled handle never outlives its process.
func (t *Task) Handle(ctx context.Context, p Payload) error {
	if p.SubmissionID == "" || p.SourceKey == "" {
		return errors.New("transcode: submission id and source key are required")
	}

	// The queued handle is inserted when the job is enqueued. A missing
	// handle means the user cancelled before a worker picked the job up;
	// starting ffmpeg now would resurrect the cancelled job.
	if _, ok := t.tracker.Get(p.SubmissionID); !ok {
		t.log.InfoContext(ctx, "transcode cancelled while queued",
			slog.String("submission_id", p.SubmissionID),
		)
		return nil
	}

	defer t.tracker.Remove(p.SubmissionID)

	srcPath, err := t.download(ctx, p.SourceKey)
	if err != nil {
		return fmt.Errorf("download source: %w", err)
	}
	defer os.Remove(srcPath)

	outPath := filepath.Join(t.workDir, p.SubmissionID+".mp4")
	defer os.Remove(outPath)

	cmd := exec.CommandContext(ctx, t.ffmpegPath,
		"-i", srcPath,
		"-c:v", "libx264",
		"-preset", "medium",
		"-c:a", "aac",
		"-movflags", "+faststart",
		"-progress", "pipe:1",
		"-nostats",
		"-y", outPath,
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	// The handle was inserted as queued at enqueue time; overwrite it
	// with the live kill capability now that the process exists.
	t.tracker.Start(p.SubmissionID, cmd.Process.Kill, realtime.StatusRunning)
	t.push(p, 1)

	// Wait closes the stdout pipe, so the relay must finish reading
	// before the process is reaped or the tail of the stream is lost.
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		t.relayProgress(p, stdout)
	}()

	<-relayDone
	if err := cmd.Wait(); err != nil {
		// A killed process is a cancellation, not a failure to retry.
		if ctx.Err() != nil || strings.Contains(err.Error(), "killed") {
			t.log.InfoContext(ctx, "transcode cancelled",
				slog.String("submission_id", p.SubmissionID),
			)
			return nil
		}
		return fmt.Errorf("ffmpeg: %w", err)
	}

	if err := t.upload(ctx, p.SubmissionID, outPath); err != nil {
		return fmt.Errorf("upload result: %w", err)
	}

	t.push(p, 100)
	return nil
}

// download copies the raw upload from storage to a scratch file and
// returns its path.
func (t *Task) download(ctx context.Context, key string) (string, error) {
	rc, err := t.store.Get(ctx, key)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	f, err := os.CreateTemp(t.workDir, "transcode-src-*")
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, rc); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func (t *Task) upload(ctx context.Context, submissionID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return err
	}

	_, err = t.store.Put(ctx, f, stat.Size(),
		storage.WithKey(fmt.Sprintf("%s/%s.mp4", resultPrefix, submissionID)),
		storage.WithContentType("video/mp4"),
	)
	return err
}

// relayProgress parses ffmpeg's machine-readable progress stream and
// pushes percentage updates. Runs until the pipe closes with the process.
func (t *Task) relayProgress(p Payload, r io.Reader) {
	if p.DurationSeconds <= 0 {
		_, _ = io.Copy(io.Discard, r)
		return
	}

	last := -1
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		value, ok := strings.CutPrefix(line, "out_time_us=")
		if !ok {
			continue
		}

		us, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			continue
		}

		pct := int(float64(us) / 1e6 / p.DurationSeconds * 100)
		if pct > 99 {
			pct = 99
		}
		if pct > last {
			last = pct
			t.push(p, pct)
		}
	}
}

// push emits a progress event to the submitting creator. Best-effort; a
// disconnected creator just misses the update.
func (t *Task) push(p Payload, progress int) {
	t.pusher.Push(p.CreatorID, realtime.EventProgress, realtime.ProgressPayload{
		SubmissionID: p.SubmissionID,
		Progress:     progress,
	})
}
