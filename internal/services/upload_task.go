package services

import (
	"sync"
	"time"
)

// UploadState is the upload pipeline's display state machine:
// Idle -> Uploading -> {Succeeded, Failed} -> Idle.
type UploadState int

const (
	UploadIdle UploadState = iota
	UploadInProgress
	UploadSucceeded
	UploadFailed
)

func (s UploadState) String() string {
	switch s {
	case UploadIdle:
		return "idle"
	case UploadInProgress:
		return "uploading"
	case UploadSucceeded:
		return "succeeded"
	case UploadFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// UploadResetDelay is the display window after a terminal state before the
// task auto-returns to Idle.
const UploadResetDelay = 3 * time.Second

// UploadTaskSnapshot is a point-in-time view of the task.
type UploadTaskSnapshot struct {
	State    UploadState
	Progress int // percent, 0-100
	Message  string
}

// UploadTask tracks one transient upload for display purposes. It is created
// on file selection, fed progress by the dispatcher, terminated by success
// or failure, and discarded (reset) after the display window.
type UploadTask struct {
	mu       sync.Mutex
	state    UploadState
	progress int
	message  string
	timer    *time.Timer
	onReset  func() // clears any caller-held file-selection state
}

// NewUploadTask builds an idle task. onReset may be nil.
func NewUploadTask(onReset func()) *UploadTask {
	return &UploadTask{onReset: onReset}
}

// Begin moves the task to Uploading. Returns false while another upload is
// still in flight.
func (t *UploadTask) Begin() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == UploadInProgress {
		return false
	}
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.state = UploadInProgress
	t.progress = 0
	t.message = ""
	return true
}

// SetProgress records the current percentage while uploading.
func (t *UploadTask) SetProgress(percent int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != UploadInProgress {
		return
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	t.progress = percent
}

// Succeed terminates the task successfully and schedules the auto-reset.
func (t *UploadTask) Succeed(message string) {
	t.finish(UploadSucceeded, 100, message)
}

// Fail terminates the task with a classified failure message and schedules
// the auto-reset.
func (t *UploadTask) Fail(message string) {
	t.finish(UploadFailed, 0, message)
}

// Snapshot returns the current display state.
func (t *UploadTask) Snapshot() UploadTaskSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return UploadTaskSnapshot{State: t.state, Progress: t.progress, Message: t.message}
}

func (t *UploadTask) finish(state UploadState, progress int, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != UploadInProgress {
		return
	}
	t.state = state
	t.progress = progress
	t.message = message
	t.timer = time.AfterFunc(UploadResetDelay, t.reset)
}

func (t *UploadTask) reset() {
	t.mu.Lock()
	t.state = UploadIdle
	t.progress = 0
	t.message = ""
	t.timer = nil
	onReset := t.onReset
	t.mu.Unlock()
	if onReset != nil {
		onReset()
	}
}
