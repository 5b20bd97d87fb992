package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUploadTaskLifecycle(t *testing.T) {
	task := NewUploadTask(nil)
	assert.Equal(t, UploadIdle, task.Snapshot().State)

	assert.True(t, task.Begin())
	assert.Equal(t, UploadInProgress, task.Snapshot().State)
	assert.False(t, task.Begin(), "a second upload must wait for the first")

	task.SetProgress(37)
	assert.Equal(t, 37, task.Snapshot().Progress)

	task.Succeed("File uploaded successfully!")
	snap := task.Snapshot()
	assert.Equal(t, UploadSucceeded, snap.State)
	assert.Equal(t, 100, snap.Progress)
	assert.Equal(t, "File uploaded successfully!", snap.Message)
}

func TestUploadTaskFailureKeepsClassifiedMessage(t *testing.T) {
	task := NewUploadTask(nil)
	task.Begin()
	task.Fail("Upload failed: file is corrupted")

	snap := task.Snapshot()
	assert.Equal(t, UploadFailed, snap.State)
	assert.Equal(t, 0, snap.Progress)
	assert.Equal(t, "Upload failed: file is corrupted", snap.Message)
}

func TestUploadTaskResetClearsStateAndNotifies(t *testing.T) {
	resetCalled := false
	task := NewUploadTask(func() { resetCalled = true })
	task.Begin()
	task.Succeed("done")

	task.reset()

	snap := task.Snapshot()
	assert.Equal(t, UploadIdle, snap.State)
	assert.Equal(t, 0, snap.Progress)
	assert.Empty(t, snap.Message)
	assert.True(t, resetCalled, "reset must clear caller-held file-selection state")

	assert.True(t, task.Begin(), "task is reusable after reset")
}

func TestUploadTaskProgressIgnoredOutsideUploading(t *testing.T) {
	task := NewUploadTask(nil)
	task.SetProgress(50)
	assert.Equal(t, 0, task.Snapshot().Progress)

	task.Begin()
	task.SetProgress(120)
	assert.Equal(t, 100, task.Snapshot().Progress, "progress is clamped")

	task.Fail("x")
	task.SetProgress(10)
	assert.Equal(t, 0, task.Snapshot().Progress)
}
