//go:build !windows

package stream

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTranscoder writes an executable script standing in for ffmpeg.
func stubTranscoder(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func fileRegistry(t *testing.T) *FileRegistry {
	t.Helper()
	dir := t.TempDir()
	return &FileRegistry{
		PIDFile:  filepath.Join(dir, "x_stream.pid"),
		MetaFile: filepath.Join(dir, "x_stream.json"),
		LogFile:  filepath.Join(dir, "x_stream.log"),
	}
}

func TestStartStatusStopRoundTrip(t *testing.T) {
	reg := fileRegistry(t)
	s := &Supervisor{
		Registry:     reg,
		FFmpeg:       stubTranscoder(t, "sleep 30"),
		Grace:        150 * time.Millisecond,
		StopTimeout:  3 * time.Second,
		PollInterval: 25 * time.Millisecond,
	}

	job, err := s.Start(context.Background(), StartOptions{
		Input:        "in.mp4",
		RTMPURL:      "rtmp://ingest.example/app",
		StreamKey:    "key",
		Preset:       "veryfast",
		VideoBitrate: "4500k",
		AudioBitrate: "128k",
		BufferSize:   "9000k",
	})
	require.NoError(t, err)
	assert.Greater(t, job.PID, 0)
	assert.Equal(t, "rtmp://ingest.example/app/key", job.Target)

	st := s.Status()
	assert.True(t, st.Running)
	assert.Equal(t, job.PID, st.PID)
	assert.Equal(t, job.Target, st.Meta.Target)

	res, err := s.Stop()
	require.NoError(t, err)
	assert.True(t, res.Stopped)
	assert.Equal(t, job.PID, res.PID)

	// Both persisted artifacts are gone.
	_, statErr := os.Stat(reg.PIDFile)
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(reg.MetaFile)
	assert.True(t, os.IsNotExist(statErr))

	assert.False(t, s.Status().Running)
}

func TestStartLaunchFailure(t *testing.T) {
	reg := fileRegistry(t)
	s := &Supervisor{
		Registry: reg,
		FFmpeg:   stubTranscoder(t, "echo boom >&2; exit 3"),
		Grace:    2 * time.Second,
	}

	_, err := s.Start(context.Background(), StartOptions{Input: "in.mp4", RTMPURL: "rtmp://t"})
	var lfe *LaunchFailedError
	require.ErrorAs(t, err, &lfe)
	assert.Equal(t, 3, lfe.ExitCode)
	assert.Equal(t, reg.LogFile, lfe.LogPath)

	// The failed launch never becomes a tracked job.
	_, ok := reg.ReadPID()
	assert.False(t, ok)

	// The captured log holds the subprocess output.
	b, readErr := os.ReadFile(reg.LogFile)
	require.NoError(t, readErr)
	assert.Contains(t, string(b), "boom")
}

func TestStartTwiceOnLiveProcess(t *testing.T) {
	reg := fileRegistry(t)
	s := &Supervisor{
		Registry:     reg,
		FFmpeg:       stubTranscoder(t, "sleep 30"),
		Grace:        150 * time.Millisecond,
		StopTimeout:  3 * time.Second,
		PollInterval: 25 * time.Millisecond,
	}
	t.Cleanup(func() { _, _ = s.Stop() })

	job, err := s.Start(context.Background(), StartOptions{Input: "in.mp4", RTMPURL: "rtmp://t"})
	require.NoError(t, err)

	_, err = s.Start(context.Background(), StartOptions{Input: "in.mp4", RTMPURL: "rtmp://t"})
	var are *AlreadyRunningError
	require.ErrorAs(t, err, &are)
	assert.Equal(t, job.PID, are.PID)
}
