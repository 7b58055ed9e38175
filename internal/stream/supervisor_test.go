package stream

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetURL(t *testing.T) {
	got, err := TargetURL("rtmp://ingest.example/app", "abc123")
	require.NoError(t, err)
	assert.Equal(t, "rtmp://ingest.example/app/abc123", got)

	got, err = TargetURL("rtmp://ingest.example/app/", "abc123")
	require.NoError(t, err)
	assert.Equal(t, "rtmp://ingest.example/app/abc123", got)

	got, err = TargetURL("rtmp://ingest.example/app/full", "")
	require.NoError(t, err)
	assert.Equal(t, "rtmp://ingest.example/app/full", got)

	_, err = TargetURL("  ", "key")
	assert.Error(t, err)
}

func TestBuildCommand(t *testing.T) {
	s := &Supervisor{}
	argv := s.BuildCommand(StartOptions{
		Input:        "in.mp4",
		Preset:       "veryfast",
		VideoBitrate: "4500k",
		AudioBitrate: "128k",
		BufferSize:   "9000k",
		Loop:         true,
	}, "rtmp://t/k")

	assert.Equal(t, "ffmpeg", argv[0])
	assert.Contains(t, argv, "-stream_loop")
	assert.Contains(t, argv, "libx264")
	assert.Contains(t, argv, "flv")
	assert.Equal(t, "rtmp://t/k", argv[len(argv)-1])

	noLoop := s.BuildCommand(StartOptions{Input: "in.mp4"}, "rtmp://t/k")
	assert.NotContains(t, noLoop, "-stream_loop")
}

func TestStatusNoMarkerMeansIdle(t *testing.T) {
	s := &Supervisor{Registry: &MemRegistry{}}
	st := s.Status()
	assert.False(t, st.Running)
	assert.Zero(t, st.PID)
}

func TestStatusStalePIDReportsNotRunning(t *testing.T) {
	reg := &MemRegistry{}
	require.NoError(t, reg.Write(Job{PID: 4242}))
	s := &Supervisor{Registry: reg, Alive: func(int) bool { return false }}

	st := s.Status()
	assert.False(t, st.Running)
	assert.Equal(t, 4242, st.PID, "stale pid is still reported for diagnostics")
}

func TestStatusToleratesMarkerWithoutMeta(t *testing.T) {
	dir := t.TempDir()
	reg := &FileRegistry{
		PIDFile:  filepath.Join(dir, "x_stream.pid"),
		MetaFile: filepath.Join(dir, "x_stream.json"),
		LogFile:  filepath.Join(dir, "x_stream.log"),
	}
	require.NoError(t, reg.Write(Job{PID: 777}))
	require.NoError(t, writeFile(reg.MetaFile, "{not json"))

	s := &Supervisor{Registry: reg, Alive: func(int) bool { return true }}
	st := s.Status()
	assert.True(t, st.Running)
	assert.Equal(t, 777, st.PID)
	assert.Zero(t, st.Meta, "corrupt metadata degrades to empty, never an error")
}

func TestStopWithoutMarker(t *testing.T) {
	s := &Supervisor{Registry: &MemRegistry{}}
	res, err := s.Stop()
	require.NoError(t, err)
	assert.False(t, res.Stopped)
	assert.Equal(t, "No running stream.", res.Message)
}

func TestStopSelfHealsStaleMarker(t *testing.T) {
	reg := &MemRegistry{}
	require.NoError(t, reg.Write(Job{PID: 99999}))
	s := &Supervisor{Registry: reg, Alive: func(int) bool { return false }}

	res, err := s.Stop()
	require.NoError(t, err)
	assert.False(t, res.Stopped)

	_, ok := reg.ReadPID()
	assert.False(t, ok, "stale marker cleared")
	assert.False(t, reg.HasMeta, "metadata cleared with it")
}

func TestStartRefusesWhenAlreadyRunning(t *testing.T) {
	reg := &MemRegistry{Log: filepath.Join(t.TempDir(), "x_stream.log")}
	require.NoError(t, reg.Write(Job{PID: 1234}))
	s := &Supervisor{
		Registry: reg,
		FFmpeg:   "/bin/true", // present on any unix CI host
		Alive:    func(int) bool { return true },
	}
	_, err := s.Start(context.Background(), StartOptions{Input: "in.mp4", RTMPURL: "rtmp://t"})
	var are *AlreadyRunningError
	require.ErrorAs(t, err, &are)
	assert.Equal(t, 1234, are.PID)
	assert.Contains(t, err.Error(), "1234")
}

func TestStartValidatesInput(t *testing.T) {
	s := &Supervisor{Registry: &MemRegistry{}, FFmpeg: "/bin/true"}
	_, err := s.Start(context.Background(), StartOptions{RTMPURL: "rtmp://t"})
	assert.ErrorContains(t, err, "--input is required")

	_, err = s.Start(context.Background(), StartOptions{Input: "in.mp4"})
	assert.ErrorContains(t, err, "--rtmp-url is required")
}

func TestStartMissingBinary(t *testing.T) {
	s := &Supervisor{Registry: &MemRegistry{}, FFmpeg: filepath.Join(t.TempDir(), "no-such-ffmpeg")}
	_, err := s.Start(context.Background(), StartOptions{Input: "in.mp4", RTMPURL: "rtmp://t"})
	assert.ErrorContains(t, err, "required for live streaming")
}

func TestFileRegistryPairLifecycle(t *testing.T) {
	dir := t.TempDir()
	reg := &FileRegistry{
		PIDFile:  filepath.Join(dir, "x_stream.pid"),
		MetaFile: filepath.Join(dir, "x_stream.json"),
		LogFile:  filepath.Join(dir, "x_stream.log"),
	}

	_, ok := reg.ReadPID()
	assert.False(t, ok)

	job := Job{PID: 31337, StartedAt: time.Now().Unix(), Input: "in.mp4", Target: "rtmp://t/k", Command: []string{"ffmpeg"}}
	require.NoError(t, reg.Write(job))

	pid, ok := reg.ReadPID()
	require.True(t, ok)
	assert.Equal(t, 31337, pid)
	assert.Equal(t, job, reg.ReadMeta())

	require.NoError(t, reg.Clear())
	_, ok = reg.ReadPID()
	assert.False(t, ok)
	assert.Zero(t, reg.ReadMeta())
	require.NoError(t, reg.Clear(), "clearing an empty registry is fine")
}

func TestFileRegistryCorruptPIDMarker(t *testing.T) {
	dir := t.TempDir()
	reg := &FileRegistry{PIDFile: filepath.Join(dir, "pid")}
	require.NoError(t, writeFile(reg.PIDFile, "not-a-pid"))
	_, ok := reg.ReadPID()
	assert.False(t, ok)
}
