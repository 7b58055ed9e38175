package stream

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"xlocal/internal/fault"
)

// AlreadyRunningError is returned by Start when a live job already exists.
// Only one stream may be active for the whole installation.
type AlreadyRunningError struct {
	PID int
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("stream already running (pid=%d)", e.PID)
}

func (e *AlreadyRunningError) UserFacing() {}

// LaunchFailedError is returned when the subprocess dies within the grace
// period after launch.
type LaunchFailedError struct {
	ExitCode int
	LogPath  string
}

func (e *LaunchFailedError) Error() string {
	return fmt.Sprintf("ffmpeg exited immediately with code %d; see %s", e.ExitCode, e.LogPath)
}

func (e *LaunchFailedError) UserFacing() {}

// StartOptions describe one ffmpeg launch.
type StartOptions struct {
	Input        string
	RTMPURL      string
	StreamKey    string
	Loop         bool
	Preset       string
	VideoBitrate string
	AudioBitrate string
	BufferSize   string
}

// Status is the supervisor's observable state.
type Status struct {
	Running bool   `json:"running"`
	PID     int    `json:"pid,omitempty"`
	Meta    Job    `json:"meta,omitzero"`
	LogFile string `json:"log_file,omitempty"`
}

// StopResult reports the outcome of a Stop call. A missing or stale job is
// reported, not failed.
type StopResult struct {
	Stopped bool   `json:"stopped"`
	PID     int    `json:"pid,omitempty"`
	Message string `json:"message,omitempty"`
	LogFile string `json:"log_file,omitempty"`
}

// Supervisor owns the subprocess lifecycle: idle -> starting -> running ->
// stopping -> idle, where "no persisted state" means idle.
type Supervisor struct {
	Registry Registry
	FFmpeg   string // binary name or path; defaults to "ffmpeg"

	// Alive is the non-destructive liveness probe; defaults to gopsutil
	// PidExists. Injected by tests.
	Alive func(pid int) bool

	Grace        time.Duration // post-launch exit sampling window, default 2s
	StopTimeout  time.Duration // graceful-termination budget, default 8s
	PollInterval time.Duration // liveness poll cadence, default 250ms

	Log *slog.Logger
}

func (s *Supervisor) ffmpeg() string {
	if s.FFmpeg != "" {
		return s.FFmpeg
	}
	return "ffmpeg"
}

func (s *Supervisor) alive(pid int) bool {
	if s.Alive != nil {
		return s.Alive(pid)
	}
	ok, err := process.PidExists(int32(pid))
	return err == nil && ok
}

func (s *Supervisor) grace() time.Duration {
	if s.Grace > 0 {
		return s.Grace
	}
	return 2 * time.Second
}

func (s *Supervisor) stopTimeout() time.Duration {
	if s.StopTimeout > 0 {
		return s.StopTimeout
	}
	return 8 * time.Second
}

func (s *Supervisor) pollInterval() time.Duration {
	if s.PollInterval > 0 {
		return s.PollInterval
	}
	return 250 * time.Millisecond
}

// TargetURL joins the ingest base URL with an optional stream key.
func TargetURL(rtmpURL, streamKey string) (string, error) {
	base := strings.TrimSpace(rtmpURL)
	if base == "" {
		return "", fault.Userf("--rtmp-url is required")
	}
	key := strings.TrimSpace(streamKey)
	if key == "" {
		return base, nil
	}
	if strings.HasSuffix(base, "/") {
		return base + key, nil
	}
	return base + "/" + key, nil
}

// BuildCommand assembles the full transcoder argv for the given options.
func (s *Supervisor) BuildCommand(opts StartOptions, target string) []string {
	cmd := []string{s.ffmpeg(), "-hide_banner", "-loglevel", "warning"}
	if opts.Loop {
		cmd = append(cmd, "-stream_loop", "-1")
	}
	cmd = append(cmd,
		"-re",
		"-i", opts.Input,
		"-c:v", "libx264",
		"-preset", opts.Preset,
		"-b:v", opts.VideoBitrate,
		"-maxrate", opts.VideoBitrate,
		"-bufsize", opts.BufferSize,
		"-pix_fmt", "yuv420p",
		"-g", "60",
		"-c:a", "aac",
		"-b:a", opts.AudioBitrate,
		"-ar", "44100",
		"-f", "flv",
		target,
	)
	return cmd
}

// Start launches the transcoder detached from this process group, samples its
// exit status for the grace period, and persists the job pair on success.
func (s *Supervisor) Start(ctx context.Context, opts StartOptions) (Job, error) {
	if _, err := exec.LookPath(s.ffmpeg()); err != nil {
		return Job{}, fault.Userf("%s is required for live streaming; install ffmpeg first", s.ffmpeg())
	}
	if strings.TrimSpace(opts.Input) == "" {
		return Job{}, fault.Userf("--input is required (video file/device/stream source)")
	}
	target, err := TargetURL(opts.RTMPURL, opts.StreamKey)
	if err != nil {
		return Job{}, err
	}

	if pid, ok := s.Registry.ReadPID(); ok && s.alive(pid) {
		return Job{}, &AlreadyRunningError{PID: pid}
	}

	argv := s.BuildCommand(opts, target)

	logFile, err := os.OpenFile(s.Registry.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return Job{}, fmt.Errorf("open stream log: %w", err)
	}
	defer logFile.Close()

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Stdin = nil
	cmd.SysProcAttr = detachedProcAttr()

	if err := cmd.Start(); err != nil {
		return Job{}, fault.UserWrap(err, "failed to launch %s: %v", s.ffmpeg(), err)
	}

	// Sample exit status for the grace period; a subprocess that dies this
	// fast never becomes a tracked job.
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case <-done:
		return Job{}, &LaunchFailedError{ExitCode: cmd.ProcessState.ExitCode(), LogPath: s.Registry.LogPath()}
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		return Job{}, ctx.Err()
	case <-time.After(s.grace()):
	}

	job := Job{
		PID:       cmd.Process.Pid,
		StartedAt: time.Now().Unix(),
		Input:     opts.Input,
		Target:    target,
		Command:   argv,
	}
	if err := s.Registry.Write(job); err != nil {
		return Job{}, fmt.Errorf("persist stream job: %w", err)
	}
	if s.Log != nil {
		s.Log.Info("stream started", slog.Int("pid", job.PID), slog.String("target", target))
	}
	return job, nil
}

// Status reads the PID marker and probes liveness without touching the
// process. Metadata is read best-effort.
func (s *Supervisor) Status() Status {
	pid, ok := s.Registry.ReadPID()
	if !ok {
		return Status{Running: false}
	}
	return Status{
		Running: s.alive(pid),
		PID:     pid,
		Meta:    s.Registry.ReadMeta(),
		LogFile: s.Registry.LogPath(),
	}
}

// Stop terminates the tracked subprocess: graceful signal, bounded liveness
// poll, forceful escalation, then unconditional artifact cleanup. Stale
// markers for dead processes are self-healed.
func (s *Supervisor) Stop() (StopResult, error) {
	pid, ok := s.Registry.ReadPID()
	if !ok {
		return StopResult{Stopped: false, Message: "No running stream."}, nil
	}
	if !s.alive(pid) {
		if err := s.Registry.Clear(); err != nil {
			return StopResult{}, err
		}
		return StopResult{Stopped: false, Message: "No running stream process found."}, nil
	}

	if err := terminate(pid); err != nil {
		return StopResult{}, fmt.Errorf("signal pid %d: %w", pid, err)
	}
	deadline := time.Now().Add(s.stopTimeout())
	for time.Now().Before(deadline) {
		if !s.alive(pid) {
			break
		}
		time.Sleep(s.pollInterval())
	}
	if s.alive(pid) {
		if s.Log != nil {
			s.Log.Warn("graceful stop timed out, escalating", slog.Int("pid", pid))
		}
		_ = kill(pid)
	}

	if err := s.Registry.Clear(); err != nil {
		return StopResult{}, err
	}
	return StopResult{Stopped: true, PID: pid, LogFile: s.Registry.LogPath()}, nil
}
