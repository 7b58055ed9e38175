// Package stream supervises the detached ffmpeg transcoding subprocess: it
// launches it, tracks it through a persisted PID marker plus a metadata
// record, and tears it down. The PID file is the only handle that survives
// controller restarts, and doubles as the system-wide single-stream lock.
package stream

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Job is the tracked lifecycle record of one transcoding subprocess.
type Job struct {
	PID       int      `json:"pid"`
	StartedAt int64    `json:"started_at"`
	Input     string   `json:"input"`
	Target    string   `json:"target"`
	Command   []string `json:"command"`
}

// Registry persists the job artifacts. The PID marker and the metadata record
// are written and cleared as a pair; metadata is best-effort diagnostic only,
// never required for correctness.
type Registry interface {
	// ReadPID returns the persisted PID. ok is false when no marker exists
	// or the marker is unreadable.
	ReadPID() (pid int, ok bool)
	// ReadMeta returns the metadata record; corruption or absence degrades
	// to a zero Job.
	ReadMeta() Job
	// Write persists PID marker and metadata together.
	Write(job Job) error
	// Clear removes both artifacts. Missing files are not an error.
	Clear() error
	// LogPath is the transcoder's combined output capture.
	LogPath() string
}

// FileRegistry is the filesystem-backed Registry: a plain-integer PID file, a
// JSON metadata document, and an append-only log.
type FileRegistry struct {
	PIDFile  string
	MetaFile string
	LogFile  string
}

func (r *FileRegistry) ReadPID() (int, bool) {
	b, err := os.ReadFile(r.PIDFile)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

func (r *FileRegistry) ReadMeta() Job {
	var job Job
	b, err := os.ReadFile(r.MetaFile)
	if err != nil {
		return job
	}
	if err := json.Unmarshal(b, &job); err != nil {
		return Job{}
	}
	return job
}

func (r *FileRegistry) Write(job Job) error {
	if err := os.MkdirAll(filepath.Dir(r.PIDFile), fs.ModePerm); err != nil {
		return err
	}
	if err := os.WriteFile(r.PIDFile, []byte(strconv.Itoa(job.PID)), 0o644); err != nil {
		return err
	}
	b, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return os.WriteFile(r.MetaFile, b, 0o644)
}

func (r *FileRegistry) Clear() error {
	var first error
	for _, p := range []string{r.PIDFile, r.MetaFile} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) && first == nil {
			first = err
		}
	}
	return first
}

func (r *FileRegistry) LogPath() string { return r.LogFile }

// MemRegistry is the in-memory Registry used by tests.
type MemRegistry struct {
	PID     int
	HasPID  bool
	Meta    Job
	HasMeta bool
	Log     string
}

func (r *MemRegistry) ReadPID() (int, bool) { return r.PID, r.HasPID }

func (r *MemRegistry) ReadMeta() Job {
	if !r.HasMeta {
		return Job{}
	}
	return r.Meta
}

func (r *MemRegistry) Write(job Job) error {
	r.PID, r.HasPID = job.PID, true
	r.Meta, r.HasMeta = job, true
	return nil
}

func (r *MemRegistry) Clear() error {
	r.PID, r.HasPID = 0, false
	r.Meta, r.HasMeta = Job{}, false
	return nil
}

func (r *MemRegistry) LogPath() string { return r.Log }
