package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/barysiuk/skillfork/internal/logger"
)

// SyncRunner starts the external procedure that installs manifest entries.
type SyncRunner interface {
	Start(ctx context.Context) (*SyncTask, error)
}

// SyncTask is a running sync procedure whose completion can be observed.
type SyncTask struct {
	done chan struct{}
	err  error
}

// NewSyncTask runs fn in the background and returns a task tracking it.
func NewSyncTask(fn func() error) *SyncTask {
	t := &SyncTask{done: make(chan struct{})}
	go func() {
		defer close(t.done)
		t.err = fn()
	}()
	return t
}

// Done is closed when the procedure finishes.
func (t *SyncTask) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the procedure finishes and returns its error.
func (t *SyncTask) Wait() error {
	<-t.done
	return t.err
}

// ScriptRunner runs the update script (update-all.ps1 by default).
type ScriptRunner struct {
	Script string
	Dir    string // Working directory; defaults to the script's directory
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewScriptRunner creates a runner with inherited standard I/O.
func NewScriptRunner(script, dir string) *ScriptRunner {
	return &ScriptRunner{
		Script: script,
		Dir:    dir,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Start implements SyncRunner. It fails immediately if the script is missing
// or cannot be launched; otherwise the exit status is reported by the task.
func (r *ScriptRunner) Start(ctx context.Context) (*SyncTask, error) {
	if !fileExists(r.Script) {
		return nil, &SyncError{Script: r.Script, ExitCode: -1, Err: fmt.Errorf("script not found: %w", os.ErrNotExist)}
	}

	name, args := scriptCommand(r.Script, runtime.GOOS)
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	if cmd.Dir == "" {
		cmd.Dir = filepath.Dir(r.Script)
	}
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	logger.G(ctx).WithField("script", r.Script).Info("running sync script")
	if err := cmd.Start(); err != nil {
		return nil, &SyncError{Script: r.Script, ExitCode: -1, Err: err}
	}

	return NewSyncTask(func() error {
		err := cmd.Wait()
		if err == nil {
			return nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &SyncError{Script: r.Script, ExitCode: exitErr.ExitCode(), Err: err}
		}
		return &SyncError{Script: r.Script, ExitCode: -1, Err: err}
	}), nil
}

// scriptCommand picks an interpreter for the script based on its extension.
func scriptCommand(script, goos string) (string, []string) {
	switch strings.ToLower(filepath.Ext(script)) {
	case ".ps1":
		if goos == "windows" {
			return "powershell", []string{"-ExecutionPolicy", "Bypass", "-File", script}
		}
		return "pwsh", []string{"-File", script}
	case ".sh":
		return "sh", []string{script}
	default:
		return script, nil
	}
}
