package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"time"

	"github.com/google/uuid"
)

// ErrDismissTimeout is returned when a supervisor ignored the dismiss signal and had to be killed.
var ErrDismissTimeout = errors.New("supervisor did not stand down in time")

// Launcher spawns detached supervisor processes.
type Launcher struct {
	// Executable defaults to the running binary.
	Executable string
	// Args precede the "-id <handoff id>" pair, e.g. []string{"supervise"}.
	Args []string
	// Env is the base environment; nil means os.Environ().
	Env    []string
	Logger *slog.Logger
}

// Handle controls a launched supervisor.
type Handle struct {
	ID   string
	PID  int
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

// Launch starts a supervisor for h. The handoff id is generated when empty and
// the parent pid is always set to the calling process.
func (l *Launcher) Launch(h Handoff) (*Handle, error) {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	h.ParentPID = os.Getpid()

	encoded, err := h.Encode()
	if err != nil {
		return nil, err
	}

	exe := l.Executable
	if exe == "" {
		exe, err = os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locating executable: %w", err)
		}
	}
	args := append(append([]string{}, l.Args...), "-id", h.ID)

	env := l.Env
	if env == nil {
		env = os.Environ()
	}

	cmd := exec.Command(exe, args...)
	cmd.Env = append(append([]string{}, env...), EnvHandoff+"="+encoded)
	cmd.SysProcAttr = detachedAttrs()
	// nil stdio is connected to the null device.
	cmd.Stdin, cmd.Stdout, cmd.Stderr = nil, nil, nil

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting supervisor: %w", err)
	}

	handle := &Handle{ID: h.ID, PID: cmd.Process.Pid, cmd: cmd, done: make(chan struct{})}
	go handle.reap()

	if l.Logger != nil {
		l.Logger.Info("supervisor launched", "handoff_id", h.ID, "pid", handle.PID, "log", LogPath(h.ID))
	}
	return handle, nil
}

func (h *Handle) reap() {
	h.err = h.cmd.Wait()
	close(h.done)
}

// Done is closed once the supervisor process has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Dismiss asks the supervisor to exit without updating the message and waits
// up to timeout for it. A supervisor still running after timeout is killed and
// ErrDismissTimeout is returned.
func (h *Handle) Dismiss(timeout time.Duration) error {
	select {
	case <-h.done:
		return nil
	default:
	}

	if err := h.cmd.Process.Signal(DismissSignal); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			<-h.done
			return nil
		}
		return fmt.Errorf("signalling supervisor %d: %w", h.PID, err)
	}

	select {
	case <-h.done:
		return nil
	case <-time.After(timeout):
	}

	if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("killing supervisor %d: %w", h.PID, err)
	}
	<-h.done
	return fmt.Errorf("supervisor %d: %w", h.PID, ErrDismissTimeout)
}

// Supervise runs w inside the supervisor process, wiring the OS signals:
// DismissSignal cancels the watch, TerminationSignals finalize it.
func Supervise(ctx context.Context, w *Watcher) Outcome {
	terminate := make(chan os.Signal, 1)
	signal.Notify(terminate, TerminationSignals...)
	defer signal.Stop(terminate)

	ctx, stop := signal.NotifyContext(ctx, DismissSignal)
	defer stop()

	return w.Run(ctx, terminate)
}
