// Package probe implements the OS probe over gopsutil. Window
// enumeration is platform-specific and plugs in behind WindowSource;
// the detector only ever sees the domain.SystemProbe contract.
package probe

import (
	"context"
	"os/user"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/fernwall/screentime/internal/domain"
)

// WindowSource lists visible, non-minimized top-level windows. Each
// target platform supplies one implementation; tests supply doubles.
type WindowSource interface {
	VisibleWindows(ctx context.Context) ([]domain.WindowInfo, error)
}

// SystemProbeImpl implements domain.SystemProbe using gopsutil for
// process enumeration.
type SystemProbeImpl struct {
	windows WindowSource
}

// NewSystemProbe creates a probe. A nil window source means no window
// data is available on this platform; the detector then relies on the
// secondary (user-session) cascade branch.
func NewSystemProbe(windows WindowSource) domain.SystemProbe {
	return &SystemProbeImpl{windows: windows}
}

// ListProcesses enumerates running processes. A process that vanishes
// or denies metadata access mid-enumeration is returned with whatever
// fields could be read; it is never dropped here, and never an error.
func (p *SystemProbeImpl) ListProcesses(ctx context.Context) ([]domain.ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, &domain.ProbeError{Op: "enumerate processes", Err: err}
	}

	infos := make([]domain.ProcessInfo, 0, len(procs))
	for _, proc := range procs {
		info := domain.ProcessInfo{PID: proc.Pid}

		// Each field read can fail independently for a dying or
		// privileged process. Partial data is fine; empty fields make
		// the detector exclude the process for this tick.
		if name, err := proc.NameWithContext(ctx); err == nil {
			info.Name = name
		}
		if exe, err := proc.ExeWithContext(ctx); err == nil {
			info.ExePath = exe
		}
		if username, err := proc.UsernameWithContext(ctx); err == nil {
			info.Username = username
		}

		infos = append(infos, info)
	}
	return infos, nil
}

// ListVisibleWindows returns the platform window list, or nothing when
// no window source is wired.
func (p *SystemProbeImpl) ListVisibleWindows(ctx context.Context) ([]domain.WindowInfo, error) {
	if p.windows == nil {
		return nil, nil
	}
	windows, err := p.windows.VisibleWindows(ctx)
	if err != nil {
		return nil, &domain.ProbeError{Op: "list windows", Err: err}
	}
	return windows, nil
}

// ActiveUsername returns the login name of the user the agent runs as,
// which is the active console user for a per-user agent install.
func (p *SystemProbeImpl) ActiveUsername() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}
	return u.Username
}

// Ensure SystemProbeImpl implements domain.SystemProbe.
var _ domain.SystemProbe = (*SystemProbeImpl)(nil)
