// Package probe inspects the OS for the currently focused application.
package probe

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/ambientworks/companiond/internal/domain"
)

const frontmostAppScript = `tell application "System Events" to name of first application process whose frontmost is true`

const foregroundPIDScript = `
Add-Type @"
using System;
using System.Runtime.InteropServices;
public class FG {
    [DllImport("user32.dll")] public static extern IntPtr GetForegroundWindow();
    [DllImport("user32.dll")] public static extern uint GetWindowThreadProcessId(IntPtr hWnd, out uint pid);
}
"@
$hwnd = [FG]::GetForegroundWindow()
$procId = 0
[FG]::GetWindowThreadProcessId($hwnd, [ref]$procId) | Out-Null
Write-Output $procId
`

// SystemProbe implements domain.FocusProbe for darwin, windows and linux.
// Every failure mode degrades to "" (unknown); the monitor treats that as
// a transient condition, never as fatal.
type SystemProbe struct {
	logger *zap.Logger
}

// New creates the platform focus probe.
func New(logger *zap.Logger) *SystemProbe {
	return &SystemProbe{logger: logger}
}

// ActiveAppName returns the identity of the focused application.
func (p *SystemProbe) ActiveAppName(ctx context.Context) string {
	switch runtime.GOOS {
	case "darwin":
		return p.run(ctx, "osascript", "-e", frontmostAppScript)
	case "windows":
		return p.windowsAppName(ctx)
	default:
		return p.linuxAppName(ctx)
	}
}

// ActiveWindowTitle returns the title of the focused window.
func (p *SystemProbe) ActiveWindowTitle(ctx context.Context, appName string) string {
	switch runtime.GOOS {
	case "darwin":
		if appName == "" {
			return ""
		}
		script := fmt.Sprintf(`tell application "System Events" to name of window 1 of process %q`, appName)
		return p.run(ctx, "osascript", "-e", script)
	case "windows":
		script := `Add-Type -AssemblyName System.Windows.Forms; (Get-Process | Where-Object {$_.MainWindowHandle -ne 0 -and $_.MainWindowTitle} | Sort-Object CPU -Descending | Select-Object -First 1).MainWindowTitle`
		return p.run(ctx, "powershell", "-NoProfile", "-Command", script)
	default:
		return p.run(ctx, "xdotool", "getactivewindow", "getwindowname")
	}
}

// windowsAppName resolves the foreground window to a process name,
// stripping the .exe suffix the way clients expect ("EXCEL", not
// "EXCEL.EXE").
func (p *SystemProbe) windowsAppName(ctx context.Context) string {
	out := p.run(ctx, "powershell", "-NoProfile", "-Command", foregroundPIDScript)
	name := p.nameForPID(out)
	name = strings.TrimSuffix(name, ".exe")
	return strings.TrimSuffix(name, ".EXE")
}

// linuxAppName resolves the active X11 window's pid to a process name.
func (p *SystemProbe) linuxAppName(ctx context.Context) string {
	out := p.run(ctx, "xdotool", "getactivewindow", "getwindowpid")
	return p.nameForPID(out)
}

// nameForPID maps a textual pid to the owning process name via gopsutil.
func (p *SystemProbe) nameForPID(pidText string) string {
	pid, err := strconv.Atoi(strings.TrimSpace(pidText))
	if err != nil || pid <= 0 {
		return ""
	}
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return ""
	}
	name, err := proc.Name()
	if err != nil {
		return ""
	}
	return name
}

func (p *SystemProbe) run(ctx context.Context, name string, args ...string) string {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		p.logger.Debug("focus probe command failed",
			zap.String("command", name),
			zap.Error(err))
		return ""
	}
	return strings.TrimSpace(string(out))
}

var _ domain.FocusProbe = (*SystemProbe)(nil)
