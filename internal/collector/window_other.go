//go:build !windows
// +build !windows

package collector

import (
	"os/exec"
	"runtime"
	"strings"
)

// foregroundWindow 获取前台应用名称和窗口标题
// macOS 通过 AppleScript 查询，Linux 依赖 xdotool，
// 工具缺失时返回空值并由调用方降级处理
func foregroundWindow() (appName, windowTitle string, err error) {
	switch runtime.GOOS {
	case "darwin":
		return foregroundWindowDarwin()
	case "linux":
		return foregroundWindowLinux()
	default:
		return "", "", nil
	}
}

func foregroundWindowDarwin() (string, string, error) {
	const script = `tell application "System Events"
	set frontApp to name of first application process whose frontmost is true
end tell
tell application frontApp
	try
		set winTitle to name of front window
	on error
		set winTitle to ""
	end try
end tell
return frontApp & "|" & winTitle`

	out, err := exec.Command("osascript", "-e", script).Output()
	if err != nil {
		return "", "", err
	}
	parts := strings.SplitN(strings.TrimSpace(string(out)), "|", 2)
	if len(parts) == 2 {
		return parts[0], parts[1], nil
	}
	return parts[0], "", nil
}

func foregroundWindowLinux() (string, string, error) {
	title, err := exec.Command("xdotool", "getactivewindow", "getwindowname").Output()
	if err != nil {
		return "", "", err
	}
	windowTitle := strings.TrimSpace(string(title))

	// 窗口类名作为应用名，取不到也不影响标题
	var appName string
	if pid, err := exec.Command("xdotool", "getactivewindow", "getwindowpid").Output(); err == nil {
		if comm, err := exec.Command("ps", "-p", strings.TrimSpace(string(pid)), "-o", "comm=").Output(); err == nil {
			appName = strings.TrimSpace(string(comm))
		}
	}
	return appName, windowTitle, nil
}
