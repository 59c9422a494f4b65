//go:build windows
// +build windows

package collector

import (
	"fmt"
	"path/filepath"
	"strings"
	"syscall"
	"unsafe"
)

var (
	user32   = syscall.NewLazyDLL("user32.dll")
	kernel32 = syscall.NewLazyDLL("kernel32.dll")

	procGetForegroundWindow       = user32.NewProc("GetForegroundWindow")
	procGetWindowTextW            = user32.NewProc("GetWindowTextW")
	procGetWindowThreadProcessId  = user32.NewProc("GetWindowThreadProcessId")
	procOpenProcess               = kernel32.NewProc("OpenProcess")
	procCloseHandle               = kernel32.NewProc("CloseHandle")
	procQueryFullProcessImageName = kernel32.NewProc("QueryFullProcessImageNameW")
)

const processQueryLimitedInformation = 0x1000

// foregroundWindow 获取前台应用名称和窗口标题
func foregroundWindow() (appName, windowTitle string, err error) {
	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return "", "", fmt.Errorf("no foreground window")
	}

	// 窗口标题
	buf := make([]uint16, 512)
	n, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n > 0 {
		windowTitle = syscall.UTF16ToString(buf[:n])
	}

	// 进程可执行文件名
	var pid uint32
	procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	if pid == 0 {
		return "", windowTitle, fmt.Errorf("failed to get window process id")
	}

	handle, _, _ := procOpenProcess.Call(processQueryLimitedInformation, 0, uintptr(pid))
	if handle == 0 {
		return "", windowTitle, fmt.Errorf("failed to open process %d", pid)
	}
	defer procCloseHandle.Call(handle)

	pathBuf := make([]uint16, syscall.MAX_PATH)
	size := uint32(len(pathBuf))
	ret, _, _ := procQueryFullProcessImageName.Call(
		handle, 0, uintptr(unsafe.Pointer(&pathBuf[0])), uintptr(unsafe.Pointer(&size)))
	if ret == 0 {
		return "", windowTitle, fmt.Errorf("failed to query process image name")
	}

	exePath := syscall.UTF16ToString(pathBuf[:size])
	appName = strings.TrimSuffix(filepath.Base(exePath), ".exe")
	return appName, windowTitle, nil
}
