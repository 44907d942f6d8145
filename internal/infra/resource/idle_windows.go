//go:build windows

package resource

import (
	"syscall"
	"time"
	"unsafe"
)

const desktopReadObjects = 0x0001

var (
	user32   = syscall.NewLazyDLL("user32.dll")
	kernel32 = syscall.NewLazyDLL("kernel32.dll")

	procGetLastInputInfo = user32.NewProc("GetLastInputInfo")
	procOpenInputDesktop = user32.NewProc("OpenInputDesktop")
	procCloseDesktop     = user32.NewProc("CloseDesktop")
	procGetTickCount     = kernel32.NewProc("GetTickCount")
)

// LASTINPUTINFO
type lastInputInfo struct {
	cbSize uint32
	dwTime uint32
}

// osIdleDuration is the tick count since the session's last keyboard or
// mouse event. A failed call reads as 0.
func osIdleDuration() time.Duration {
	info := lastInputInfo{cbSize: uint32(unsafe.Sizeof(lastInputInfo{}))}
	if ok, _, _ := procGetLastInputInfo.Call(uintptr(unsafe.Pointer(&info))); ok == 0 {
		return 0
	}
	tick, _, _ := procGetTickCount.Call()
	return tickDelta(uint32(tick), info.dwTime)
}

func hasDisplay() bool { return true }

// isScreenLocked: the input desktop cannot be opened while the secure
// (lock) desktop owns it.
func isScreenLocked() bool {
	desk, _, _ := procOpenInputDesktop.Call(0, 0, desktopReadObjects)
	if desk == 0 {
		return true
	}
	procCloseDesktop.Call(desk)
	return false
}
