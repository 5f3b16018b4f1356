package device

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
)

// ErrUnsupportedPlatform is returned when no settings command is known.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// SystemSettings opens settings screens with the host's URL handler.
// Location settings go to the OS privacy panel; app settings open the
// device file, which holds this client's permission grants.
type SystemSettings struct {
	start      func(name string, args ...string) error
	goos       string
	devicePath string
}

// NewSystemSettings creates an opener for the running OS.
func NewSystemSettings(devicePath string) *SystemSettings {
	return &SystemSettings{
		goos:       runtime.GOOS,
		devicePath: devicePath,
		start: func(name string, args ...string) error {
			// Start without waiting; the handler outlives this call.
			return exec.Command(name, args...).Start()
		},
	}
}

// OpenLocationSettings opens the system location privacy panel.
func (s *SystemSettings) OpenLocationSettings() error {
	switch s.goos {
	case "darwin":
		return s.run("open", "x-apple.systempreferences:com.apple.preference.security?Privacy_LocationServices")
	case "windows":
		return s.run("cmd", "/c", "start", "ms-settings:privacy-location")
	case "linux":
		return s.run("gnome-control-center", "location")
	default:
		return fmt.Errorf("location settings on %s: %w", s.goos, ErrUnsupportedPlatform)
	}
}

// OpenAppSettings opens the device file in the default handler.
func (s *SystemSettings) OpenAppSettings() error {
	switch s.goos {
	case "darwin":
		return s.run("open", s.devicePath)
	case "windows":
		return s.run("cmd", "/c", "start", "", s.devicePath)
	case "linux", "freebsd", "openbsd", "netbsd":
		return s.run("xdg-open", s.devicePath)
	default:
		return fmt.Errorf("app settings on %s: %w", s.goos, ErrUnsupportedPlatform)
	}
}

func (s *SystemSettings) run(name string, args ...string) error {
	if err := s.start(name, args...); err != nil {
		return fmt.Errorf("failed to run %s: %w", name, err)
	}
	return nil
}
