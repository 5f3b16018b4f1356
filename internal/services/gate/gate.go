// Package gate decides whether location can be used for a submission: the
// permission must be granted and the device's location service must be on.
package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/j-veylop/attendance-tui/internal/config"
	"github.com/j-veylop/attendance-tui/internal/device"
	"github.com/j-veylop/attendance-tui/internal/logger"
	"github.com/j-veylop/attendance-tui/internal/services/location"
)

var (
	// ErrPermissionRequired means the location permission is not granted.
	ErrPermissionRequired = errors.New("location permission required")
	// ErrLocationServiceOff means the device location service is disabled.
	ErrLocationServiceOff = errors.New("location service off")
)

// DefaultProbeTimeout bounds the location service probe.
const DefaultProbeTimeout = 3 * time.Second

// probeMaxAge lets the probe answer from a recent fix.
const probeMaxAge = 10 * time.Second

// PermissionChecker reports the status of a named OS permission.
type PermissionChecker interface {
	PermissionStatus(ctx context.Context, permission string) (string, error)
}

// SettingsOpener sends the user to the OS settings screens.
type SettingsOpener interface {
	OpenLocationSettings() error
	OpenAppSettings() error
}

// Availability is the result of one gate check.
type Availability struct {
	Permitted bool
	GPSOn     bool
}

// OK reports whether both checks passed.
func (a Availability) OK() bool {
	return a.Permitted && a.GPSOn
}

// Gate runs the permission and location service checks.
type Gate struct {
	checker      PermissionChecker
	provider     location.Provider
	settings     SettingsOpener
	platform     config.Platform
	probeTimeout time.Duration
}

// New creates a gate for platform. A non-positive probeTimeout uses
// DefaultProbeTimeout.
func New(platform config.Platform, checker PermissionChecker, provider location.Provider, settings SettingsOpener, probeTimeout time.Duration) *Gate {
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}
	return &Gate{
		platform:     platform,
		checker:      checker,
		provider:     provider,
		settings:     settings,
		probeTimeout: probeTimeout,
	}
}

// CheckAvailability runs both checks. The location service probe only runs
// when the permission is granted, since without it every fix is refused.
func (g *Gate) CheckAvailability(ctx context.Context) (Availability, error) {
	permitted, err := g.permitted(ctx)
	if err != nil {
		return Availability{}, err
	}
	if !permitted {
		return Availability{}, nil
	}
	return Availability{Permitted: true, GPSOn: g.gpsOn(ctx)}, nil
}

// Validate returns ErrPermissionRequired or ErrLocationServiceOff when
// location cannot be used, and nil otherwise.
func (g *Gate) Validate(ctx context.Context) error {
	avail, err := g.CheckAvailability(ctx)
	if err != nil {
		return err
	}
	if !avail.Permitted {
		return ErrPermissionRequired
	}
	if !avail.GPSOn {
		return ErrLocationServiceOff
	}
	return nil
}

func (g *Gate) permitted(ctx context.Context) (bool, error) {
	permission := device.PermissionFineLocation
	if g.platform == config.PlatformIOS {
		permission = device.PermissionLocationWhenInUse
	}

	status, err := g.checker.PermissionStatus(ctx, permission)
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", permission, err)
	}
	return status == device.StatusGranted, nil
}

// gpsOn is a heuristic. It asks for a quick low-accuracy fix and treats only
// a position-unavailable failure as the service being off. Timeouts and other
// failures count as on, so a slow or indoor device is not misreported.
func (g *Gate) gpsOn(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, g.probeTimeout)
	defer cancel()

	_, err := g.provider.CurrentPosition(probeCtx, location.FixOptions{
		Timeout:    g.probeTimeout,
		MaximumAge: probeMaxAge,
	})
	if err == nil {
		return true
	}
	if location.CodeOf(err) == location.PositionUnavailable {
		return false
	}
	logger.Debug("gps probe inconclusive, assuming on", "error", err)
	return true
}

// Recover opens the settings screen that fixes err. A failed location
// settings link falls back to the app settings.
func (g *Gate) Recover(err error) error {
	if g.settings == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrLocationServiceOff):
		if openErr := g.settings.OpenLocationSettings(); openErr != nil {
			logger.Warn("location settings link failed, opening app settings", "error", openErr)
			return g.settings.OpenAppSettings()
		}
		return nil
	case errors.Is(err, ErrPermissionRequired):
		return g.settings.OpenAppSettings()
	default:
		return nil
	}
}
