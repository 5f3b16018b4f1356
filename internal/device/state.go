// Package device simulates the phone's location stack from a JSON file the
// user can edit while the client runs: permission grants, the location
// service switch and the current position.
package device

import (
	"encoding/json"
	"fmt"
	"time"
)

// Permission names as the mobile platforms spell them.
const (
	PermissionFineLocation      = "android.permission.ACCESS_FINE_LOCATION"
	PermissionLocationWhenInUse = "ios.permission.LOCATION_WHEN_IN_USE"
)

// Permission statuses.
const (
	StatusGranted     = "granted"
	StatusDenied      = "denied"
	StatusBlocked     = "blocked"
	StatusLimited     = "limited"
	StatusUnavailable = "unavailable"
)

// Duration is a time.Duration that reads and writes as "300ms".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var ms int64
		if err := json.Unmarshal(b, &ms); err != nil {
			return fmt.Errorf("invalid duration %s", b)
		}
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// State is the content of the device file.
type State struct {
	Permissions map[string]string `json:"permissions"`
	Accuracy    *float64          `json:"accuracy,omitempty"`
	Latitude    float64           `json:"latitude"`
	Longitude   float64           `json:"longitude"`
	// FixDelay is how long a single fix takes to arrive.
	FixDelay        Duration `json:"fixDelay"`
	LocationEnabled bool     `json:"locationEnabled"`
	// HighAccuracyOnly makes low-accuracy requests fail as if no network
	// location provider existed.
	HighAccuracyOnly bool `json:"highAccuracyOnly"`
}

// DefaultState is written when no device file exists.
func DefaultState() State {
	acc := 15.0
	return State{
		Permissions: map[string]string{
			PermissionFineLocation:      StatusGranted,
			PermissionLocationWhenInUse: StatusGranted,
		},
		LocationEnabled: true,
		Latitude:        19.0760,
		Longitude:       72.8777,
		Accuracy:        &acc,
		FixDelay:        Duration(300 * time.Millisecond),
	}
}

// Status returns the stored status of permission, defaulting to denied.
func (s State) Status(permission string) string {
	if v, ok := s.Permissions[permission]; ok && v != "" {
		return v
	}
	return StatusDenied
}

// locationPermitted reports whether any location permission is granted.
func (s State) locationPermitted() bool {
	return s.Status(PermissionFineLocation) == StatusGranted ||
		s.Status(PermissionLocationWhenInUse) == StatusGranted
}

func (s State) clone() State {
	c := s
	if s.Permissions != nil {
		c.Permissions = make(map[string]string, len(s.Permissions))
		for k, v := range s.Permissions {
			c.Permissions[k] = v
		}
	}
	if s.Accuracy != nil {
		a := *s.Accuracy
		c.Accuracy = &a
	}
	return c
}
