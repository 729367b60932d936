package models

import (
	"strings"
	"time"
)

// HVACMode is the thermostat's heating/cooling mode.
type HVACMode string

const (
	HVACOff  HVACMode = "off"
	HVACHeat HVACMode = "heat"
	HVACCool HVACMode = "cool"
	HVACAuto HVACMode = "auto"
)

// ParseHVACMode normalizes a mode string. Unknown values report ok=false.
func ParseHVACMode(s string) (HVACMode, bool) {
	switch m := HVACMode(strings.ToLower(strings.TrimSpace(s))); m {
	case HVACOff, HVACHeat, HVACCool, HVACAuto:
		return m, true
	default:
		return HVACOff, false
	}
}

// EnvironmentSnapshot is the latest known sensor state. Nil pointers mean the
// upstream sensor was unavailable when the snapshot was taken.
type EnvironmentSnapshot struct {
	PM25           *float64  `json:"pm25"`            // µg/m³
	TVOC           *float64  `json:"tvoc"`            // ppb
	IndoorHumidity *float64  `json:"indoor_humidity"` // %RH
	IndoorTemp     *float64  `json:"indoor_temp"`     // °F
	OutdoorTemp    *float64  `json:"outdoor_temp"`    // °F
	Occupied       bool      `json:"occupied"`
	OccupancyKnown bool      `json:"occupancy_known"` // false until a reading supplied Occupied
	HVACMode       HVACMode  `json:"hvac_mode"`
	HVACRunning    bool      `json:"hvac_running"`
	HVACFanRunning bool      `json:"hvac_fan_running"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

// Clone returns a deep copy so readers never share pointers with the store.
func (s EnvironmentSnapshot) Clone() EnvironmentSnapshot {
	out := s
	out.PM25 = cloneFloat(s.PM25)
	out.TVOC = cloneFloat(s.TVOC)
	out.IndoorHumidity = cloneFloat(s.IndoorHumidity)
	out.IndoorTemp = cloneFloat(s.IndoorTemp)
	out.OutdoorTemp = cloneFloat(s.OutdoorTemp)
	return out
}

// Occupancy returns nil when no occupancy reading is available.
func (s EnvironmentSnapshot) Occupancy() *bool {
	if !s.OccupancyKnown {
		return nil
	}
	occ := s.Occupied
	return &occ
}

// StateUpdate is an externally supplied partial snapshot. Only non-nil
// fields are merged into the stored snapshot.
type StateUpdate struct {
	PM25           *float64 `json:"pm25,omitempty" example:"12.5"`
	TVOC           *float64 `json:"tvoc,omitempty" example:"210"`
	IndoorHumidity *float64 `json:"indoor_humidity,omitempty" example:"58"`
	IndoorTemp     *float64 `json:"indoor_temp,omitempty" example:"71"`
	OutdoorTemp    *float64 `json:"outdoor_temp,omitempty" example:"62"`
	Occupied       *bool    `json:"occupancy,omitempty" example:"true"`
	// Allowed: off, heat, cool, auto
	HVACMode       *string `json:"hvac_mode,omitempty" example:"cool"`
	HVACRunning    *bool   `json:"hvac_running,omitempty" example:"false"`
	HVACFanRunning *bool   `json:"hvac_fan_running,omitempty" example:"false"`
}

// Empty reports whether the update carries no fields at all.
func (u StateUpdate) Empty() bool {
	return u.PM25 == nil && u.TVOC == nil && u.IndoorHumidity == nil &&
		u.IndoorTemp == nil && u.OutdoorTemp == nil && u.Occupied == nil &&
		u.HVACMode == nil && u.HVACRunning == nil && u.HVACFanRunning == nil
}

// MergeInto applies the supplied fields on top of base and returns the result.
// An unknown hvac_mode is ignored.
func (u StateUpdate) MergeInto(base EnvironmentSnapshot) EnvironmentSnapshot {
	out := base.Clone()
	if u.PM25 != nil {
		out.PM25 = cloneFloat(u.PM25)
	}
	if u.TVOC != nil {
		out.TVOC = cloneFloat(u.TVOC)
	}
	if u.IndoorHumidity != nil {
		out.IndoorHumidity = cloneFloat(u.IndoorHumidity)
	}
	if u.IndoorTemp != nil {
		out.IndoorTemp = cloneFloat(u.IndoorTemp)
	}
	if u.OutdoorTemp != nil {
		out.OutdoorTemp = cloneFloat(u.OutdoorTemp)
	}
	if u.Occupied != nil {
		out.Occupied = *u.Occupied
		out.OccupancyKnown = true
	}
	if u.HVACMode != nil {
		if m, ok := ParseHVACMode(*u.HVACMode); ok {
			out.HVACMode = m
		}
	}
	if u.HVACRunning != nil {
		out.HVACRunning = *u.HVACRunning
	}
	if u.HVACFanRunning != nil {
		out.HVACFanRunning = *u.HVACFanRunning
	}
	return out
}

// Float returns a pointer to v. Handy for building snapshots in code and tests.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
