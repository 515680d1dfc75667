package intake

import (
	"fmt"
	"strings"
	"time"
)

// VehicleIdentity is a validated vehicle record keyed by VIN.
type VehicleIdentity struct {
	VIN        string `json:"vin"`
	Make       string `json:"make"`
	Model      string `json:"model"`
	Year       int    `json:"year"`
	EngineCode string `json:"engine_code,omitempty"`
}

// VehicleInput is the raw form input before validation.
type VehicleInput struct {
	VIN        string
	Make       string
	Model      string
	Year       int
	EngineCode string
}

const vinLength = 17

// vinCharValid reports whether c belongs to the VIN alphabet
// [A-HJ-NPR-Z0-9]. I, O and Q are excluded per the standard to avoid
// confusion with 1 and 0.
func vinCharValid(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'A' && c <= 'Z':
		return c != 'I' && c != 'O' && c != 'Q'
	default:
		return false
	}
}

// ValidateVehicle validates the vehicle form input. The VIN is uppercased
// before checking. Every violated rule is reported, not just the first, so
// the caller can show a complete error list.
func ValidateVehicle(in VehicleInput) (VehicleIdentity, []string) {
	var errs []string

	vin := strings.ToUpper(strings.TrimSpace(in.VIN))
	if len(vin) != vinLength {
		errs = append(errs, fmt.Sprintf("vin: must contain exactly %d characters", vinLength))
	} else {
		for i := 0; i < len(vin); i++ {
			if !vinCharValid(vin[i]) {
				errs = append(errs, "vin: invalid format, allowed characters are A-H, J-N, P, R-Z and 0-9")
				break
			}
		}
	}

	makeName := strings.TrimSpace(in.Make)
	if makeName == "" {
		errs = append(errs, "make: is required")
	}

	modelName := strings.TrimSpace(in.Model)
	if modelName == "" {
		errs = append(errs, "model: is required")
	}

	maxYear := time.Now().Year() + 1
	if in.Year < 1900 || in.Year > maxYear {
		errs = append(errs, fmt.Sprintf("year: must be between 1900 and %d", maxYear))
	}

	if len(errs) > 0 {
		return VehicleIdentity{}, errs
	}

	return VehicleIdentity{
		VIN:        vin,
		Make:       makeName,
		Model:      modelName,
		Year:       in.Year,
		EngineCode: strings.TrimSpace(in.EngineCode),
	}, nil
}
