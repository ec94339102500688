package domain

import "fmt"

// Step identifies the current position within the guided entry flow.
type Step string

const (
	StepRating    Step = "RATING"
	StepDuration  Step = "DURATION"
	StepVolume    Step = "VOLUME"
	StepViscosity Step = "VISCOSITY"
)

// Action is the short tag carried in callback data for one flow step,
// plus the undo and cancel actions handled outside the state machine.
type Action string

const (
	ActionRating    Action = "r"
	ActionDuration  Action = "d"
	ActionVolume    Action = "v"
	ActionViscosity Action = "c"
	ActionUndo      Action = "u"
	ActionCancel    Action = "x"
)

// ExpectedAction maps a step to the only action it accepts.
func ExpectedAction(step Step) Action {
	switch step {
	case StepRating:
		return ActionRating
	case StepDuration:
		return ActionDuration
	case StepVolume:
		return ActionVolume
	case StepViscosity:
		return ActionViscosity
	}
	return ""
}

// DurationCode is the closed set of duration answers.
type DurationCode string

const (
	DurationLE5  DurationCode = "LE5"
	DurationLE10 DurationCode = "LE10"
	DurationLE30 DurationCode = "LE30"
	DurationLE60 DurationCode = "LE60"
	DurationGT60 DurationCode = "GT60"
)

// ParseDurationCode validates raw callback payloads against the closed set.
func ParseDurationCode(raw string) (DurationCode, error) {
	switch DurationCode(raw) {
	case DurationLE5, DurationLE10, DurationLE30, DurationLE60, DurationGT60:
		return DurationCode(raw), nil
	}
	return "", fmt.Errorf("unknown duration code %q", raw)
}

// VolumeCode is the closed set of volume answers.
type VolumeCode string

const (
	VolumeLow  VolumeCode = "LOW"
	VolumeMid  VolumeCode = "MID"
	VolumeHigh VolumeCode = "HIGH"
)

// ParseVolumeCode validates raw callback payloads against the closed set.
func ParseVolumeCode(raw string) (VolumeCode, error) {
	switch VolumeCode(raw) {
	case VolumeLow, VolumeMid, VolumeHigh:
		return VolumeCode(raw), nil
	}
	return "", fmt.Errorf("unknown volume code %q", raw)
}

// ViscosityCode is the closed set of viscosity answers.
type ViscosityCode string

const (
	ViscosityV1 ViscosityCode = "V1"
	ViscosityV2 ViscosityCode = "V2"
	ViscosityV3 ViscosityCode = "V3"
	ViscosityV4 ViscosityCode = "V4"
	ViscosityV5 ViscosityCode = "V5"
)

// ParseViscosityCode validates raw callback payloads against the closed set.
func ParseViscosityCode(raw string) (ViscosityCode, error) {
	switch ViscosityCode(raw) {
	case ViscosityV1, ViscosityV2, ViscosityV3, ViscosityV4, ViscosityV5:
		return ViscosityCode(raw), nil
	}
	return "", fmt.Errorf("unknown viscosity code %q", raw)
}
