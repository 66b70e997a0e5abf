package enums

import "fmt"

// LicenseType is the tier sold on a beat listing.
type LicenseType string

const (
	LicenseMP3       LicenseType = "mp3"
	LicenseWAV       LicenseType = "wav"
	LicenseTrackout  LicenseType = "trackout"
	LicenseExclusive LicenseType = "exclusive"
)

var validLicenseTypes = []LicenseType{
	LicenseMP3,
	LicenseWAV,
	LicenseTrackout,
	LicenseExclusive,
}

// String implements fmt.Stringer.
func (l LicenseType) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LicenseType.
func (l LicenseType) IsValid() bool {
	for _, candidate := range validLicenseTypes {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLicenseType converts raw input into a LicenseType.
func ParseLicenseType(value string) (LicenseType, error) {
	for _, candidate := range validLicenseTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid license type %q", value)
}
