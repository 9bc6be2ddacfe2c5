// Package nvd resolves dependency identifiers into vulnerability records using
// the National Vulnerability Database 2.0 API.
package nvd

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinLength        = 2
	MaxNameLength    = 100
	MaxVersionLength = 15
	MaxCPENameLength = 1000

	// AnyVendor matches every vendor in a CPE match string
	AnyVendor = "*"
)

var versionPattern = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+$`)

// Identifier is a validated and normalized dependency triple
type Identifier struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Vendor  string `json:"vendor"`
}

// MatchString renders the identifier as a CPE 2.3 application match string
func (id Identifier) MatchString() string {
	return fmt.Sprintf("cpe:2.3:a:%s:%s:%s", id.Vendor, id.Name, id.Version)
}

// Validate checks and normalizes a dependency triple. An empty vendor means
// any vendor. Validation never performs I/O.
func Validate(name, version, vendor string) (Identifier, error) {
	if err := checkLength("name", name, MaxNameLength); err != nil {
		return Identifier{}, err
	}
	if !isAlphanumeric(name) {
		return Identifier{}, &ValidationError{Field: "name", Reason: "must be alphanumeric"}
	}

	if err := checkLength("version", version, MaxVersionLength); err != nil {
		return Identifier{}, err
	}
	if !versionPattern.MatchString(version) {
		return Identifier{}, &ValidationError{Field: "version", Reason: "must match major.minor.patch"}
	}

	if vendor == "" {
		vendor = AnyVendor
	} else {
		if err := checkLength("vendor", vendor, MaxNameLength); err != nil {
			return Identifier{}, err
		}
		if !isAlphanumeric(vendor) {
			return Identifier{}, &ValidationError{Field: "vendor", Reason: "must be alphanumeric"}
		}
		vendor = strings.ToLower(vendor)
	}

	return Identifier{
		Name:    strings.ToLower(name),
		Version: version,
		Vendor:  vendor,
	}, nil
}

// ValidateCPEName checks a raw CPE name before it is sent to the detail endpoint
func ValidateCPEName(name string) error {
	if name == "" {
		return &ValidationError{Field: "cpe_name", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(name) > MaxCPENameLength {
		return &ValidationError{Field: "cpe_name", Bound: BoundMax, Limit: MaxCPENameLength}
	}
	if !strings.HasPrefix(name, "cpe:2.3:") {
		return &ValidationError{Field: "cpe_name", Reason: "must start with cpe:2.3:"}
	}
	return nil
}

func checkLength(field, value string, limit int) error {
	n := utf8.RuneCountInString(value)
	if n < MinLength {
		return &ValidationError{Field: field, Bound: BoundMin, Limit: MinLength}
	}
	if n > limit {
		return &ValidationError{Field: field, Bound: BoundMax, Limit: limit}
	}
	return nil
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
