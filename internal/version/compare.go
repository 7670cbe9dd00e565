package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/autotrader/pkg/errors"
)

// Parse parses a semantic version, accepting an optional "v" prefix.
func Parse(raw string) (*semver.Version, error) {
	v, err := semver.NewVersion(strings.TrimPrefix(raw, "v"))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid version '%s'", raw)
	}

	return v, nil
}

// CheckConstraint checks that version satisfies constraint.
// Returns nil if it does, an error with details if not.
//
// Rules:
//   - An empty constraint accepts any version
//   - A "main" version (development build) skips the check
//   - Otherwise constraint uses Masterminds syntax ("^1.2", ">=1.0, <2", "1.2.x")
//
// Examples:
//   - Constraint "^1.2", version 1.4.0 -> OK
//   - Constraint "~1.2", version 1.3.0 -> ERROR
//   - Constraint "1.x", version main   -> OK (dev build, skip check)
func CheckConstraint(constraint, version string) error {
	if constraint == "" || version == "main" {
		return nil
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid version constraint '%s'", constraint)
	}

	v, err := Parse(version)
	if err != nil {
		return err
	}

	if ok, reasons := c.Validate(v); !ok {
		details := make([]string, 0, len(reasons))
		for _, reason := range reasons {
			details = append(details, reason.Error())
		}

		return errors.Newf(errors.ErrCodeVersionMismatch, "version %s does not satisfy %s: %s",
			v.String(), constraint, strings.Join(details, "; "))
	}

	return nil
}
