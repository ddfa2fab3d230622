package policy

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/persona-vault/persona/internal/perrors"
)

var timeRangePattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)-([01]\d|2[0-3]):([0-5]\d)$`)

// LoadFile reads and validates a policy document from path.
//
// Resolved open question (spec.md §9 "TOTP ambiguity" / malformed
// allowed_time_range): the original source tolerated invalid
// allowed_time_range strings by allowing signing through. That is treated as
// a defect here: a malformed range is rejected at load time with
// InvalidInput rather than silently widened into an allow-all rule at
// evaluation time.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &perrors.Io{Underlying: err}
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &perrors.InvalidInput{Field: "policy_file", Reason: err.Error()}
	}
	if err := validate(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

func validate(f *File) error {
	for credentialID, kp := range f.KeyPolicies {
		if kp.AllowedTimeRange == "" {
			continue
		}
		if !timeRangePattern.MatchString(kp.AllowedTimeRange) {
			return &perrors.InvalidInput{
				Field:  "allowed_time_range",
				Reason: fmt.Sprintf("key_policies[%s].allowed_time_range %q is not HH:MM-HH:MM", credentialID, kp.AllowedTimeRange),
			}
		}
	}
	return nil
}
