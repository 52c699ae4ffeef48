package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/gpgvault/internal/common"
)

var handlePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// reservedHandles can never be registered; "administrator" and friends are
// claimed by the challenge-response admin scheme.
var reservedHandles = map[string]struct{}{
	"admin": {}, "root": {}, "administrator": {}, "system": {}, "test": {}, "null": {}, "undefined": {},
}

// ValidateHandle enforces the registration handle rules: 3-50 characters,
// letters/digits/underscore/hyphen, not reserved.
func ValidateHandle(handle string) error {
	switch {
	case handle == "":
		return fmt.Errorf("%w: handle is required", common.ErrorValidation)
	case len(handle) < 3:
		return fmt.Errorf("%w: handle must be at least 3 characters", common.ErrorValidation)
	case len(handle) > 50:
		return fmt.Errorf("%w: handle must be no more than 50 characters", common.ErrorValidation)
	case !handlePattern.MatchString(handle):
		return fmt.Errorf("%w: handle may contain only letters, digits, underscores and hyphens", common.ErrorValidation)
	}
	if _, reserved := reservedHandles[strings.ToLower(handle)]; reserved {
		return fmt.Errorf("%w: handle is reserved", common.ErrorValidation)
	}
	return nil
}

// ValidatePassword enforces the password rules: 8-128 characters with at
// least one lowercase, one uppercase, one digit, and one special character.
func ValidatePassword(password string) error {
	switch {
	case password == "":
		return fmt.Errorf("%w: password is required", common.ErrorValidation)
	case len(password) < 8:
		return fmt.Errorf("%w: password must be at least 8 characters", common.ErrorValidation)
	case len(password) > 128:
		return fmt.Errorf("%w: password must be no more than 128 characters", common.ErrorValidation)
	}

	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(`!@#$%^&*(),.?":{}|<>`, r):
			special = true
		}
	}
	if !lower || !upper || !digit || !special {
		return fmt.Errorf("%w: password needs lowercase, uppercase, digit and special characters", common.ErrorValidation)
	}
	return nil
}
