package session

import (
	"regexp"
	"strings"

	"github.com/BearBump/DriverPortal/internal/models"
)

const minPasswordLen = 6

var emailRe = regexp.MustCompile(`\S+@\S+\.\S+`)

func Validate(c models.Credentials) error {
	fields := map[string]string{}

	if strings.TrimSpace(c.TenantID) == "" {
		fields["tenantId"] = "Tenant ID is required"
	}

	switch {
	case strings.TrimSpace(c.Username) == "":
		fields["username"] = "Username is required"
	case !emailRe.MatchString(c.Username):
		fields["username"] = "Please enter a valid email address"
	}

	switch {
	case c.Password == "":
		fields["password"] = "Password is required"
	case len(c.Password) < minPasswordLen:
		fields["password"] = "Password must be at least 6 characters"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
