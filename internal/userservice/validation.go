package userservice

import (
	"fmt"
	"unicode/utf8"

	"github.com/sushihentaime/bloglist/internal/common"
)

// checkPassword is kept apart from the validator: a short password is an
// authentication failure, not a field validation failure.
func checkPassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return common.AuthError{Reason: common.AuthWeakPassword}
	}
	return nil
}

func validateUsername(v *common.Validator, username string) {
	v.Required(username, "username")
	v.MinLength(username, minUsernameLength, "username")
}

func validatePassword(v *common.Validator, password string) {
	v.Check(len(password) <= maxPasswordBytes, "password", fmt.Sprintf("must not be more than %d bytes long", maxPasswordBytes))
}

func validateCredentials(v *common.Validator, username, password string) {
	v.Required(username, "username")
	v.Required(password, "password")
	validatePassword(v, password)
}
