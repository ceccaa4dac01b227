package usage

import (
	"errors"
	"strings"

	"github.com/oracle/oci-go-sdk/v65/common"
)

// softCodes are error codes that only warrant a warning.
var softCodes = []string{"Forbidden", "TooManyRequests", "IncorrectState", "LimitExceeded"}

// softFragments match anywhere in a code or message.
var softFragments = []string{"max retries exceeded", "auth", "notfound"}

// CheckServiceError reports whether an error code or message belongs to the
// soft class: retries exhausted, authorization or not-found failures,
// throttling and similar. Matching is case-insensitive; the listed codes
// also match as a prefix ("Forbidden access").
func CheckServiceError(code string) bool {
	lower := strings.ToLower(strings.TrimSpace(code))
	for _, f := range softFragments {
		if strings.Contains(lower, f) {
			return true
		}
	}
	for _, c := range softCodes {
		if strings.HasPrefix(lower, strings.ToLower(c)) {
			return true
		}
	}
	return false
}

// IsSoft classifies err. Service errors are judged by their code, anything
// else by its message.
func IsSoft(err error) bool {
	if err == nil {
		return false
	}
	if se, ok := asServiceError(err); ok {
		return CheckServiceError(se.GetCode()) || CheckServiceError(se.GetMessage())
	}
	return CheckServiceError(err.Error())
}

func asServiceError(err error) (common.ServiceError, bool) {
	var se common.ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
