package utils

import (
	"github.com/pkg/errors"
)

// ContractViolation panics with a formatted error. It is reserved for caller bugs (bad dimensions,
// inconsistent derived arrays, double frees) that must not be recovered from.
func ContractViolation(format string, args ...interface{}) {
	panic(errors.Errorf("contract violation: "+format, args...))
}
