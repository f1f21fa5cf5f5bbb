package registry

import (
	"fmt"
)

// InvalidRegistrationError indicates a registration failed its validity check.
type InvalidRegistrationError struct {
	Key   Key
	Cause error
}

func (e InvalidRegistrationError) Error() string {
	if e.Key.ServiceType == nil {
		return fmt.Sprintf("invalid registration: %v", e.Cause)
	}
	return fmt.Sprintf("invalid registration %s: %v", e.Key, e.Cause)
}

func (e InvalidRegistrationError) Unwrap() error {
	return e.Cause
}

// StaleRegistrationError indicates an attempt to register a key that this
// scope has already resolved and cached.
type StaleRegistrationError struct {
	Key Key
}

func (e StaleRegistrationError) Error() string {
	return fmt.Sprintf("cannot register %s: it has already been resolved and cached", e.Key)
}
