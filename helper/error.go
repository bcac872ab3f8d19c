package helper

import "fmt"

// NewError wraps err with the action that failed, keeping the original error
// available for errors.Is/errors.As checks.
func NewError(action string, err error) error {
	return fmt.Errorf("error in %s: %w", action, err)
}
