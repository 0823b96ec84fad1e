//go:build !darwin

package permissions

// Microphone is a no-op on platforms without an explicit permission gate.
func Microphone() error {
	return nil
}
