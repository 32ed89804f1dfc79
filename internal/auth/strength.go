package auth

// PasswordStrength maps a password to a display-only strength level 0..4 by
// length thresholds. It gates nothing.
func PasswordStrength(password string) int {
	switch n := len(password); {
	case n == 0:
		return 0
	case n < 4:
		return 1
	case n < 6:
		return 2
	case n < 8:
		return 3
	default:
		return 4
	}
}
