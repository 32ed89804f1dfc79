package common

// Storage keys and key prefixes for the origin-scoped key/value store.
// LockoutPolicy owns the attempt/block/request slots; SessionVault owns the
// session slots. No other component writes these keys.
const (
	SessionKey      = "admin_session"
	SessionStartKey = "session_start"

	AttemptsKeyPrefix = "attempts_"
	BlockKeyPrefix    = "block_"
	RequestKeyPrefix  = "req_"
)
