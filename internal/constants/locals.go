package constants

// Locals keys set by the identity middleware.
const (
	LocalsIdentity = "identity"
)
