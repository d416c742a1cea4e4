// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error: bad args or config, invalid input,
	// unknown or ambiguous movie reference, or a failed check.
	UserError = 1

	// AuthError indicates missing, expired or revoked credentials.
	AuthError = 2

	// BackendError indicates a backend/API/network error, including a
	// reindex stopped part way through its writes.
	BackendError = 3
)
