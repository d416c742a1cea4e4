package commands

import (
	"errors"
	"fmt"
	"io"

	"moviecat/internal/catalog"
	"moviecat/internal/exitcode"
	"moviecat/internal/output"
	"moviecat/internal/reindex"
	"moviecat/internal/store"
)

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return exitcode.Success
	case errors.Is(err, store.ErrUnauthorized):
		return exitcode.AuthError
	case errors.Is(err, catalog.ErrInvalid),
		errors.Is(err, catalog.ErrRefRequired),
		errors.Is(err, catalog.ErrAmbiguous),
		errors.Is(err, reindex.ErrInvalidPosition),
		errors.Is(err, store.ErrNotFound):
		return exitcode.UserError
	default:
		return exitcode.BackendError
	}
}

// reportError prints err to errOut and returns its exit code.
func reportError(errOut io.Writer, err error) int {
	code := ExitCode(err)
	switch code {
	case exitcode.BackendError:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	case exitcode.AuthError:
		fmt.Fprintf(errOut, "error: auth error: %v\n", err)
	default:
		fmt.Fprintf(errOut, "error: %v\n", err)
	}

	var werr *reindex.WriteError
	if errors.As(err, &werr) {
		output.FormatWriteError(errOut, werr)
		fmt.Fprintln(errOut, "run 'moviecat check' to inspect positions and 'moviecat compact' to renumber")
	}
	return code
}
