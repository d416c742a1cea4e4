package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"moviecat/internal/catalog"
	"moviecat/internal/exitcode"
	"moviecat/internal/store"
)

// resolveRef resolves the single movie reference in args.
func resolveRef(ctx context.Context, svc *catalog.Service, args []string, errOut io.Writer) (store.Movie, int) {
	if len(args) == 0 {
		fmt.Fprintf(errOut, "error: %v\n", catalog.ErrRefRequired)
		return store.Movie{}, exitcode.UserError
	}
	if len(args) > 1 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[1])
		return store.Movie{}, exitcode.UserError
	}

	m, err := svc.Resolve(ctx, args[0])
	if err != nil {
		return store.Movie{}, reportError(errOut, err)
	}
	return m, exitcode.Success
}

// parsePosition parses a positional position argument.
func parsePosition(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(s), "#"))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid position: %s", s)
	}
	return n, nil
}
