package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"moviecat/internal/catalog"
	"moviecat/internal/config"
	"moviecat/internal/exitcode"
	"moviecat/internal/output"
)

func init() {
	Register(&ReindexCmd{})
	Register(&CompactCmd{})
	Register(&CheckCmd{})
}

// ReindexCmd implements the reindex command: it frees a position by
// shifting every movie at or after it forward by one.
type ReindexCmd struct {
	exclude string
}

func (c *ReindexCmd) Name() string      { return "reindex" }
func (c *ReindexCmd) Aliases() []string { return nil }
func (c *ReindexCmd) Synopsis() string  { return "Free a position by shifting later movies" }
func (c *ReindexCmd) Usage() string     { return "moviecat reindex [--exclude <id>] <position>" }
func (c *ReindexCmd) NeedsStore() bool  { return true }

func (c *ReindexCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.exclude, "exclude", "", "")
}

func (c *ReindexCmd) Run(ctx context.Context, cfg *config.Config, svc *catalog.Service, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintf(errOut, "error: usage: %s\n", c.Usage())
		return exitcode.UserError
	}
	pos, err := parsePosition(args[0])
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	res, err := svc.Reindex(ctx, pos, c.exclude)
	if err != nil {
		return reportError(errOut, err)
	}

	if !cfg.Quiet {
		output.FormatResult(out, res)
	}
	return exitcode.Success
}

// CompactCmd implements the compact command.
type CompactCmd struct{}

func (c *CompactCmd) Name() string      { return "compact" }
func (c *CompactCmd) Aliases() []string { return nil }
func (c *CompactCmd) Synopsis() string  { return "Renumber movies to 1..N" }
func (c *CompactCmd) Usage() string     { return "moviecat compact" }
func (c *CompactCmd) NeedsStore() bool  { return true }

func (c *CompactCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *CompactCmd) Run(ctx context.Context, cfg *config.Config, svc *catalog.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	res, err := svc.Compact(ctx)
	if err != nil {
		return reportError(errOut, err)
	}

	if !cfg.Quiet {
		output.FormatResult(out, res)
	}
	return exitcode.Success
}

// CheckCmd implements the check command. It exits with a user error when
// positions are duplicated or invalid; gaps alone are reported but allowed.
type CheckCmd struct{}

func (c *CheckCmd) Name() string      { return "check" }
func (c *CheckCmd) Aliases() []string { return nil }
func (c *CheckCmd) Synopsis() string  { return "Report duplicate, invalid and missing positions" }
func (c *CheckCmd) Usage() string     { return "moviecat check" }
func (c *CheckCmd) NeedsStore() bool  { return true }

func (c *CheckCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *CheckCmd) Run(ctx context.Context, cfg *config.Config, svc *catalog.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	rep, err := svc.Check(ctx)
	if err != nil {
		return reportError(errOut, err)
	}

	output.FormatReport(out, rep)
	if !rep.OK() {
		return exitcode.UserError
	}
	return exitcode.Success
}
