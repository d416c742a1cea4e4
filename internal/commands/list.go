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
	Register(&ListCmd{})
	Register(&ShowCmd{})
}

// ListCmd implements the list command.
// Handles both `moviecat` (no args) and `moviecat list`.
type ListCmd struct{}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List movies in display order" }
func (c *ListCmd) Usage() string     { return "moviecat list" }
func (c *ListCmd) NeedsStore() bool  { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, svc *catalog.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	movies, err := svc.List(ctx)
	if err != nil {
		return reportError(errOut, err)
	}

	if len(movies) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no movies found")
		}
		return exitcode.Success
	}

	for _, m := range movies {
		output.FormatMovie(out, m)
	}
	return exitcode.Success
}

// ShowCmd implements the show command.
type ShowCmd struct{}

func (c *ShowCmd) Name() string      { return "show" }
func (c *ShowCmd) Aliases() []string { return nil }
func (c *ShowCmd) Synopsis() string  { return "Show a movie" }
func (c *ShowCmd) Usage() string     { return "moviecat show <ref>" }
func (c *ShowCmd) NeedsStore() bool  { return true }

func (c *ShowCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ShowCmd) Run(ctx context.Context, cfg *config.Config, svc *catalog.Service, args []string, out, errOut io.Writer) int {
	m, code := resolveRef(ctx, svc, args, errOut)
	if code != exitcode.Success {
		return code
	}
	output.FormatMovieDetail(out, m)
	return exitcode.Success
}
