package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"moviecat/internal/catalog"
	"moviecat/internal/config"
	"moviecat/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "moviecat help" }
func (c *HelpCmd) NeedsStore() bool  { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, svc *catalog.Service, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, HelpText(DefaultRegistry))
	return exitcode.Success
}

// HelpText renders usage for every command in r.
func HelpText(r *Registry) string {
	var b strings.Builder
	b.WriteString("Usage:\n")
	b.WriteString("  moviecat                List movies (same as list)\n")
	catalogCmds, localCmds := r.Split()
	b.WriteString("\nCatalog commands:\n")
	writeUsages(&b, catalogCmds)
	b.WriteString("\nOther commands:\n")
	writeUsages(&b, localCmds)
	b.WriteString(`
References:
  <ref> is a movie ID or a position (3 or #3).

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`)
	return b.String()
}

func writeUsages(b *strings.Builder, cmds []Command) {
	for _, cmd := range cmds {
		fmt.Fprintf(b, "  %s\n", cmd.Usage())
		fmt.Fprintf(b, "      %s", cmd.Synopsis())
		if aliases := cmd.Aliases(); len(aliases) > 0 {
			fmt.Fprintf(b, " (alias: %s)", strings.Join(aliases, ", "))
		}
		b.WriteString("\n")
	}
}
