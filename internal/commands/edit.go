package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"moviecat/internal/catalog"
	"moviecat/internal/config"
	"moviecat/internal/exitcode"
)

func init() {
	Register(&EditCmd{})
}

// optionalString is a flag value that records whether it was set.
type optionalString struct {
	value string
	set   bool
}

func (o *optionalString) String() string { return o.value }

func (o *optionalString) Set(s string) error {
	o.value = s
	o.set = true
	return nil
}

func (o *optionalString) ptr() *string {
	if !o.set {
		return nil
	}
	v := o.value
	return &v
}

// EditCmd implements the edit command.
// Position is changed with move, not edit.
type EditCmd struct {
	title     optionalString
	link      optionalString
	imagePath optionalString
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Edit a movie's title, link or image" }
func (c *EditCmd) Usage() string {
	return "moviecat edit [--title <title>] [--link <url>] [--image <file>] <ref>"
}
func (c *EditCmd) NeedsStore() bool { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.Var(&c.title, "title", "")
	fs.Var(&c.link, "link", "")
	fs.Var(&c.imagePath, "image", "")
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, svc *catalog.Service, args []string, out, errOut io.Writer) int {
	patch := catalog.Patch{
		Title: c.title.ptr(),
		Link:  c.link.ptr(),
	}
	if c.imagePath.set {
		data, err := os.ReadFile(c.imagePath.value)
		if err != nil {
			fmt.Fprintf(errOut, "error: failed to read image: %v\n", err)
			return exitcode.UserError
		}
		image, err := catalog.EncodeImage(data)
		if err != nil {
			return reportError(errOut, err)
		}
		patch.Image = &image
	}
	if patch.Empty() {
		fmt.Fprintln(errOut, "error: nothing to change (use --title, --link or --image)")
		return exitcode.UserError
	}

	m, code := resolveRef(ctx, svc, args, errOut)
	if code != exitcode.Success {
		return code
	}

	if _, err := svc.Edit(ctx, m.ID, patch); err != nil {
		return reportError(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
