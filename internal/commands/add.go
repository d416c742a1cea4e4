package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"moviecat/internal/catalog"
	"moviecat/internal/config"
	"moviecat/internal/exitcode"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	title     string
	link      string
	imagePath string
	position  int
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return nil }
func (c *AddCmd) Synopsis() string  { return "Add a movie at a position" }
func (c *AddCmd) Usage() string {
	return "moviecat add --link <url> --image <file> --position <n> [--title <title>] [title...]"
}
func (c *AddCmd) NeedsStore() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.title, "title", "", "")
	fs.StringVar(&c.link, "link", "", "")
	fs.StringVar(&c.imagePath, "image", "", "")
	fs.IntVar(&c.position, "position", 0, "")
	fs.IntVar(&c.position, "p", 0, "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, svc *catalog.Service, args []string, out, errOut io.Writer) int {
	// Title from flag or remaining args
	title := c.title
	if title == "" {
		title = strings.Join(args, " ")
	} else if len(args) > 0 {
		fmt.Fprintln(errOut, "error: cannot use both --title and a positional title")
		return exitcode.UserError
	}

	var image string
	if c.imagePath != "" {
		data, err := os.ReadFile(c.imagePath)
		if err != nil {
			fmt.Fprintf(errOut, "error: failed to read image: %v\n", err)
			return exitcode.UserError
		}
		image, err = catalog.EncodeImage(data)
		if err != nil {
			return reportError(errOut, err)
		}
	}

	m, err := svc.Add(ctx, catalog.Draft{
		Title:    title,
		Link:     c.link,
		Image:    image,
		Position: c.position,
	})
	if err != nil {
		return reportError(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "ok %s\n", m.ID)
	}
	return exitcode.Success
}
