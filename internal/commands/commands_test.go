package commands_test

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"moviecat/internal/catalog"
	"moviecat/internal/commands"
	"moviecat/internal/config"
	"moviecat/internal/exitcode"
	"moviecat/internal/store"
	"moviecat/internal/testutil"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// runCommand is a helper to run a command against a FakeStore.
// Flags in args are parsed with the command's own flag set first.
func runCommand(t *testing.T, cmd commands.Command, fs *testutil.FakeStore, args []string, quiet bool) (stdout, stderr string, code int) {
	t.Helper()

	flags := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	cmd.RegisterFlags(flags)
	if err := flags.Parse(args); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}

	var outBuf, errBuf bytes.Buffer

	cfg := &config.Config{
		Dir:   t.TempDir(),
		Quiet: quiet,
	}

	var svc *catalog.Service
	if fs != nil {
		svc = catalog.New(fs, nil, nil, nil)
	}

	ctx := context.Background()
	code = cmd.Run(ctx, cfg, svc, flags.Args(), &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func seeded() *testutil.FakeStore {
	return testutil.NewFakeStore(
		store.Movie{ID: "a", Title: "Alien", Link: "https://example.com/a", Position: 1},
		store.Movie{ID: "b", Title: "Brazil", Link: "https://example.com/b", Position: 2},
		store.Movie{ID: "c", Title: "Cube", Link: "https://example.com/c", Position: 3},
	)
}

func writeImage(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "poster.png")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}
	return path
}

// Tests for version command
func TestVersionCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.VersionCmd{}, nil, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "moviecat 0.1.0\n" {
		t.Errorf("expected version output, got %q", stdout)
	}
}

// Tests for help command
func TestHelpCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.HelpCmd{}, nil, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	testutil.Golden(t, "help", stdout)
}

// Tests for list command
func TestListCommand_Ordered(t *testing.T) {
	fs := testutil.NewFakeStore(
		store.Movie{ID: "z", Title: "Zodiac", Position: 3},
		store.Movie{ID: "x", Title: "Xanadu", Position: 1},
		store.Movie{ID: "y", Title: "", Position: 12},
	)

	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, fs, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	expected := "   1  Xanadu  (x)\n   3  Zodiac  (z)\n  12  (untitled)  (y)\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestListCommand_Empty(t *testing.T) {
	stdout, _, code := runCommand(t, &commands.ListCmd{}, testutil.NewFakeStore(), nil, false)
	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "no movies found\n" {
		t.Errorf("expected %q, got %q", "no movies found\n", stdout)
	}

	stdout, _, _ = runCommand(t, &commands.ListCmd{}, testutil.NewFakeStore(), nil, true)
	if stdout != "" {
		t.Errorf("expected empty stdout in quiet mode, got %q", stdout)
	}
}

func TestListCommand_BackendError(t *testing.T) {
	fs := seeded()
	fs.ListAllErr = errors.New("unavailable")

	_, stderr, code := runCommand(t, &commands.ListCmd{}, fs, nil, false)
	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if stderr != "error: backend error: unavailable\n" {
		t.Errorf("unexpected stderr: %q", stderr)
	}
}

// Tests for show command
func TestShowCommand(t *testing.T) {
	img, err := catalog.EncodeImage(pngHeader)
	if err != nil {
		t.Fatal(err)
	}
	fs := testutil.NewFakeStore(store.Movie{
		ID: "a", Title: "Alien", Link: "https://example.com/a", Image: img,
		Position: 1, CreatedDate: "2024-05-01T00:00:00Z",
	})

	stdout, stderr, code := runCommand(t, &commands.ShowCmd{}, fs, []string{"#1"}, false)
	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	expected := "id:        a\n" +
		"title:     Alien\n" +
		"link:      https://example.com/a\n" +
		"position:  1\n" +
		"created:   2024-05-01T00:00:00Z\n" +
		"image:     image/png, 16 B\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestShowCommand_Errors(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		stderr string
	}{
		{"no ref", nil, "error: movie reference required\n"},
		{"missing", []string{"zz"}, "error: not found\n"},
		{"empty position", []string{"9"}, "error: no movie at position 9: not found\n"},
		{"extra arg", []string{"a", "b"}, "error: unexpected argument: b\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, code := runCommand(t, &commands.ShowCmd{}, seeded(), tt.args, false)
			if code != exitcode.UserError {
				t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
			}
			if stderr != tt.stderr {
				t.Errorf("expected %q, got %q", tt.stderr, stderr)
			}
		})
	}
}

// Tests for add command
func TestAddCommand_Success(t *testing.T) {
	fs := seeded()
	image := writeImage(t, pngHeader)

	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, fs, []string{
		"--link", "https://example.com/d", "--image", image, "--position", "2", "Dune",
	}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if !strings.HasPrefix(stdout, "ok ") {
		t.Errorf("expected 'ok <id>', got %q", stdout)
	}
	id := strings.TrimSpace(strings.TrimPrefix(stdout, "ok "))

	got := fs.Positions()
	if got["a"] != 1 || got[id] != 2 || got["b"] != 3 || got["c"] != 4 {
		t.Errorf("unexpected positions: %v", got)
	}
}

func TestAddCommand_Quiet(t *testing.T) {
	image := writeImage(t, pngHeader)
	stdout, _, code := runCommand(t, &commands.AddCmd{}, seeded(), []string{
		"--title", "Dune", "--link", "https://example.com/d", "--image", image, "-p", "1",
	}, true)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout in quiet mode, got %q", stdout)
	}
}

func TestAddCommand_ValidationErrors(t *testing.T) {
	image := writeImage(t, pngHeader)
	notImage := writeImage(t, []byte("hello, world"))

	tests := []struct {
		name   string
		args   []string
		stderr string
	}{
		{"no title", []string{"--link", "https://example.com", "--image", image, "--position", "1"}, "title"},
		{"no image", []string{"--link", "https://example.com", "--position", "1", "Dune"}, "image"},
		{"bad link", []string{"--link", "example.com", "--image", image, "--position", "1", "Dune"}, "link"},
		{"no position", []string{"--link", "https://example.com", "--image", image, "Dune"}, "position"},
		{"not an image", []string{"--link", "https://example.com", "--image", notImage, "--position", "1", "Dune"}, "unsupported content type"},
		{"missing file", []string{"--link", "https://example.com", "--image", "/does/not/exist.png", "--position", "1", "Dune"}, "failed to read image"},
		{"title twice", []string{"--title", "Dune", "--link", "https://example.com", "--image", image, "--position", "1", "Dune"}, "cannot use both"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := seeded()
			_, stderr, code := runCommand(t, &commands.AddCmd{}, fs, tt.args, false)
			if code != exitcode.UserError {
				t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
			}
			if !strings.Contains(stderr, tt.stderr) {
				t.Errorf("expected stderr to mention %q, got %q", tt.stderr, stderr)
			}
			if len(fs.Writes()) != 0 {
				t.Errorf("expected no writes, got %v", fs.Writes())
			}
		})
	}
}

// Tests for move command
func TestMoveCommand_Success(t *testing.T) {
	fs := seeded()
	stdout, stderr, code := runCommand(t, &commands.MoveCmd{}, fs, []string{"c", "1"}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	got := fs.Positions()
	if got["c"] != 1 || got["a"] != 2 || got["b"] != 3 {
		t.Errorf("unexpected positions: %v", got)
	}
}

func TestMoveCommand_ByPosition(t *testing.T) {
	fs := seeded()
	_, _, code := runCommand(t, &commands.MoveCmd{}, fs, []string{"#1", "3"}, false)
	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	got := fs.Positions()
	if got["a"] != 3 || got["b"] != 2 || got["c"] != 4 {
		t.Errorf("unexpected positions: %v", got)
	}
}

func TestMoveCommand_Errors(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		stderr string
	}{
		{"no args", nil, "error: usage: moviecat move <ref> <position>\n"},
		{"bad position", []string{"a", "zero"}, "error: invalid position: zero\n"},
		{"zero position", []string{"a", "0"}, "error: invalid position: 0\n"},
		{"unknown movie", []string{"zz", "1"}, "error: not found\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, code := runCommand(t, &commands.MoveCmd{}, seeded(), tt.args, false)
			if code != exitcode.UserError {
				t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
			}
			if stderr != tt.stderr {
				t.Errorf("expected %q, got %q", tt.stderr, stderr)
			}
		})
	}
}

// Tests for edit command
func TestEditCommand_Title(t *testing.T) {
	fs := seeded()
	stdout, stderr, code := runCommand(t, &commands.EditCmd{}, fs, []string{"--title", "Aliens", "a"}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	m, err := fs.Get(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	if m.Title != "Aliens" || m.Link != "https://example.com/a" || m.Position != 1 {
		t.Errorf("unexpected movie after edit: %+v", m)
	}
	if len(fs.Writes()) != 0 {
		t.Errorf("edit must not write positions, got %v", fs.Writes())
	}
}

func TestEditCommand_NothingToChange(t *testing.T) {
	_, stderr, code := runCommand(t, &commands.EditCmd{}, seeded(), []string{"a"}, false)
	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if !strings.Contains(stderr, "nothing to change") {
		t.Errorf("unexpected stderr: %q", stderr)
	}
}

func TestEditCommand_EmptyTitleRejected(t *testing.T) {
	_, stderr, code := runCommand(t, &commands.EditCmd{}, seeded(), []string{"--title", "", "a"}, false)
	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if !strings.Contains(stderr, "title") {
		t.Errorf("unexpected stderr: %q", stderr)
	}
}

// Tests for rm command
func TestRmCommand_Success(t *testing.T) {
	fs := seeded()
	stdout, _, code := runCommand(t, &commands.RmCmd{}, fs, []string{"2"}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	got := fs.Positions()
	if _, ok := got["b"]; ok || got["a"] != 1 || got["c"] != 3 {
		t.Errorf("unexpected positions: %v", got)
	}
}

func TestRmCommand_NoRef(t *testing.T) {
	_, stderr, code := runCommand(t, &commands.RmCmd{}, seeded(), nil, false)
	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: movie reference required\n" {
		t.Errorf("unexpected stderr: %q", stderr)
	}
}

// Tests for reindex, compact and check commands
func TestReindexCommand(t *testing.T) {
	fs := seeded()
	stdout, _, code := runCommand(t, &commands.ReindexCmd{}, fs, []string{"--exclude", "c", "1"}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "2 of 3 movies shifted\n" {
		t.Errorf("unexpected stdout: %q", stdout)
	}
	got := fs.Positions()
	if got["a"] != 2 || got["b"] != 3 || got["c"] != 3 {
		t.Errorf("unexpected positions: %v", got)
	}
}

func TestReindexCommand_InvalidPosition(t *testing.T) {
	_, stderr, code := runCommand(t, &commands.ReindexCmd{}, seeded(), []string{"0"}, false)
	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: invalid position: 0\n" {
		t.Errorf("unexpected stderr: %q", stderr)
	}
}

func TestCompactCommand(t *testing.T) {
	fs := testutil.NewFakeStore(
		store.Movie{ID: "a", Position: 2},
		store.Movie{ID: "b", Position: 5},
		store.Movie{ID: "c", Position: 9},
	)
	stdout, _, code := runCommand(t, &commands.CompactCmd{}, fs, nil, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "3 of 3 movies shifted\n" {
		t.Errorf("unexpected stdout: %q", stdout)
	}
	got := fs.Positions()
	if got["a"] != 1 || got["b"] != 2 || got["c"] != 3 {
		t.Errorf("unexpected positions: %v", got)
	}
}

func TestCheckCommand_Healthy(t *testing.T) {
	stdout, _, code := runCommand(t, &commands.CheckCmd{}, seeded(), nil, false)
	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "3 movies, highest position 3\n" {
		t.Errorf("unexpected stdout: %q", stdout)
	}
}

func TestCheckCommand_Problems(t *testing.T) {
	fs := testutil.NewFakeStore(
		store.Movie{ID: "a", Position: 1},
		store.Movie{ID: "b", Position: 1},
		store.Movie{ID: "c", Position: 4},
		store.Movie{ID: "d", Position: 0},
	)
	stdout, _, code := runCommand(t, &commands.CheckCmd{}, fs, nil, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	testutil.Golden(t, "check_problems", stdout)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, exitcode.Success},
		{store.ErrNotFound, exitcode.UserError},
		{catalog.ErrAmbiguous, exitcode.UserError},
		{&catalog.ValidationError{Field: "link", Reason: "required"}, exitcode.UserError},
		{store.ErrUnauthorized, exitcode.AuthError},
		{store.ErrConflict, exitcode.BackendError},
		{errors.New("boom"), exitcode.BackendError},
	}
	for _, tt := range tests {
		if got := commands.ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
