// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

// vmasfs mounts a ZIP archive as a FUSE filesystem: files and
// directories inside the archive appear as regular files and
// directories under the mountpoint, and changes made through the
// mount are written back into the archive at unmount.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/vmasfs/vmasfs/lib/archive"
	"github.com/vmasfs/vmasfs/lib/cli"
	"github.com/vmasfs/vmasfs/lib/clock"
	"github.com/vmasfs/vmasfs/lib/config"
	"github.com/vmasfs/vmasfs/lib/fuseops"
	"github.com/vmasfs/vmasfs/lib/secret"
	"github.com/vmasfs/vmasfs/lib/version"
	"github.com/vmasfs/vmasfs/tree"
)

// passwordAttempts mirrors the original implementation's try_count:
// up to three chances to enter the right password before giving up.
const passwordAttempts = 3

func main() {
	if err := run(os.Args[1:]); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "vmasfs: %v\n", err)
		os.Exit(1)
	}
}

// options holds every vmasfs flag, parsed once in run.
type options struct {
	help       bool
	showVer    bool
	readOnly   bool
	foreground bool
	debug      bool
	prompt     bool
	extraOpts  []string
}

func run(args []string) error {
	flagSet := pflag.NewFlagSet("vmasfs", pflag.ContinueOnError)
	flagSet.Usage = func() {}
	flagSet.SetOutput(discardWriter{})

	var opts options
	flagSet.BoolVarP(&opts.help, "help", "h", false, "print usage and exit")
	flagSet.BoolVarP(&opts.showVer, "version", "V", false, "print version and exit")
	flagSet.BoolVarP(&opts.readOnly, "read-only", "r", false, "mount read-only")
	flagSet.BoolVarP(&opts.foreground, "foreground", "f", false, "run in the foreground")
	flagSet.BoolVarP(&opts.debug, "debug", "d", false, "enable FUSE debug logging (implies -f)")
	flagSet.BoolVarP(&opts.prompt, "password", "p", false, "prompt for the archive password (up to 3 attempts)")
	flagSet.StringSliceVarP(&opts.extraOpts, "option", "o", nil, "comma-separated host mount option(s); 'ro' is a synonym for -r")

	if err := flagSet.Parse(args); err != nil {
		printUsage(os.Stderr)
		return &cli.ExitError{Code: 2}
	}

	if opts.help {
		printUsage(os.Stdout)
		return nil
	}
	if opts.showVer {
		fmt.Println("vmasfs", version.Info())
		return nil
	}

	for _, group := range opts.extraOpts {
		for _, sub := range strings.Split(group, ",") {
			if sub == "ro" {
				opts.readOnly = true
			}
		}
	}
	if opts.debug {
		opts.foreground = true
	}

	positional := flagSet.Args()
	if len(positional) != 2 {
		printUsage(os.Stderr)
		return &cli.ExitError{Code: 2}
	}
	archivePath, mountpoint := positional[0], positional[1]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "vmasfs: %v\n", err)
		return &cli.ExitError{Code: 1}
	}
	logger := cli.NewLogger(cli.LevelFromString(cfg.LogLevel))

	a, err := openArchive(archivePath, opts.prompt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vmasfs: %v\n", err)
		return &cli.ExitError{Code: 1}
	}

	tr := tree.New(a, clock.Real(), cfg.ChunkSize, uint32(os.Getuid()), uint32(os.Getgid()))
	if err := tr.Build(opts.readOnly); err != nil {
		a.Close()
		fmt.Fprintf(os.Stderr, "vmasfs: building tree from %s: %v\n", archivePath, err)
		return &cli.ExitError{Code: 1}
	}

	server, err := fuseops.Mount(fuseops.Options{
		Mountpoint:   mountpoint,
		Tree:         tr,
		ReadOnly:     opts.readOnly,
		ArchiveDir:   filepath.Dir(absPath(archivePath)),
		Foreground:   opts.foreground,
		Debug:        opts.debug,
		AllowOther:   hasSubOption(opts.extraOpts, "allow_other"),
		ExtraOptions: opts.extraOpts,
		Logger:       logger,
	})
	if err != nil {
		a.Close()
		fmt.Fprintf(os.Stderr, "vmasfs: mounting %s at %s: %v\n", archivePath, mountpoint, err)
		return &cli.ExitError{Code: 1}
	}

	server.Wait()

	for _, err := range tr.Unmount() {
		logger.Error("saving archive", "error", err)
	}
	return nil
}

// openArchive opens the archive at path. A ZIP's directory listing is
// always readable without a password — only entry bodies are
// encrypted — so a wrong password is detected by sampling a body with
// archive.VerifyPassword, not by Open itself failing. Mirrors
// main.cpp's KEY_USE_PASSWD retry loop: up to passwordAttempts prompts
// before giving up.
func openArchive(path string, prompt bool) (archive.Archive, error) {
	a, err := archive.Open(path, "")
	if err != nil {
		return nil, err
	}
	if !prompt || archive.VerifyPassword(a) {
		return a, nil
	}
	a.Close()

	for attempt := 0; attempt < passwordAttempts; attempt++ {
		pass, err := promptPassword()
		if err != nil {
			return nil, err
		}
		candidate, openErr := archive.Open(path, pass.String())
		pass.Close()
		if openErr != nil {
			return nil, openErr
		}
		if archive.VerifyPassword(candidate) {
			return candidate, nil
		}
		candidate.Close()
		if attempt < passwordAttempts-1 {
			fmt.Fprintln(os.Stderr, "incorrect password")
		}
	}
	return nil, fmt.Errorf("incorrect password after %d attempts", passwordAttempts)
}

func promptPassword() (*secret.Buffer, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("no terminal available for an interactive password prompt")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	return secret.NewFromBytes(raw)
}

func hasSubOption(groups []string, name string) bool {
	for _, group := range groups {
		for _, sub := range strings.Split(group, ",") {
			if sub == name {
				return true
			}
		}
	}
	return false
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

func printUsage(w *os.File) {
	fmt.Fprint(w, `Usage: vmasfs [options] <archive> <mountpoint>

Mount a ZIP archive as a FUSE filesystem.

Options:
  -h, --help              print this help and exit
  -V, --version           print version and exit
  -r, --read-only         mount read-only
  -f, --foreground        run in the foreground
  -d, --debug             enable FUSE debug logging (implies -f)
  -p, --password          prompt for the archive password (up to 3 attempts)
  -o, --option opt,...    comma-separated host mount option(s) ('ro' is a
                           synonym for -r), passed through to the host mount
`)
}

// discardWriter implements io.Writer by discarding everything, used to
// silence pflag's own error/usage printing (main prints its own).
type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
