package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
)

// stdoutIsTerminal reports whether stdout is an interactive terminal.
func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// writeOutput writes data to path, or to stdout when path is empty. Binary
// (DER) output is refused on a terminal.
func writeOutput(path string, data []byte, binary bool) error {
	if path == "" {
		if binary && stdoutIsTerminal() {
			return errors.New("refusing to write DER to a terminal; use --out or redirect stdout")
		}
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
