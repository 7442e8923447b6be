package auth

import (
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"
)

// PromptPassword writes prompt to out and reads a password from stdin
// without echoing it, for callers building a small CLI against this
// library that don't want to roll their own terminal handling.
func PromptPassword(out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	passBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(passBytes), nil
}
