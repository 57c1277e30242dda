package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"catalog-admin/internal/admin"
)

// ErrNoTerminal is returned when a prompt needs an answer but stdin is not a terminal.
var ErrNoTerminal = errors.New("confirmation needed but stdin is not a terminal: re-run with --yes")

// Prompter asks the operator questions on the controlling terminal.
type Prompter struct {
	in        *bufio.Reader
	fd        int
	out       io.Writer
	assumeYes bool

	isTerminal   func(fd int) bool
	readPassword func(fd int) ([]byte, error)
}

var _ admin.Confirmer = (*Prompter)(nil)

// NewPrompter reads answers from in. With assumeYes every confirmation is
// accepted without asking.
func NewPrompter(in *os.File, out io.Writer, assumeYes bool) *Prompter {
	return &Prompter{
		in:           bufio.NewReader(in),
		fd:           int(in.Fd()),
		out:          out,
		assumeYes:    assumeYes,
		isTerminal:   term.IsTerminal,
		readPassword: term.ReadPassword,
	}
}

// Confirm asks a yes/no question. Anything but "y" or "yes" declines.
func (p *Prompter) Confirm(ctx context.Context, prompt string) (bool, error) {
	if p.assumeYes {
		return true, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !p.isTerminal(p.fd) {
		return false, ErrNoTerminal
	}

	fmt.Fprintf(p.out, "%s [y/N]: ", prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// ReadLine prints prompt and returns the trimmed line typed after it.
func (p *Prompter) ReadLine(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// ReadPassword reads a secret without echo when stdin is a terminal, and a
// plain line otherwise so passwords can be piped in.
func (p *Prompter) ReadPassword(prompt string) (string, error) {
	if !p.isTerminal(p.fd) {
		return p.ReadLine("")
	}

	fmt.Fprint(p.out, prompt)
	secret, err := p.readPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(secret), nil
}
