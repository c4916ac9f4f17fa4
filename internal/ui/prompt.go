package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter reads interactive answers. Secrets are read without echo when the
// input is a terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

// NewPrompter prompts on stdout and reads from stdin.
func NewPrompter() *Prompter {
	return &Prompter{in: bufio.NewReader(os.Stdin), out: os.Stdout, fd: int(os.Stdin.Fd())}
}

// NewPrompterFrom reads answers from in. Secrets are echoed since in is not
// a terminal.
func NewPrompterFrom(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, fd: -1}
}

// Line asks for one line of input and returns it trimmed.
func (p *Prompter) Line(prompt string) (string, error) {
	fmt.Fprintf(p.out, "%s%s%s ", ColorBold, prompt, ColorReset)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Secret asks for a value without echoing it.
func (p *Prompter) Secret(prompt string) (string, error) {
	if p.fd < 0 || !term.IsTerminal(p.fd) {
		return p.Line(prompt)
	}
	fmt.Fprintf(p.out, "%s%s%s ", ColorBold, prompt, ColorReset)
	data, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Confirm asks a yes/no question. Anything but y or yes is no.
func (p *Prompter) Confirm(question string) (bool, error) {
	answer, err := p.Line(question + " [y/N]")
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
