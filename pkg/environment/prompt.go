package environment

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// TTYPath is the controlling terminal. Prompts read from it rather than
// stdin so they still work when the program's stdin is a pipe.
const TTYPath = "/dev/tty"

// Prompter asks the operator questions.
type Prompter interface {
	// Confirm asks a yes/no question until it gets a recognised answer.
	Confirm(question string) (bool, error)

	// AskUsername asks for a username until validate accepts it.
	AskUsername(validate func(string) error) (string, error)
}

// LinePrompter implements Prompter over a line-oriented reader and writer.
type LinePrompter struct {
	in     *bufio.Reader
	out    io.Writer
	closer io.Closer
}

// NewLinePrompter creates a prompter reading answers from in.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

// OpenTTY opens the controlling terminal for prompting.
func OpenTTY() (*LinePrompter, error) {
	tty, err := os.OpenFile(TTYPath, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open terminal: %w", err)
	}
	p := NewLinePrompter(tty, tty)
	p.closer = tty
	return p, nil
}

// Close releases the terminal, if one was opened.
func (p *LinePrompter) Close() error {
	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}

// Confirm implements Prompter.
func (p *LinePrompter) Confirm(question string) (bool, error) {
	for {
		fmt.Fprintf(p.out, "%s [y/n] ", question)
		answer, err := p.readLine()
		if err != nil {
			return false, err
		}

		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(p.out, "Please answer y or n.")
	}
}

// AskUsername implements Prompter.
func (p *LinePrompter) AskUsername(validate func(string) error) (string, error) {
	for {
		fmt.Fprint(p.out, "Name of the user to set the desktop up for: ")
		name, err := p.readLine()
		if err != nil {
			return "", err
		}
		if name == "" {
			continue
		}
		if validate != nil {
			if err := validate(name); err != nil {
				fmt.Fprintf(p.out, "%v\n", err)
				continue
			}
		}
		return name, nil
	}
}

// readLine returns the next trimmed line. EOF with no pending input is an error.
func (p *LinePrompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}
