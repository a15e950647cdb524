// Package console is the interactive text front end.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04"
)

// ErrInputClosed is returned once the input stream ends.
var ErrInputClosed = errors.New("input closed")

// Prompter reads answers line by line. Malformed answers are reported and
// asked again; only the end of input stops a prompt.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	loc *time.Location
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, loc: time.Local}
}

func (p *Prompter) Printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

func (p *Prompter) Println(args ...any) {
	fmt.Fprintln(p.out, args...)
}

// ReadLine prints label and returns the trimmed answer.
func (p *Prompter) ReadLine(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", err
		}
		if line == "" {
			return "", ErrInputClosed
		}
	}
	return strings.TrimSpace(line), nil
}

// ReadRequired asks until the answer is not blank.
func (p *Prompter) ReadRequired(label string) (string, error) {
	for {
		v, err := p.ReadLine(label)
		if err != nil {
			return "", err
		}
		if v != "" {
			return v, nil
		}
		p.Println("A value is required.")
	}
}

// ReadInt asks until the answer is an integer in [min, max].
func (p *Prompter) ReadInt(label string, min, max int) (int, error) {
	for {
		v, err := p.ReadLine(label)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < min || n > max {
			p.Printf("Enter a number between %d and %d.\n", min, max)
			continue
		}
		return n, nil
	}
}

// Confirm asks a yes/no question.
func (p *Prompter) Confirm(label string) (bool, error) {
	for {
		v, err := p.ReadLine(label + " (y/n): ")
		if err != nil {
			return false, err
		}
		switch strings.ToLower(v) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		p.Println("Please answer y or n.")
	}
}

func (p *Prompter) ReadDate(label string) (time.Time, error) {
	return p.readTime(label, DateLayout)
}

func (p *Prompter) ReadDateTime(label string) (time.Time, error) {
	return p.readTime(label, DateTimeLayout)
}

// ReadOptionalDate returns the zero time for a blank answer.
func (p *Prompter) ReadOptionalDate(label string) (time.Time, error) {
	for {
		v, err := p.ReadLine(label)
		if err != nil || v == "" {
			return time.Time{}, err
		}
		t, err := time.ParseInLocation(DateLayout, v, p.loc)
		if err == nil {
			return t, nil
		}
		p.Printf("Use the format %s.\n", DateLayout)
	}
}

// Choose prints options numbered from 1 and returns the chosen index.
func (p *Prompter) Choose(title string, options []string) (int, error) {
	p.Println(title)
	for i, o := range options {
		p.Printf("  %d. %s\n", i+1, o)
	}
	n, err := p.ReadInt("Choice: ", 1, len(options))
	if err != nil {
		return 0, err
	}
	return n - 1, nil
}

func (p *Prompter) readTime(label, layout string) (time.Time, error) {
	for {
		v, err := p.ReadLine(label)
		if err != nil {
			return time.Time{}, err
		}
		t, err := time.ParseInLocation(layout, v, p.loc)
		if err == nil {
			return t, nil
		}
		p.Printf("Use the format %s.\n", layout)
	}
}
