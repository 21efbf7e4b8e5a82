package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/formbricks/popchoice/internal/models"
)

// Questions shown on the questions view, in form order.
const (
	QuestionFavorite = "What's your favorite movie and why?"
	QuestionRecency  = "Are you in the mood for something new or a classic?"
	QuestionTone     = "Do you wanna have fun or do you want something serious?"

	ConfirmAllBlank = "You left every answer blank. Get a general pick anyway?"
)

const glamourStyle = "dark"

// prompter reads answers line by line and writes the views.
type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewScanner(in), out: out}
}

// ask prints question and returns the trimmed answer line. io.EOF means the input is closed.
func (p *prompter) ask(question string) (string, error) {
	fmt.Fprintf(p.out, "%s\n> ", question)

	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", fmt.Errorf("read answer: %w", err)
		}

		return "", io.EOF
	}

	return strings.TrimSpace(p.in.Text()), nil
}

// askPreferences collects the three answers.
func (p *prompter) askPreferences() (models.Preferences, error) {
	var (
		prefs models.Preferences
		err   error
	)

	if prefs.Favorite, err = p.ask(QuestionFavorite); err != nil {
		return prefs, err
	}

	if prefs.Recency, err = p.ask(QuestionRecency); err != nil {
		return prefs, err
	}

	if prefs.Tone, err = p.ask(QuestionTone); err != nil {
		return prefs, err
	}

	return prefs, nil
}

// confirm asks a yes/no question; anything but y/yes is no.
func (p *prompter) confirm(question string) (bool, error) {
	answer, err := p.ask(question + " [y/N]")
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}

		return false, err
	}

	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// showView prints the output view: title, then the recommendation rendered as markdown or the message.
func (p *prompter) showView(view models.SessionView) {
	fmt.Fprintf(p.out, "\n%s\n\n", view.Title)

	if view.Message != "" {
		fmt.Fprintf(p.out, "%s\n\n", view.Message)
	}

	if view.Recommendation == "" {
		return
	}

	rendered, err := glamour.Render(view.Recommendation, glamourStyle)
	if err != nil {
		fmt.Fprintln(p.out, view.Recommendation)

		return
	}

	fmt.Fprint(p.out, rendered)
}
