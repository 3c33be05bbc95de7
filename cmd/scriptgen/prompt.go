package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/uhyunpark/scriptgen/pkg/app/script"
)

// answers collected by the interactive prompt
type answers struct {
	Params script.Params
	Name   string
}

type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewScanner(in), out: out}
}

// ask prints the question and returns the trimmed answer, or def when the
// answer is empty or input is exhausted.
func (p *prompter) ask(question, def string) string {
	fmt.Fprint(p.out, question)
	if !p.in.Scan() {
		fmt.Fprintln(p.out)
		return def
	}
	if ans := strings.TrimSpace(p.in.Text()); ans != "" {
		return ans
	}
	return def
}

func (p *prompter) askInt(question string, def int) (int, error) {
	ans := p.ask(question, strconv.Itoa(def))
	n, err := strconv.Atoi(ans)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", script.ErrInvalidConfiguration, ans)
	}
	return n, nil
}

// askYes treats only "y" (any case) as yes, so "(Y/n)" defaults to yes.
func (p *prompter) askYes(question string) bool {
	return strings.EqualFold(p.ask(question, "y"), "y")
}

// promptParams asks for each parameter in turn. An empty answer takes the
// default: 1 client, 100 transactions, 1 instrument, "test", yes, yes.
func promptParams(in io.Reader, out io.Writer) (answers, error) {
	p := newPrompter(in, out)
	var a answers
	var err error

	if a.Params.Clients, err = p.askInt("Number of clients: ", 1); err != nil {
		return a, err
	}
	if a.Params.Transactions, err = p.askInt("Number of test transactions: ", 100); err != nil {
		return a, err
	}
	question := fmt.Sprintf("Number of instruments [1-%d]: ", len(script.Instruments))
	if a.Params.NumInstruments, err = p.askInt(question, 1); err != nil {
		return a, err
	}
	a.Name = p.ask("Name of the test file: ", "test") + ".in"
	a.Params.Cancel = p.askYes("Include cancel operations? (Y/n) ")
	a.Params.RoundNumbers = p.askYes("Use round numbers for price and count? (Y/n) ")
	return a, nil
}
