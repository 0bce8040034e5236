package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	goTMDB "github.com/MrEthical07/goTMDB"
)

// terminalPresenter is the login screen for a line-oriented terminal.
type terminalPresenter struct {
	in       *bufio.Reader
	out      io.Writer
	username string
}

var _ goTMDB.Presenter = (*terminalPresenter)(nil)

func newTerminalPresenter(in io.Reader, out io.Writer, username string) *terminalPresenter {
	return &terminalPresenter{
		in:       bufio.NewReader(in),
		out:      out,
		username: username,
	}
}

func (p *terminalPresenter) Credentials() (string, string) {
	username := p.username
	if username == "" {
		username = p.prompt("Username: ")
	}
	password := p.prompt("Password: ")
	return username, password
}

func (p *terminalPresenter) prompt(label string) string {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.TrimRight(line, "\r\n")
}

func (p *terminalPresenter) SetInputEnabled(enabled bool) {
	if !enabled {
		fmt.Fprintln(p.out, "Logging in...")
	}
}

func (p *terminalPresenter) ShowMessage(msg string) {
	if msg != "" {
		fmt.Fprintln(p.out, msg)
	}
}

func (p *terminalPresenter) OnLoginSucceeded(sess *goTMDB.Session) {
	fmt.Fprintf(p.out, "Logged in as %s (account %d)\n", sess.Username, sess.UserID)
}

func (p *terminalPresenter) OnLoginFailed(error) {}
