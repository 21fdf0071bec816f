package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/netforge-io/netforge/pkg/connector"
)

// promptCredentials interactively collects direct-session credentials. The
// password is read without echo; a non-terminal stdin falls back to a plain
// line read so the flag still works under scripted input.
func promptCredentials() (connector.Credentials, error) {
	reader := bufio.NewReader(os.Stdin)

	fmt.Fprint(os.Stderr, "Username: ")
	username, err := reader.ReadString('\n')
	if err != nil {
		return connector.Credentials{}, fmt.Errorf("reading username: %w", err)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return connector.Credentials{}, fmt.Errorf("username required")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	var password string
	if term.IsTerminal(int(os.Stdin.Fd())) {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return connector.Credentials{}, fmt.Errorf("reading password: %w", err)
		}
		password = string(raw)
	} else {
		line, err := reader.ReadString('\n')
		if err != nil {
			return connector.Credentials{}, fmt.Errorf("reading password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	return connector.Credentials{Username: username, Password: password}, nil
}
