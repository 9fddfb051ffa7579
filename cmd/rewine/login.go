package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/jrsteele09/rewine-client/users"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

func login(c *cli.Context) error {
	// Args
	if c.Args().Len() != 1 {
		return errors.New(
			"login requires one argument-- a username or email address",
		)
	}
	identifier := c.Args().Get(0)

	password, err := passwordFrom(c, "Password: ")
	if err != nil {
		return err
	}

	a, err := getApp(c)
	if err != nil {
		return err
	}

	user, err := a.Login(c.Context, identifier, password, c.String(flagRedirect))
	if err != nil {
		return describe(err, "login failed")
	}

	fmt.Printf("Logged in as %s.\n", displayName(user))
	fmt.Printf("Now at %s\n", a.Router().Current())
	return nil
}

func register(c *cli.Context) error {
	if c.Args().Len() != 0 {
		return errors.New("register requires no arguments")
	}

	password, err := passwordFrom(c, "Choose a password: ")
	if err != nil {
		return err
	}
	confirm := password
	if c.String(flagPassword) == "" {
		if confirm, err = readPassword("Confirm password: "); err != nil {
			return err
		}
	}

	a, err := getApp(c)
	if err != nil {
		return err
	}

	user, err := a.Register(c.Context, users.RegisterInput{
		Username:        c.String(flagUsername),
		Email:           c.String(flagEmail),
		Password:        password,
		ConfirmPassword: confirm,
		Name:            c.String(flagName),
	}, c.String(flagRedirect))
	if err != nil {
		return describe(err, "registration failed")
	}

	fmt.Printf("Welcome to rewine, %s.\n", displayName(user))
	if !user.EmailVerified {
		fmt.Printf("Check %s for a verification link.\n", user.Email)
	}
	return nil
}

func passwordFrom(c *cli.Context, prompt string) (string, error) {
	if p := c.String(flagPassword); p != "" {
		return p, nil
	}
	return readPassword(prompt)
}

// readPassword prompts without echo on a terminal and reads a plain line otherwise.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", errors.Wrap(err, "error reading password")
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Print(prompt)
	b, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", errors.Wrap(err, "error reading password")
	}
	return string(b), nil
}

func displayName(u *users.User) string {
	if u == nil {
		return ""
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Identifier()
}
