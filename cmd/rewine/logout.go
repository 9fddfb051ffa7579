package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func logout(c *cli.Context) error {
	// Args
	if c.Args().Len() != 0 {
		return errors.New("logout requires no arguments")
	}

	a, err := getApp(c)
	if err != nil {
		return err
	}

	// Restore only; the server is told about the logout either way.
	if !a.Session().Restore() {
		fmt.Println("Not logged in.")
		return nil
	}
	a.Logout(c.Context)

	fmt.Println("Logout was successful.")
	return nil
}
