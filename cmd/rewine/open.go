package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func open(c *cli.Context) error {
	// Args
	if c.Args().Len() != 1 {
		return errors.New("open requires one argument-- a page path such as /cellar")
	}
	path := c.Args().Get(0)

	a, err := getApp(c)
	if err != nil {
		return err
	}
	a.Init(c.Context)

	landed, err := a.Navigate(path)
	if err != nil {
		return errors.Wrapf(err, "error opening %s", path)
	}
	route, _ := a.Router().Match(landed)

	if landed == path {
		fmt.Printf("Opened %s (%s).\n", landed, route.Name)
		return nil
	}
	fmt.Printf("Redirected from %s to %s (%s).\n", path, landed, route.Name)
	return nil
}
