package main

import (
	"fmt"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/gosuri/uitable"
	"github.com/jrsteele09/rewine-client/storage/file"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func status(c *cli.Context) error {
	if c.Args().Len() != 0 {
		return errors.New("status requires no arguments")
	}

	cfg := getConfig(c)
	a, err := getApp(c)
	if err != nil {
		return err
	}
	result := a.Init(c.Context)
	snap := a.Session().Snapshot()

	sessionFile, err := file.DefaultPath(cfg.GetStorageDir())
	if err != nil {
		return err
	}

	figure.NewFigure(cfg.GetAppName(), "cybermedium", true).Print()
	fmt.Println()

	table := uitable.New()
	table.AddRow("API:", cfg.GetAPIBaseURL())
	table.AddRow("SESSION FILE:", sessionFile)
	table.AddRow("BOOTSTRAP:", result.Outcome)
	table.AddRow("LOGGED IN?", a.Session().IsAuthenticated())
	if snap.User != nil {
		table.AddRow("USER:", displayName(snap.User))
	}
	if !snap.ExpiresAt.IsZero() {
		table.AddRow("ACCESS TOKEN EXPIRES:", snap.ExpiresAt.Local().Format(time.RFC1123))
	}
	if result.Err != nil {
		table.AddRow("LAST ERROR:", result.Err)
	}
	fmt.Println(table)
	return nil
}
