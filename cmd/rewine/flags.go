package main

import "github.com/urfave/cli/v2"

const (
	flagAPIURL   = "api-url"
	flagDebug    = "debug"
	flagEmail    = "email"
	flagName     = "name"
	flagOutput   = "output"
	flagPassword = "password"
	flagRedirect = "redirect"
	flagUsername = "username"
)

var (
	cliFlagOutput = &cli.StringFlag{
		Name:    flagOutput,
		Aliases: []string{"o"},
		Usage:   "Return output in another format. Supported formats: table, json, yaml",
		Value:   "table",
	}
	cliFlagRedirect = &cli.StringFlag{
		Name:  flagRedirect,
		Usage: "Page to open once logged in",
	}
)
