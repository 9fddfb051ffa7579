package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()
	app.Name = "rewine"
	app.Usage = "Sign in to rewine and check what your session can reach"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    flagAPIURL,
			Usage:   "Base URL of the rewine API",
			EnvVars: []string{"REWINE_API_BASE_URL"},
		},
		&cli.BoolFlag{
			Name:    flagDebug,
			Aliases: []string{"d"},
			Usage:   "Log debug output to stderr",
		},
	}
	app.Before = setupLogging
	app.Commands = []*cli.Command{
		{
			Name:      "login",
			Usage:     "Log in to rewine",
			ArgsUsage: "USERNAME_OR_EMAIL",
			Description: "Prompts for the password unless --password is given. " +
				"The session is kept in ~/.rewine/session.json.",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    flagPassword,
					Aliases: []string{"p"},
					Usage:   "Specify the password non-interactively",
				},
				cliFlagRedirect,
			},
			Action: login,
		},
		{
			Name:  "register",
			Usage: "Create a rewine account and log in",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     flagEmail,
					Aliases:  []string{"e"},
					Usage:    "Email address for the new account",
					Required: true,
				},
				&cli.StringFlag{
					Name:    flagUsername,
					Aliases: []string{"u"},
					Usage:   "Optional username",
				},
				&cli.StringFlag{
					Name:     flagName,
					Aliases:  []string{"n"},
					Usage:    "Name shown to other users",
					Required: true,
				},
				&cli.StringFlag{
					Name:    flagPassword,
					Aliases: []string{"p"},
					Usage:   "Specify the password non-interactively",
				},
				cliFlagRedirect,
			},
			Action: register,
		},
		{
			Name:   "logout",
			Usage:  "Log out of rewine",
			Action: logout,
		},
		{
			Name:  "whoami",
			Usage: "Show the signed in user",
			Flags: []cli.Flag{
				cliFlagOutput,
			},
			Action: whoami,
		},
		{
			Name:      "open",
			Usage:     "Navigate to a page and report where the route guard lets you land",
			ArgsUsage: "PATH",
			Action:    open,
		},
		{
			Name:   "status",
			Usage:  "Show session and API status",
			Action: status,
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println()
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Printf("\n%s\n\n", err)
		stop()
		os.Exit(1)
	}
	fmt.Println()
}
