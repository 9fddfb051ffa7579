package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/gosuri/uitable"
	"github.com/jrsteele09/rewine-client/bootstrap"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func whoami(c *cli.Context) error {
	// Args
	if c.Args().Len() != 0 {
		return errors.New("whoami requires no arguments")
	}

	// Command-specific flags
	output := c.String(flagOutput)

	if err := validateOutputFormat(output); err != nil {
		return err
	}

	a, err := getApp(c)
	if err != nil {
		return err
	}

	result := a.Init(c.Context)
	if result.User == nil {
		fmt.Println("Not logged in.")
		return nil
	}
	if result.Outcome == bootstrap.Degraded {
		fmt.Println("(could not reach the rewine API; showing the saved session)")
	}
	user := result.User

	switch strings.ToLower(output) {
	case "table":
		roles := make([]string, 0, len(user.Roles))
		for _, r := range user.Roles {
			roles = append(roles, string(r))
		}
		table := uitable.New()
		table.AddRow("ID", "USERNAME", "EMAIL", "NAME", "ROLES", "VERIFIED?")
		table.AddRow(
			user.ID,
			user.Username,
			user.Email,
			user.DisplayName,
			strings.Join(roles, ","),
			user.EmailVerified,
		)
		fmt.Println(table)

	case "yaml":
		yamlBytes, err := yaml.Marshal(user)
		if err != nil {
			return errors.Wrap(err, "error formatting output from whoami operation")
		}
		fmt.Println(string(yamlBytes))

	case "json":
		prettyJSON, err := json.MarshalIndent(user, "", "  ")
		if err != nil {
			return errors.Wrap(err, "error formatting output from whoami operation")
		}
		fmt.Println(string(prettyJSON))
	}

	return nil
}
