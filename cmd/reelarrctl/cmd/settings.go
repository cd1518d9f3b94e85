package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect and mutate the process-wide configuration tree",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Get all settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		var out any
		if err := apiRequest("GET", "/api/v1/settings/", nil, &out); err != nil {
			return err
		}
		printJSON(out)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a single setting and reinitialize dependent services",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch := map[string]any{args[0]: settingValue(args[1])}
		var out any
		if err := apiRequest("POST", "/api/v1/settings/", patch, &out); err != nil {
			return err
		}
		printJSON(out)
		return nil
	},
}

var settingsSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Persist the currently effective settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiRequest("POST", "/api/v1/settings/save", nil, nil); err != nil {
			return err
		}
		fmt.Println("settings saved")
		return nil
	},
}

var settingsLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the last-saved settings and reinitialize dependent services",
	RunE: func(cmd *cobra.Command, args []string) error {
		var out any
		if err := apiRequest("POST", "/api/v1/settings/load", nil, &out); err != nil {
			return err
		}
		printJSON(out)
		return nil
	},
}

var settingsAPIKeyCmd = &cobra.Command{
	Use:   "generate-apikey",
	Short: "Mint a new API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		var out map[string]string
		if err := apiRequest("POST", "/api/v1/settings/apikey", nil, &out); err != nil {
			return err
		}
		fmt.Println(out["api_key"])
		return nil
	},
}

// settingValue tries bool, then int, then leaves the value as a string,
// since the settings patch's whitelisted fields are a mix of bools,
// ints, and strings, and the admin surface itself validates the final
// shape.
func settingValue(raw string) any {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	return raw
}

func init() {
	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd, settingsSaveCmd, settingsLoadCmd, settingsAPIKeyCmd)
}
