package cmd

import "github.com/spf13/cobra"

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Fetch upcoming movies and shows by aired date",
	RunE: func(cmd *cobra.Command, args []string) error {
		var out any
		if err := apiRequest("GET", "/api/v1/calendar", nil, &out); err != nil {
			return err
		}
		printJSON(out)
		return nil
	},
}
