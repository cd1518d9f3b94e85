// Command reelarrctl is the administrative CLI surface (spec §6): a thin
// spf13/cobra client over the internal/api admin endpoints, the same
// client/server split the CLI surface of other_examples' gomenarr uses.
package main

import (
	"fmt"
	"os"

	"reelarr/cmd/reelarrctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
