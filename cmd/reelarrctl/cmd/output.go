package cmd

import (
	"encoding/json"
	"fmt"
)

// printJSON pretty-prints a decoded API response to stdout.
func printJSON(v any) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(raw))
}
