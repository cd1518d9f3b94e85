package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Manage media items (spec §6 item operations)",
}

var (
	addType  string
	addTitle string
	addIMDB  string
	addTMDB  string
	addTVDB  string
)

var itemsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new media item",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := map[string]string{"type": addType, "title": addTitle}
		if addIMDB != "" {
			req["imdb_id"] = addIMDB
		}
		if addTMDB != "" {
			req["tmdb_id"] = addTMDB
		}
		if addTVDB != "" {
			req["tvdb_id"] = addTVDB
		}
		var out map[string]int64
		if err := apiRequest("POST", "/api/v1/items/", req, &out); err != nil {
			return err
		}
		fmt.Printf("created item %d\n", out["id"])
		return nil
	},
}

func itemActionCmd(use, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiRequest("POST", fmt.Sprintf("/api/v1/items/%s/%s", args[0], path), nil, nil); err != nil {
				return err
			}
			fmt.Printf("%s: item %s\n", use, args[0])
			return nil
		},
	}
}

var itemsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Fetch a media item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var out any
		if err := apiRequest("GET", "/api/v1/items/"+args[0], nil, &out); err != nil {
			return err
		}
		printJSON(out)
		return nil
	},
}

var itemsRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Delete a media item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiRequest("DELETE", "/api/v1/items/"+args[0], nil, nil); err != nil {
			return err
		}
		fmt.Printf("removed item %s\n", args[0])
		return nil
	},
}

var itemsStreamsCmd = &cobra.Command{
	Use:   "streams <id>",
	Short: "List a media item's streams",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var out any
		if err := apiRequest("GET", "/api/v1/items/"+args[0]+"/streams", nil, &out); err != nil {
			return err
		}
		printJSON(out)
		return nil
	},
}

func itemStreamCmd(use, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id> <infohash>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := fmt.Sprintf("/api/v1/items/%s/streams/%s/%s", args[0], args[1], path)
			if err := apiRequest("POST", p, nil, nil); err != nil {
				return err
			}
			fmt.Printf("%s: item %s stream %s\n", use, args[0], args[1])
			return nil
		},
	}
}

func init() {
	itemsAddCmd.Flags().StringVar(&addType, "type", "", "item type (movie|show|season|episode)")
	itemsAddCmd.Flags().StringVar(&addTitle, "title", "", "title")
	itemsAddCmd.Flags().StringVar(&addIMDB, "imdb", "", "IMDB id")
	itemsAddCmd.Flags().StringVar(&addTMDB, "tmdb", "", "TMDB id")
	itemsAddCmd.Flags().StringVar(&addTVDB, "tvdb", "", "TVDB id")
	_ = itemsAddCmd.MarkFlagRequired("type")
	_ = itemsAddCmd.MarkFlagRequired("title")

	itemsCmd.AddCommand(
		itemsAddCmd,
		itemsGetCmd,
		itemsRemoveCmd,
		itemsStreamsCmd,
		itemActionCmd("reset", "Reset an item back to Requested", "reset"),
		itemActionCmd("retry", "Retry an item's current stage", "retry"),
		itemActionCmd("reindex", "Refresh an item's metadata", "reindex"),
		itemActionCmd("pause", "Pause an item", "pause"),
		itemActionCmd("unpause", "Unpause an item", "unpause"),
		itemActionCmd("reset-streams", "Clear an item's candidate and blacklisted streams", "streams/reset"),
		itemStreamCmd("blacklist", "Blacklist a stream", "blacklist"),
		itemStreamCmd("unblacklist", "Un-blacklist a stream", "unblacklist"),
	)
}
