package cmd

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var systemCmd = &cobra.Command{
	Use:   "system",
	Short: "Administrative process control (spec §6 start/stop/restart)",
}

var systemStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the reelarr process",
	RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("reelarr is a long-running process started by its own binary or process manager; reelarrctl controls an already-running instance")
	},
}

var systemRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Reinitialize every config-dependent service without restarting the OS process",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiRequest("POST", "/api/v1/system/restart", nil, nil); err != nil {
			return err
		}
		fmt.Println("restarted")
		return nil
	},
}

var systemStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Gracefully stop the reelarr process",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiRequest("POST", "/api/v1/system/stop", nil, nil); err != nil {
			return err
		}
		fmt.Println("stopping")
		return nil
	},
}

var logsOutPath string

var systemLogsCmd = &cobra.Command{
	Use:   "upload-logs",
	Short: "Fetch the server's on-disk log file",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := httpClient.Get(addr + "/api/v1/system/logs")
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			raw, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("fetch logs: %s: %s", resp.Status, string(raw))
		}

		out := os.Stdout
		if logsOutPath != "" {
			f, err := os.Create(logsOutPath)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		_, err = io.Copy(out, resp.Body)
		return err
	},
}

var systemVFSCmd = &cobra.Command{
	Use:   "list-vfs",
	Short: "List every chunk currently resident in the on-disk cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		var out any
		if err := apiRequest("GET", "/api/v1/system/vfs", nil, &out); err != nil {
			return err
		}
		printJSON(out)
		return nil
	},
}

var snapshotOutPath string

var systemSnapshotCmd = &cobra.Command{
	Use:   "db-snapshot",
	Short: "Download a database snapshot (pg_dump custom-format)",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := httpClient.Get(addr + "/api/v1/system/database/snapshot")
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			raw, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("snapshot: %s: %s", resp.Status, string(raw))
		}
		if snapshotOutPath == "" {
			return fmt.Errorf("--out is required")
		}
		f, err := os.Create(snapshotOutPath)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(f, resp.Body)
		return err
	},
}

var restoreInPath string

var systemRestoreCmd = &cobra.Command{
	Use:   "db-restore",
	Short: "Restore a database snapshot (pg_restore)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if restoreInPath == "" {
			return fmt.Errorf("--in is required")
		}
		f, err := os.Open(restoreInPath)
		if err != nil {
			return err
		}
		defer f.Close()

		req, err := http.NewRequest(http.MethodPost, addr+"/api/v1/system/database/restore", f)
		if err != nil {
			return err
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			raw, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("restore: %s: %s", resp.Status, string(raw))
		}
		fmt.Println("restored")
		return nil
	},
}

func init() {
	systemLogsCmd.Flags().StringVar(&logsOutPath, "out", "", "write logs to this path instead of stdout")
	systemSnapshotCmd.Flags().StringVar(&snapshotOutPath, "out", "", "write the dump to this path")
	systemRestoreCmd.Flags().StringVar(&restoreInPath, "in", "", "read the dump from this path")

	systemCmd.AddCommand(
		systemStartCmd,
		systemRestartCmd,
		systemStopCmd,
		systemLogsCmd,
		systemVFSCmd,
		systemSnapshotCmd,
		systemRestoreCmd,
	)
}
