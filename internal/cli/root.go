// root.go - the uxn CLI's base command, grounded on bradford-hamilton's
// chippy (cmd/root.go): a cobra root that only prints usage, deferring
// real work to subcommands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const currentReleaseVersion = "v0.1.0"

var rootCmd = &cobra.Command{
	Use:   "uxn [command]",
	Short: "uxn is a Uxn bytecode VM with the Varvara peripheral set",
	Long:  "uxn runs Uxn ROMs (.rom files) against the Varvara device set: console, screen, audio, controller, mouse, file and datetime.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Unknown command. Try `uxn help` for more information")
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs uxn according to the user's command/subcommand/flags.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
