package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sentinel-Gate/httpdissect/pkg/httpmsg"
)

var classifyCmd = &cobra.Command{
	Use:   "classify FILE...",
	Short: "Report whether payloads are requests or responses",
	Long: `Classify each payload by its first line and print "FILE<TAB>KIND", where
KIND is request, response or unknown. Use "-" to read stdin.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range args {
			payload, err := readInput(cmd, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, httpmsg.Classify(payload))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}
