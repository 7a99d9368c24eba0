package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sentinel-Gate/httpdissect/internal/domain/capture"
)

var buildCmd = &cobra.Command{
	Use:   "build [FILE]",
	Short: "Serialize a message document to wire bytes",
	Long: `Read a YAML or JSON message document from FILE or stdin and write the
serialized header block followed by the body to stdout. Headers are emitted
in schema order, then overflow lines in their recorded order.

Example:
  httpdissect dissect request.bin > request.yaml
  $EDITOR request.yaml
  httpdissect build request.yaml | nc example.com 80`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var name string
		if len(args) > 0 {
			name = args[0]
		}
		data, err := readInput(cmd, name)
		if err != nil {
			return err
		}
		doc, err := capture.ParseDocument(data)
		if err != nil {
			return err
		}
		rec, err := doc.Record()
		if err != nil {
			return err
		}
		wire, err := rec.Wire()
		if err != nil {
			return fmt.Errorf("build: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(wire)
		return err
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
}
