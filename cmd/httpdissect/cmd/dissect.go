package cmd

import (
	"fmt"
	"io"
	"log/slog"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sentinel-Gate/httpdissect/internal/adapter/outbound/coding"
	"github.com/Sentinel-Gate/httpdissect/internal/domain/capture"
	"github.com/Sentinel-Gate/httpdissect/internal/service"
	"github.com/Sentinel-Gate/httpdissect/pkg/httpmsg"
)

var (
	dissectAs         string
	dissectFormat     string
	dissectDecodeBody bool
)

var dissectCmd = &cobra.Command{
	Use:   "dissect [FILE]",
	Short: "Dissect a payload into a message document",
	Long: `Dissect a raw HTTP/1.x payload read from FILE or stdin and print it as a
YAML or JSON message document. The document can be edited and turned back
into wire bytes with "httpdissect build".

Examples:
  printf 'HTTP/1.1 200 OK\r\nServer: x\r\n\r\nhi' | httpdissect dissect
  httpdissect dissect --as request --format json request.bin
  httpdissect dissect --decode-body response.bin`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDissect,
}

func init() {
	dissectCmd.Flags().StringVar(&dissectAs, "as", "auto", "message kind: auto, request or response")
	dissectCmd.Flags().StringVar(&dissectFormat, "format", "yaml", "output format: yaml or json")
	dissectCmd.Flags().BoolVar(&dissectDecodeBody, "decode-body", false, "undo Content-Encoding in the printed body")
	rootCmd.AddCommand(dissectCmd)
}

func runDissect(cmd *cobra.Command, args []string) error {
	kind, ok := httpmsg.ParseKind(dissectAs)
	if !ok {
		return fmt.Errorf("--as must be auto, request or response, got %q", dissectAs)
	}
	if dissectFormat != "yaml" && dissectFormat != "json" {
		return fmt.Errorf("--format must be yaml or json, got %q", dissectFormat)
	}

	var name string
	if len(args) > 0 {
		name = args[0]
	}
	payload, err := readInput(cmd, name)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	svc := service.NewDissectService(logger, service.WithBodyDecoder(coding.NewDecoder(0)))

	rec, err := svc.Dissect(cmd.Context(), payload, kind)
	if err != nil {
		return fmt.Errorf("dissect: %w", err)
	}
	doc := capture.NewDocument(*rec)
	if dissectDecodeBody {
		doc.SetBody(svc.DecodedBody(*rec))
	}
	return writeDocument(cmd.OutOrStdout(), dissectFormat, doc)
}

// writeDocument prints v, a Document or a slice of them, as YAML or indented JSON.
func writeDocument(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
}
