package cmd

import (
	"errors"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/Sentinel-Gate/httpdissect/internal/adapter/outbound/cel"
	"github.com/Sentinel-Gate/httpdissect/internal/config"
	"github.com/Sentinel-Gate/httpdissect/internal/domain/capture"
	"github.com/Sentinel-Gate/httpdissect/internal/service"
	"github.com/Sentinel-Gate/httpdissect/pkg/httpmsg"
)

var (
	queryFilter string
	queryKind   string
	queryLimit  int
	queryFormat string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "List stored captures",
	Long: `List captures from the configured sqlite or file store, newest first.

Filters are CEL expressions over the record: kind, method, path, version,
status_line, status_code, host, headers, overflow, body_size, src_port,
dst_port and fingerprint. glob(pattern, value) and
header_matches(headers, name, pattern) are available.

Examples:
  httpdissect query --filter 'method == "POST" && glob("/api/*", path)'
  httpdissect query --kind response --filter 'status_code >= 500' --format yaml`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryFilter, "filter", "", "CEL filter expression")
	queryCmd.Flags().StringVar(&queryKind, "kind", "", "request or response")
	queryCmd.Flags().IntVar(&queryLimit, "limit", capture.DefaultLimit, "maximum number of records")
	queryCmd.Flags().StringVar(&queryFormat, "format", "json", "output format: json (one record per line) or yaml")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	kind, ok := httpmsg.ParseKind(queryKind)
	if !ok {
		return fmt.Errorf("--kind must be request or response, got %q", queryKind)
	}
	if queryFormat != "json" && queryFormat != "yaml" {
		return fmt.Errorf("--format must be json or yaml, got %q", queryFormat)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.Store.Driver == "memory" {
		return errors.New("store.driver is memory; query needs a sqlite or file store")
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())

	store, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	filters, err := cel.NewEvaluator(logger)
	if err != nil {
		return err
	}
	svc := service.NewDissectService(logger, service.WithStore(store), service.WithFilterCompiler(filters))

	recs, err := svc.Query(cmd.Context(), queryFilter, kind, queryLimit)
	if err != nil {
		return err
	}
	return writeRecords(cmd.OutOrStdout(), queryFormat, recs)
}

func writeRecords(w io.Writer, format string, recs []capture.Record) error {
	if format == "yaml" {
		docs := make([]capture.Document, 0, len(recs))
		for _, r := range recs {
			docs = append(docs, capture.NewDocument(r))
		}
		return writeDocument(w, format, docs)
	}
	enc := json.NewEncoder(w)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
