package cel

import (
	"path/filepath"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"

	"github.com/Sentinel-Gate/httpdissect/internal/domain/capture"
	"github.com/Sentinel-Gate/httpdissect/pkg/httpmsg"
)

// NewCaptureEnvironment creates the CEL environment for capture filters.
//
// Variables: kind, method, path, version, status_line, status_code, host,
// headers (canonical name to value, overflow included), overflow,
// body_size, src_port, dst_port, fingerprint.
// Functions: glob(pattern, value), header_matches(headers, name, pattern).
func NewCaptureEnvironment() (*cel.Env, error) {
	return cel.NewEnv(
		ext.Strings(),

		cel.Variable("kind", cel.StringType),
		cel.Variable("method", cel.StringType),
		cel.Variable("path", cel.StringType),
		cel.Variable("version", cel.StringType),
		cel.Variable("status_line", cel.StringType),
		cel.Variable("status_code", cel.IntType),
		cel.Variable("host", cel.StringType),
		cel.Variable("headers", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("overflow", cel.ListType(cel.StringType)),
		cel.Variable("body_size", cel.IntType),
		cel.Variable("src_port", cel.IntType),
		cel.Variable("dst_port", cel.IntType),
		cel.Variable("fingerprint", cel.StringType),

		cel.Function("glob",
			cel.Overload("glob_string_string",
				[]*cel.Type{cel.StringType, cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(func(pattern, value ref.Val) ref.Val {
					matched, _ := filepath.Match(pattern.Value().(string), value.Value().(string))
					return types.Bool(matched)
				}),
			),
		),

		// header_matches(headers, "User-Agent", "curl/*"); the name is
		// matched case-insensitively.
		cel.Function("header_matches",
			cel.Overload("header_matches_map_string_string",
				[]*cel.Type{cel.MapType(cel.StringType, cel.StringType), cel.StringType, cel.StringType},
				cel.BoolType,
				cel.FunctionBinding(func(args ...ref.Val) ref.Val {
					name := httpmsg.Canonicalize(args[1].Value().(string))
					pattern := args[2].Value().(string)
					value, ok := lookup(args[0], name)
					if !ok {
						return types.False
					}
					matched, _ := filepath.Match(pattern, value)
					return types.Bool(matched)
				}),
			),
		),
	)
}

func lookup(m ref.Val, key string) (string, bool) {
	switch hs := m.Value().(type) {
	case map[string]string:
		v, ok := hs[key]
		return v, ok
	case map[ref.Val]ref.Val:
		v, ok := hs[types.String(key)]
		if !ok {
			return "", false
		}
		s, ok := v.Value().(string)
		return s, ok
	}
	return "", false
}

// BuildActivation maps a record onto the environment's variables.
func BuildActivation(r capture.Record) map[string]any {
	overflow := r.Overflow
	if overflow == nil {
		overflow = []string{}
	}
	return map[string]any{
		"kind":        r.Kind.String(),
		"method":      r.Method,
		"path":        r.Path,
		"version":     r.Version,
		"status_line": r.StatusLine,
		"status_code": int64(r.StatusCode),
		"host":        r.Host(),
		"headers":     r.HeaderMap(),
		"overflow":    overflow,
		"body_size":   int64(len(r.Body)),
		"src_port":    int64(r.SrcPort),
		"dst_port":    int64(r.DstPort),
		"fingerprint": r.Fingerprint,
	}
}
