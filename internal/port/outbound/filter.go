// Package outbound defines the outbound port interfaces used by services.
package outbound

import "github.com/Sentinel-Gate/httpdissect/internal/domain/capture"

// FilterCompiler turns a filter expression into a record predicate.
// Adapters implement this for a concrete expression language.
type FilterCompiler interface {
	// Compile validates expr and returns a predicate. Evaluation errors
	// make the predicate return false.
	Compile(expr string) (func(capture.Record) bool, error)
}

// BodyDecoder undoes a Content-Encoding for display.
type BodyDecoder interface {
	// Decode returns body decoded according to encoding. Unsupported
	// encodings return the body unchanged and ok=false.
	Decode(encoding string, body []byte) (decoded []byte, ok bool, err error)
}
