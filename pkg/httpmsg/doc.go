// Package httpmsg models HTTP/1.x messages captured from TCP streams.
//
// A raw buffer holding one message attempt is split into a start line, header
// lines and an opaque body, and the header lines are dissected into a fixed,
// ordered set of known slots plus an Overflow list that keeps every line the
// schema does not know about. Serializing the result reproduces the header
// block in schema order, so captured traffic can be edited and replayed.
//
// # Usage
//
//	kind := httpmsg.Classify(payload)
//	msg, body, err := httpmsg.DissectAs(kind, payload)
//	if err != nil {
//	    return err
//	}
//	wire := httpmsg.AppendWire(nil, msg, body)
//
// # Wire format
//
//	request line   METHOD SP PATH SP VERSION CRLF
//	status line    VERSION SP CODE SP REASON CRLF (kept opaque)
//	header line    Name: Value CRLF
//	end of headers CRLF
//
// # Limits
//
// The package does not decode chunked bodies, unfold obsolete line folding,
// or validate header grammar. Duplicate header names keep the last value only.
// All functions are pure; a Message must not be mutated while another
// goroutine serializes it.
package httpmsg
