// Package http exposes the dissector as a JSON inspection API.
//
// # Endpoints
//
//	POST /v1/classify                      raw payload -> {"kind": "request"}
//	POST /v1/dissect?as=auto|request|response
//	                                       raw payload -> capture record
//	POST /v1/serialize                     capture record -> wire bytes
//	POST /v1/segments?src_port=&dst_port=  raw payload -> 202 record, or 204
//	                                       when the ports are unbound or the
//	                                       payload is not HTTP
//	GET  /v1/captures?filter=&kind=&limit= stored records, newest first
//	GET  /health
//	GET  /metrics
//
// Malformed messages yield 422 and rate-limited requests 429, both with an
// ErrorResponse body. When API keys
// are configured, /v1 routes require "Authorization: Bearer <key>".
//
// # Middleware
//
// Outermost first: RequestIDMiddleware for the whole mux, then per route
// MetricsMiddleware (labelled by pattern), AuthMiddleware, the optional
// RateLimitMiddleware and a body size limit.
package http
