package httpmsg

// Field identifies a recognised header slot.
type Field uint8

// Header slots known to at least one schema. The declaration order is not
// the serialization order; each Schema carries its own ordered list.
const (
	fieldInvalid Field = iota

	Host
	UserAgent
	Accept
	AcceptLanguage
	AcceptEncoding
	AcceptCharset
	Referer
	Authorization
	Expect
	From
	IfMatch
	IfModifiedSince
	IfNoneMatch
	IfRange
	IfUnmodifiedSince
	MaxForwards
	ProxyAuthorization
	Range
	TE
	CacheControl
	Connection
	Date
	Pragma
	Trailer
	TransferEncoding
	Upgrade
	Via
	Warning
	KeepAlive
	Allow
	ContentEncoding
	ContentLanguage
	ContentLength
	ContentLocation
	ContentMD5
	ContentRange
	ContentType
	Expires
	LastModified
	Cookie
	AcceptRanges
	Age
	ETag
	Location
	ProxyAuthenticate
	RetryAfter
	Server
	Vary
	WWWAuthenticate

	numFields
)

var fieldNames = [numFields]string{
	Host:               "Host",
	UserAgent:          "User-Agent",
	Accept:             "Accept",
	AcceptLanguage:     "Accept-Language",
	AcceptEncoding:     "Accept-Encoding",
	AcceptCharset:      "Accept-Charset",
	Referer:            "Referer",
	Authorization:      "Authorization",
	Expect:             "Expect",
	From:               "From",
	IfMatch:            "If-Match",
	IfModifiedSince:    "If-Modified-Since",
	IfNoneMatch:        "If-None-Match",
	IfRange:            "If-Range",
	IfUnmodifiedSince:  "If-Unmodified-Since",
	MaxForwards:        "Max-Forwards",
	ProxyAuthorization: "Proxy-Authorization",
	Range:              "Range",
	TE:                 "TE",
	CacheControl:       "Cache-Control",
	Connection:         "Connection",
	Date:               "Date",
	Pragma:             "Pragma",
	Trailer:            "Trailer",
	TransferEncoding:   "Transfer-Encoding",
	Upgrade:            "Upgrade",
	Via:                "Via",
	Warning:            "Warning",
	KeepAlive:          "Keep-Alive",
	Allow:              "Allow",
	ContentEncoding:    "Content-Encoding",
	ContentLanguage:    "Content-Language",
	ContentLength:      "Content-Length",
	ContentLocation:    "Content-Location",
	ContentMD5:         "Content-MD5",
	ContentRange:       "Content-Range",
	ContentType:        "Content-Type",
	Expires:            "Expires",
	LastModified:       "Last-Modified",
	Cookie:             "Cookie",
	AcceptRanges:       "Accept-Ranges",
	Age:                "Age",
	ETag:               "E-Tag",
	Location:           "Location",
	ProxyAuthenticate:  "Proxy-Authenticate",
	RetryAfter:         "Retry-After",
	Server:             "Server",
	Vary:               "Vary",
	WWWAuthenticate:    "WWW-Authenticate",
}

// String returns the display name used when serializing the slot.
func (f Field) String() string {
	if f == fieldInvalid || f >= numFields {
		return "Invalid-Field"
	}
	return fieldNames[f]
}

// Canonical returns the lowercase name the slot matches against.
func (f Field) Canonical() string {
	return Canonicalize(f.String())
}

// generalFields are shared by both schemas, in serialization order.
var generalFields = []Field{
	CacheControl, Connection, Date, Pragma, Trailer, TransferEncoding,
	Upgrade, Via, Warning, KeepAlive, Allow, ContentEncoding,
	ContentLanguage, ContentLength, ContentLocation, ContentMD5,
	ContentRange, ContentType, Expires, LastModified,
}

// Schema is the ordered list of header slots of one message variant.
type Schema struct {
	kind   Kind
	start  []string
	fields []Field
	index  map[string]Field
}

func newSchema(kind Kind, start []string, fields ...[]Field) *Schema {
	s := &Schema{kind: kind, start: start, index: make(map[string]Field)}
	for _, group := range fields {
		s.fields = append(s.fields, group...)
	}
	for _, f := range s.fields {
		s.index[f.Canonical()] = f
	}
	return s
}

// RequestSchema lists the 40 request header slots.
var RequestSchema = newSchema(KindRequest,
	[]string{"Method", "Path", "Http-Version"},
	[]Field{
		Host, UserAgent, Accept, AcceptLanguage, AcceptEncoding, AcceptCharset,
		Referer, Authorization, Expect, From, IfMatch, IfModifiedSince,
		IfNoneMatch, IfRange, IfUnmodifiedSince, MaxForwards,
		ProxyAuthorization, Range, TE,
	},
	generalFields,
	[]Field{Cookie},
)

// ResponseSchema lists the 29 response header slots.
var ResponseSchema = newSchema(KindResponse,
	[]string{"Status-Line"},
	[]Field{
		AcceptRanges, Age, ETag, Location, ProxyAuthenticate, RetryAfter,
		Server, Vary, WWWAuthenticate,
	},
	generalFields,
)

// Kind returns the variant the schema describes.
func (s *Schema) Kind() Kind { return s.kind }

// StartFields returns the names of the start-line fields, in order.
func (s *Schema) StartFields() []string {
	out := make([]string, len(s.start))
	copy(out, s.start)
	return out
}

// Fields returns the header slots in serialization order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Lookup returns the slot for a header name, canonicalizing it first.
func (s *Schema) Lookup(name string) (Field, bool) {
	f, ok := s.index[Canonicalize(name)]
	return f, ok
}

// Contains reports whether f is one of the schema's slots.
func (s *Schema) Contains(f Field) bool {
	if f == fieldInvalid || f >= numFields {
		return false
	}
	_, ok := s.index[f.Canonical()]
	return ok
}

// SchemaFor returns the schema of a kind, or nil for KindUnknown.
func SchemaFor(k Kind) *Schema {
	switch k {
	case KindRequest:
		return RequestSchema
	case KindResponse:
		return ResponseSchema
	default:
		return nil
	}
}
