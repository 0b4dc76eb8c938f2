package message

// StatusClass is the first digit of a status code.
type StatusClass uint8

const (
	StatusClassInvalid StatusClass = iota
	StatusClassInformational
	StatusClassSuccessful
	StatusClassRedirection
	StatusClassClientError
	StatusClassServerError
)

func ClassOf(code uint16) StatusClass {
	switch {
	case code >= 100 && code <= 199:
		return StatusClassInformational
	case code >= 200 && code <= 299:
		return StatusClassSuccessful
	case code >= 300 && code <= 399:
		return StatusClassRedirection
	case code >= 400 && code <= 499:
		return StatusClassClientError
	case code >= 500 && code <= 599:
		return StatusClassServerError
	default:
		return StatusClassInvalid
	}
}

var reasonPhrases = map[uint16]string{
	100: "Continue",
	101: "Switching Protocols",
	200: "OK",
	201: "Created",
	202: "Accepted",
	203: "Non-Authoritative Information",
	204: "No Content",
	205: "Reset Content",
	206: "Partial Content",
	300: "Multiple Choices",
	301: "Moved Permanently",
	302: "Found",
	303: "See Other",
	304: "Not Modified",
	307: "Temporary Redirect",
	308: "Permanent Redirect",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	406: "Not Acceptable",
	408: "Request Timeout",
	409: "Conflict",
	410: "Gone",
	411: "Length Required",
	412: "Precondition Failed",
	413: "Content Too Large",
	414: "URI Too Long",
	415: "Unsupported Media Type",
	416: "Range Not Satisfiable",
	417: "Expectation Failed",
	421: "Misdirected Request",
	422: "Unprocessable Content",
	426: "Upgrade Required",
	428: "Precondition Required",
	429: "Too Many Requests",
	431: "Request Header Fields Too Large",
	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
	505: "HTTP Version Not Supported",
}

// ReasonPhrase returns the conventional reason phrase for code, or "" when
// none is registered.
func ReasonPhrase(code uint16) string {
	return reasonPhrases[code]
}
