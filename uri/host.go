package uri

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// AssertValidHostValue checks v against the Host header "uri-host [:port]"
// syntax, including bracketed IPv6 literals. An empty value is valid
// (RFC 9112 permits an empty Host when the target has no authority).
func AssertValidHostValue(v string) error {
	if v == "" {
		return nil
	}

	host, portPart := v, ""

	if strings.HasPrefix(v, "[") {
		idx := strings.LastIndex(v, "]")
		if idx < 0 {
			return errors.Wrap(ErrInvalid, "missing ']' in IP literal")
		}

		if _, err := parseIPv6(v[1:idx]); err != nil {
			return errors.Wrap(err, "invalid IPv6 literal")
		}

		host, portPart = "", v[idx+1:]
	} else if idx := strings.LastIndex(v, ":"); idx >= 0 {
		host, portPart = v[:idx], v[idx:]
	}

	for i := 0; i < len(host); i++ {
		if !isRegNameChar(host[i]) {
			return errors.Wrap(ErrInvalid, "invalid host character")
		}
	}

	if portPart == "" {
		return nil
	}

	portStr := portPart[1:] // strip ':'
	if portStr == "" {
		return errors.Wrap(ErrInvalid, "empty port")
	}

	n, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return errors.Wrap(ErrInvalid, "port is not a number in 0-65535")
	}
	if n == 0 {
		return errors.Wrap(ErrInvalid, "port must not be zero")
	}

	return nil
}

func IsValidHostValue(v string) bool { return AssertValidHostValue(v) == nil }
