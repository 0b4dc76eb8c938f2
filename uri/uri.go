// Package uri implements the RFC 3986 URI grammar by recursive descent.
//
// No normalization is performed beyond what the grammar itself requires:
// components are kept verbatim so that the serialized request-target matches
// what the caller wrote.
package uri

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var ErrInvalid = errors.New("invalid URI")

type URI struct {
	Scheme    string
	Authority *Authority
	Path      string
	Query     *string
	Fragment  *string
}

type Authority struct {
	UserInfo *string
	Host     Host
	Port     *uint16
}

type HostKind uint8

const (
	HostRegName HostKind = iota
	HostIPv4
	HostIPv6
)

// Host is either a registered name or an IP address literal.
// A dotted-quad shaped name is classified as IPv4 only when it has exactly
// three dots and all-numeric octets <= 255; anything else stays a reg-name
// (so "256.1.1.1" is a valid reg-name, not a rejected address).
type Host struct {
	Kind HostKind

	Name string // reg-name, verbatim
	V4   [4]byte
	V6   [8]uint16
}

func RegName(name string) Host { return Host{Kind: HostRegName, Name: name} }

func (h Host) String() string {
	switch h.Kind {
	case HostIPv4:
		b := new(strings.Builder)
		for i, octet := range h.V4 {
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(strconv.Itoa(int(octet)))
		}
		return b.String()
	case HostIPv6:
		b := new(strings.Builder)
		b.WriteByte('[')
		for i, group := range h.V6 {
			if i > 0 {
				b.WriteByte(':')
			}
			b.WriteString(strconv.FormatUint(uint64(group), 16))
		}
		b.WriteByte(']')
		return b.String()
	default:
		return h.Name
	}
}

// Parse parses input as an absolute URI. The entire input must be consumed;
// trailing bytes are an error.
func Parse(input string) (URI, error) {
	return (&parser{input: input}).parseURI()
}

// PathAndQuery reconstructs "path[?query]" for use as an HTTP request-target.
func (u *URI) PathAndQuery() string {
	if u.Query == nil {
		return u.Path
	}
	return u.Path + "?" + *u.Query
}

// ResolveRelative resolves a Location header value against this URI.
//
// Only two forms are supported: absolute http(s) locations pass through
// unchanged, and "/"-prefixed locations are rewritten against the current
// scheme/host/port (omitting the port when it is the scheme default).
// Full RFC 3986 relative-reference merging is deliberately not implemented.
func (u *URI) ResolveRelative(location string) (string, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return location, nil
	}

	if !strings.HasPrefix(location, "/") {
		return "", errors.Wrap(ErrInvalid, "location is neither absolute nor origin-relative")
	}

	if u.Authority == nil {
		return "", errors.Wrap(ErrInvalid, "base URI has no authority")
	}

	if u.Authority.Host.Kind != HostRegName {
		return "", errors.Wrap(ErrInvalid, "base URI host is not a registered name")
	}
	host := u.Authority.Host.Name

	port := schemeDefaultPort(u.Scheme)
	if u.Authority.Port != nil {
		port = *u.Authority.Port
	}

	if port == schemeDefaultPort(u.Scheme) {
		return u.Scheme + "://" + host + location, nil
	}
	return u.Scheme + "://" + host + ":" + strconv.FormatUint(uint64(port), 10) + location, nil
}

func schemeDefaultPort(scheme string) uint16 {
	if scheme == "https" {
		return 443
	}
	return 80
}

type parser struct {
	input string
	pos   int
}

func (p *parser) peek() (byte, bool) {
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

func (p *parser) peekAt(offset int) (byte, bool) {
	idx := p.pos + offset
	if idx >= len(p.input) {
		return 0, false
	}
	return p.input[idx], true
}

func (p *parser) advance() {
	if p.pos < len(p.input) {
		p.pos++
	}
}

func (p *parser) sliceFrom(start int) string { return p.input[start:p.pos] }

func (p *parser) parseURI() (URI, error) {
	scheme, err := p.parseScheme()
	if err != nil {
		return URI{}, errors.Wrap(err, "parsing scheme")
	}

	if c, ok := p.peek(); !ok || c != ':' {
		return URI{}, errors.Wrap(ErrInvalid, "missing ':' after scheme")
	}
	p.advance()

	authority, path, err := p.parseHierPart()
	if err != nil {
		return URI{}, errors.Wrap(err, "parsing hier-part")
	}

	uri := URI{Scheme: scheme, Authority: authority, Path: path}

	if c, ok := p.peek(); ok && c == '?' {
		p.advance()
		query, err := p.parseQuery()
		if err != nil {
			return URI{}, errors.Wrap(err, "parsing query")
		}
		uri.Query = &query
	}

	if c, ok := p.peek(); ok && c == '#' {
		p.advance()
		frag, err := p.parseFragment()
		if err != nil {
			return URI{}, errors.Wrap(err, "parsing fragment")
		}
		uri.Fragment = &frag
	}

	if p.pos != len(p.input) {
		return URI{}, errors.Wrap(ErrInvalid, "trailing bytes after URI")
	}

	return uri, nil
}

func (p *parser) parseScheme() (string, error) {
	start := p.pos

	c, ok := p.peek()
	if !ok || !isAlpha(c) {
		return "", errors.Wrap(ErrInvalid, "scheme must start with ALPHA")
	}
	p.advance()

	for {
		c, ok := p.peek()
		if !ok {
			break
		}
		if isAlpha(c) || isDigit(c) || c == '+' || c == '-' || c == '.' {
			p.advance()
			continue
		}
		break
	}

	return p.sliceFrom(start), nil
}

func (p *parser) parseHierPart() (*Authority, string, error) {
	c0, ok0 := p.peek()
	c1, ok1 := p.peekAt(1)

	switch {
	case ok0 && c0 == '/' && ok1 && c1 == '/':
		p.advance()
		p.advance()
		authority, err := p.parseAuthority()
		if err != nil {
			return nil, "", err
		}
		return &authority, p.parsePathAbempty(), nil

	case ok0 && c0 == '/':
		path, err := p.parsePathAbsolute()
		return nil, path, err

	case ok0 && c0 != '?' && c0 != '#':
		path, err := p.parsePathRootless()
		return nil, path, err

	default:
		return nil, "", nil
	}
}

func (p *parser) parseAuthority() (Authority, error) {
	var authority Authority

	if p.hasAheadInAuthority('@') {
		start := p.pos
		for {
			c, ok := p.peek()
			if !ok {
				break
			}
			if c == '@' {
				p.advance()
				break
			}
			if !isUserInfoChar(c) {
				return Authority{}, errors.Wrap(ErrInvalid, "invalid userinfo character")
			}
			p.advance()
		}
		userinfo := p.input[start : p.pos-1]
		authority.UserInfo = &userinfo
	}

	host, err := p.parseHost()
	if err != nil {
		return Authority{}, err
	}
	authority.Host = host

	if c, ok := p.peek(); ok && c == ':' {
		p.advance()
		port, err := p.parsePort()
		if err != nil {
			return Authority{}, err
		}
		authority.Port = &port
	}

	return authority, nil
}

// hasAheadInAuthority reports whether target appears before any of "/?#".
func (p *parser) hasAheadInAuthority(target byte) bool {
	for i := p.pos; i < len(p.input); i++ {
		switch p.input[i] {
		case '/', '?', '#':
			return false
		case target:
			return true
		}
	}
	return false
}

func (p *parser) parseHost() (Host, error) {
	if c, ok := p.peek(); ok && c == '[' {
		return p.parseIPLiteral()
	}

	start := p.pos
	dots := 0
	allDigits := true

scan:
	for {
		c, ok := p.peek()
		if !ok {
			break
		}
		switch {
		case c == ':' || c == '/' || c == '?' || c == '#':
			break scan
		case c == '.':
			dots++
			p.advance()
		case isDigit(c):
			p.advance()
		case isRegNameChar(c):
			allDigits = false
			p.advance()
		default:
			break scan
		}
	}

	raw := p.sliceFrom(start)

	if allDigits && dots == 3 {
		if v4, err := parseIPv4(raw); err == nil {
			return Host{Kind: HostIPv4, V4: v4}, nil
		}
	}

	return RegName(raw), nil
}

func (p *parser) parseIPLiteral() (Host, error) {
	p.advance() // consume '['

	start := p.pos
	for {
		c, ok := p.peek()
		if !ok {
			return Host{}, errors.Wrap(ErrInvalid, "IP literal missing ']'")
		}
		if c == ']' {
			break
		}
		p.advance()
	}

	raw := p.sliceFrom(start)
	p.advance() // consume ']'

	v6, err := parseIPv6(raw)
	if err != nil {
		return Host{}, err
	}

	return Host{Kind: HostIPv6, V6: v6}, nil
}

func (p *parser) parsePort() (uint16, error) {
	start := p.pos
	for {
		c, ok := p.peek()
		if !ok || !isDigit(c) {
			break
		}
		p.advance()
	}

	if start == p.pos {
		// An empty port after ':' is allowed by the grammar.
		return 0, nil
	}

	n, err := strconv.ParseUint(p.sliceFrom(start), 10, 16)
	if err != nil {
		return 0, errors.Wrap(ErrInvalid, "port out of range")
	}

	return uint16(n), nil
}

func (p *parser) parsePathAbempty() string {
	start := p.pos
	for {
		c, ok := p.peek()
		if !ok || c != '/' {
			break
		}
		p.advance()
		p.parseSegment()
	}
	return p.sliceFrom(start)
}

func (p *parser) parsePathAbsolute() (string, error) {
	start := p.pos
	p.advance() // consume '/'

	if c, ok := p.peek(); ok && c != '/' && c != '?' && c != '#' {
		if err := p.parseSegmentNZ(); err != nil {
			return "", err
		}
		for {
			c, ok := p.peek()
			if !ok || c != '/' {
				break
			}
			p.advance()
			p.parseSegment()
		}
	}

	return p.sliceFrom(start), nil
}

func (p *parser) parsePathRootless() (string, error) {
	start := p.pos
	if err := p.parseSegmentNZ(); err != nil {
		return "", err
	}
	for {
		c, ok := p.peek()
		if !ok || c != '/' {
			break
		}
		p.advance()
		p.parseSegment()
	}
	return p.sliceFrom(start), nil
}

func (p *parser) parseSegment() {
	for {
		c, ok := p.peek()
		if !ok || !isPChar(c) {
			return
		}
		p.advance()
	}
}

func (p *parser) parseSegmentNZ() error {
	start := p.pos
	p.parseSegment()
	if start == p.pos {
		return errors.Wrap(ErrInvalid, "empty path segment")
	}
	return nil
}

func (p *parser) parseQuery() (string, error) {
	start := p.pos
	for {
		c, ok := p.peek()
		if !ok || c == '#' {
			break
		}
		if !isPChar(c) && c != '/' && c != '?' {
			return "", errors.Wrap(ErrInvalid, "invalid query character")
		}
		p.advance()
	}
	return p.sliceFrom(start), nil
}

func (p *parser) parseFragment() (string, error) {
	start := p.pos
	for {
		c, ok := p.peek()
		if !ok {
			break
		}
		if !isPChar(c) && c != '/' && c != '?' {
			return "", errors.Wrap(ErrInvalid, "invalid fragment character")
		}
		p.advance()
	}
	return p.sliceFrom(start), nil
}

func isAlpha(c byte) bool { return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') }
func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func isUnreserved(c byte) bool {
	return isAlpha(c) || isDigit(c) || c == '-' || c == '.' || c == '_' || c == '~'
}

func isSubDelim(c byte) bool {
	switch c {
	case '!', '$', '&', '\'', '(', ')', '*', '+', ',', ';', '=':
		return true
	}
	return false
}

func isPChar(c byte) bool {
	return isUnreserved(c) || isSubDelim(c) || c == ':' || c == '@' || c == '%'
}

func isUserInfoChar(c byte) bool {
	return isUnreserved(c) || isSubDelim(c) || c == ':' || c == '%'
}

func isRegNameChar(c byte) bool {
	return isUnreserved(c) || isSubDelim(c) || c == '%'
}

func parseIPv4(s string) ([4]byte, error) {
	var octets [4]byte
	idx := 0
	current := 0
	hasDigits := false

	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case isDigit(c):
			current = current*10 + int(c-'0')
			hasDigits = true
			if current > 255 {
				return [4]byte{}, errors.Wrap(ErrInvalid, "IPv4 octet out of range")
			}
		case c == '.':
			if !hasDigits || idx >= 3 {
				return [4]byte{}, errors.Wrap(ErrInvalid, "malformed IPv4 address")
			}
			octets[idx] = byte(current)
			idx++
			current = 0
			hasDigits = false
		default:
			return [4]byte{}, errors.Wrap(ErrInvalid, "invalid IPv4 character")
		}
	}

	if !hasDigits || idx != 3 {
		return [4]byte{}, errors.Wrap(ErrInvalid, "malformed IPv4 address")
	}
	octets[3] = byte(current)

	return octets, nil
}

func parseIPv6(s string) ([8]uint16, error) {
	if len(s) == 0 {
		return [8]uint16{}, errors.Wrap(ErrInvalid, "empty IPv6 address")
	}

	var groups [8]uint16
	i, j := 0, 0
	doubleColonAt := -1

	if strings.HasPrefix(s, "::") {
		doubleColonAt = 0
		i = 2
	}

	for i < len(s) {
		if i+1 < len(s) && s[i] == ':' && s[i+1] == ':' {
			if doubleColonAt >= 0 {
				return [8]uint16{}, errors.Wrap(ErrInvalid, "multiple '::' in IPv6 address")
			}
			doubleColonAt = j
			i += 2
			continue
		}

		if s[i] == ':' {
			i++
			continue
		}

		start := i
		for i < len(s) && isHexDigit(s[i]) {
			i++
		}

		if start == i {
			break
		}
		if i-start > 4 {
			return [8]uint16{}, errors.Wrap(ErrInvalid, "IPv6 group too long")
		}

		value, err := strconv.ParseUint(s[start:i], 16, 16)
		if err != nil {
			return [8]uint16{}, errors.Wrap(ErrInvalid, "invalid IPv6 group")
		}

		if j >= 8 {
			return [8]uint16{}, errors.Wrap(ErrInvalid, "too many IPv6 groups")
		}
		groups[j] = uint16(value)
		j++
	}

	if doubleColonAt < 0 {
		if j != 8 {
			return [8]uint16{}, errors.Wrap(ErrInvalid, "too few IPv6 groups")
		}
		return groups, nil
	}

	// Shift the groups after "::" to the tail and zero-fill the gap.
	numAfter := j - doubleColonAt
	for k := numAfter - 1; k >= 0; k-- {
		src, dst := doubleColonAt+k, 8-numAfter+k
		if dst != src {
			groups[dst] = groups[src]
			groups[src] = 0
		}
	}
	for k := doubleColonAt; k < 8-numAfter; k++ {
		groups[k] = 0
	}

	return groups, nil
}
