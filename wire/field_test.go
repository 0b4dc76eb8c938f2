package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/suite"
)

type FieldTestSuite struct {
	suite.Suite
}

func TestFieldTestSuite(t *testing.T) {
	suite.Run(t, new(FieldTestSuite))
}

func (s *FieldTestSuite) TestParseFields() {
	testcases := []struct {
		desc     string
		input    string
		expected []Field
		rest     string
		wantErr  error
	}{
		{
			desc:     "single field",
			input:    "Host: example.com\r\n\r\nbody",
			expected: []Field{{Name: "Host", Value: "example.com"}},
			rest:     "body",
		},
		{
			desc:  "multiple fields keep wire order",
			input: "Host: a\r\nAccept: */*\r\nHost: b\r\n\r\n",
			expected: []Field{
				{Name: "Host", Value: "a"},
				{Name: "Accept", Value: "*/*"},
				{Name: "Host", Value: "b"},
			},
		},
		{
			desc:     "no fields at all",
			input:    "\r\nbody",
			expected: []Field{},
			rest:     "body",
		},
		{
			desc:     "OWS around value is trimmed",
			input:    "X:  \t padded \t \r\n\r\n",
			expected: []Field{{Name: "X", Value: "padded"}},
		},
		{
			desc:     "empty value",
			input:    "X-Empty:\r\n\r\n",
			expected: []Field{{Name: "X-Empty", Value: ""}},
		},
		{
			desc:     "name case preserved",
			input:    "conTent-TYPE: text/plain\r\n\r\n",
			expected: []Field{{Name: "conTent-TYPE", Value: "text/plain"}},
		},
		{
			desc:     "obs-fold joins continuation with single SP",
			input:    "X-Long: first\r\n \t second\r\n\r\n",
			expected: []Field{{Name: "X-Long", Value: "first second"}},
		},
		{
			desc:  "obs-fold then another field",
			input: "A: one\r\n  two\r\nB: three\r\n\r\n",
			expected: []Field{
				{Name: "A", Value: "one two"},
				{Name: "B", Value: "three"},
			},
		},
		{
			desc:     "lone LF line terminators",
			input:    "Host: example.com\n\n",
			expected: []Field{{Name: "Host", Value: "example.com"}},
		},
		{
			desc:    "whitespace before first field",
			input:   " X: smuggled\r\n\r\n",
			wantErr: ErrInvalidWhitespace,
		},
		{
			desc:    "missing colon",
			input:   "NoColonHere\r\n\r\n",
			wantErr: ErrInvalidHeaderName,
		},
		{
			desc:    "empty field name",
			input:   ": value\r\n\r\n",
			wantErr: ErrInvalidHeaderName,
		},
		{
			desc:    "space inside field name",
			input:   "Bad Name: value\r\n\r\n",
			wantErr: ErrInvalidHeaderName,
		},
		{
			desc:    "bare CR in value",
			input:   "X: bad\rvalue\r\n\r\n",
			wantErr: ErrBareCR,
		},
		{
			desc:    "section never terminated",
			input:   "Host: example.com\r\n",
			wantErr: ErrUnexpectedEOF,
		},
	}
	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			fields, rest, err := ParseFields([]byte(tc.input))
			if tc.wantErr != nil {
				s.ErrorIs(err, tc.wantErr)
				return
			}

			s.Require().NoError(err)
			s.Equal(tc.expected, fields)
			s.Equal(tc.rest, string(rest))
		})
	}
}

// Parsed fields serialized back to wire form and parsed again must come out
// identical, order included.
func (s *FieldTestSuite) TestSerializeReparseRoundTrip() {
	input := "Server: demo\r\nSet-Cookie: a=1\r\nContent-Type: text/html\r\nSet-Cookie: b=2\r\n\r\n"

	fields, _, err := ParseFields([]byte(input))
	s.Require().NoError(err)

	var buf bytes.Buffer
	for _, f := range fields {
		buf.WriteString(f.Name)
		buf.WriteString(": ")
		buf.WriteString(f.Value)
		buf.WriteString("\r\n")
	}
	buf.WriteString("\r\n")

	again, _, err := ParseFields(buf.Bytes())
	s.Require().NoError(err)
	s.Equal(fields, again)
}
