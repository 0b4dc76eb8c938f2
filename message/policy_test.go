package message

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"httpwire/wire"
)

type PolicyTestSuite struct {
	suite.Suite
}

func TestPolicyTestSuite(t *testing.T) {
	suite.Run(t, new(PolicyTestSuite))
}

func headersOf(pairs ...[2]string) Headers {
	var h Headers
	for _, p := range pairs {
		h.Add(p[0], p[1])
	}
	return h
}

func (s *PolicyTestSuite) TestBodyStrategy() {
	testcases := []struct {
		desc     string
		status   uint16
		headers  Headers
		expected Strategy
		wantErr  error
	}{
		{
			desc:     "content length",
			status:   200,
			headers:  headersOf([2]string{"Content-Length", "42"}),
			expected: Strategy{Kind: StrategyContentLength, Length: 42},
		},
		{
			desc:     "content length zero",
			status:   200,
			headers:  headersOf([2]string{"Content-Length", "0"}),
			expected: Strategy{Kind: StrategyContentLength, Length: 0},
		},
		{
			desc:     "chunked",
			status:   200,
			headers:  headersOf([2]string{"Transfer-Encoding", "chunked"}),
			expected: Strategy{Kind: StrategyChunked},
		},
		{
			desc:     "chunked final after other codings",
			status:   200,
			headers:  headersOf([2]string{"Transfer-Encoding", "gzip, chunked"}),
			expected: Strategy{Kind: StrategyChunked},
		},
		{
			desc:   "chunked across two header fields",
			status: 200,
			headers: headersOf(
				[2]string{"Transfer-Encoding", "gzip"},
				[2]string{"Transfer-Encoding", "chunked"},
			),
			expected: Strategy{Kind: StrategyChunked},
		},
		{
			desc:     "transfer encoding without chunked reads until close",
			status:   200,
			headers:  headersOf([2]string{"Transfer-Encoding", "gzip"}),
			expected: Strategy{Kind: StrategyUntilClose},
		},
		{
			desc:     "no framing headers means no body",
			status:   200,
			headers:  Headers{},
			expected: Strategy{Kind: StrategyNoBody},
		},
		{
			desc:     "204 has no body",
			status:   204,
			headers:  headersOf([2]string{"Content-Length", "42"}),
			expected: Strategy{Kind: StrategyNoBody},
		},
		{
			desc:     "304 has no body",
			status:   304,
			headers:  headersOf([2]string{"Content-Length", "42"}),
			expected: Strategy{Kind: StrategyNoBody},
		},
		{
			desc:     "1xx has no body",
			status:   101,
			headers:  Headers{},
			expected: Strategy{Kind: StrategyNoBody},
		},
		{
			desc:   "identical duplicate content lengths collapse",
			status: 200,
			headers: headersOf(
				[2]string{"Content-Length", "42"},
				[2]string{"Content-Length", "42"},
			),
			expected: Strategy{Kind: StrategyContentLength, Length: 42},
		},
		{
			desc:   "differing content lengths rejected",
			status: 200,
			headers: headersOf(
				[2]string{"Content-Length", "42"},
				[2]string{"Content-Length", "43"},
			),
			wantErr: wire.ErrInvalidContentLength,
		},
		{
			desc:    "non-numeric content length rejected",
			status:  200,
			headers: headersOf([2]string{"Content-Length", "4x2"}),
			wantErr: wire.ErrInvalidContentLength,
		},
		{
			desc:    "negative content length rejected",
			status:  200,
			headers: headersOf([2]string{"Content-Length", "-1"}),
			wantErr: wire.ErrInvalidContentLength,
		},
		{
			desc:    "empty content length rejected",
			status:  200,
			headers: headersOf([2]string{"Content-Length", ""}),
			wantErr: wire.ErrInvalidContentLength,
		},
		{
			desc:   "transfer encoding with content length rejected",
			status: 200,
			headers: headersOf(
				[2]string{"Transfer-Encoding", "chunked"},
				[2]string{"Content-Length", "42"},
			),
			wantErr: wire.ErrConflictingFraming,
		},
		{
			desc:    "chunked not final rejected",
			status:  200,
			headers: headersOf([2]string{"Transfer-Encoding", "chunked, gzip"}),
			wantErr: wire.ErrChunkedNotFinal,
		},
		{
			desc:    "transfer encoding on 204 rejected",
			status:  204,
			headers: headersOf([2]string{"Transfer-Encoding", "chunked"}),
			wantErr: wire.ErrTransferEncodingForbidden,
		},
		{
			desc:    "transfer encoding on 1xx rejected",
			status:  100,
			headers: headersOf([2]string{"Transfer-Encoding", "chunked"}),
			wantErr: wire.ErrTransferEncodingForbidden,
		},
	}
	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			strategy, err := BodyStrategy(tc.status, tc.headers)
			if tc.wantErr != nil {
				s.ErrorIs(err, tc.wantErr)
				return
			}
			s.Require().NoError(err)
			s.Equal(tc.expected, strategy)
		})
	}
}
