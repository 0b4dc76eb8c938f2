package message

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"httpwire/wire"
)

func TestHeaders(t *testing.T) {
	h := NewHeaders(
		wire.Field{Name: "Host", Value: "example.com"},
		wire.Field{Name: "Accept", Value: "text/html"},
		wire.Field{Name: "accept", Value: "text/plain"},
	)

	v, ok := h.Get("HOST")
	assert.True(t, ok)
	assert.Equal(t, "example.com", v)

	_, ok = h.Get("Missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"text/html", "text/plain"}, h.GetAll("Accept"))
	assert.Equal(t, 2, h.Count("ACCEPT"))
	assert.True(t, h.Has("accept"))
	assert.Equal(t, 3, h.Len())

	h.Add("X-Extra", "1")
	assert.Equal(t, 4, h.Len())

	h.Del("Accept")
	assert.False(t, h.Has("accept"))
	assert.Equal(t, 2, h.Len())

	// wire order survives mutation
	fields := h.Fields()
	assert.Equal(t, []wire.Field{
		{Name: "Host", Value: "example.com"},
		{Name: "X-Extra", Value: "1"},
	}, fields)
}

func TestClassOf(t *testing.T) {
	assert.Equal(t, StatusClassInformational, ClassOf(100))
	assert.Equal(t, StatusClassSuccessful, ClassOf(204))
	assert.Equal(t, StatusClassRedirection, ClassOf(301))
	assert.Equal(t, StatusClassClientError, ClassOf(404))
	assert.Equal(t, StatusClassServerError, ClassOf(599))
	assert.Equal(t, StatusClassInvalid, ClassOf(600))
	assert.Equal(t, StatusClassInvalid, ClassOf(99))
}

func TestReasonPhrase(t *testing.T) {
	assert.Equal(t, "OK", ReasonPhrase(200))
	assert.Equal(t, "Not Found", ReasonPhrase(404))
	assert.Equal(t, "", ReasonPhrase(299))
}
