package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte("hunter2")
	WipeByteArray(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("expected buf[%d]==0, got %d", i, v)
		}
	}
}

func TestWipeByteArray_NilSafe(t *testing.T) {
	WipeByteArray(nil)
}

func TestBearerToken_RoundTrip(t *testing.T) {
	h := BearerToken("abc.def")
	assert.Equal(t, "Bearer abc.def", h)

	tok, ok := ParseBearer(h)
	assert.True(t, ok)
	assert.Equal(t, "abc.def", tok)
}

func TestParseBearer_Rejects(t *testing.T) {
	for _, h := range []string{"", "Bearer", "Bearer   ", "Basic abc", "abc"} {
		_, ok := ParseBearer(h)
		assert.False(t, ok, h)
	}

	tok, ok := ParseBearer("bearer xyz")
	assert.True(t, ok)
	assert.Equal(t, "xyz", tok)
}
