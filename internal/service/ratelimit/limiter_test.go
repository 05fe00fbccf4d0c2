package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowBurstThenDeny(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("k", 3, 0.001), "burst request %d", i)
	}
	assert.False(t, l.Allow("k", 3, 0.001))
}

func TestKeysAreIndependent(t *testing.T) {
	l := New()
	assert.True(t, l.Allow("a", 1, 0.001))
	assert.False(t, l.Allow("a", 1, 0.001))
	assert.True(t, l.Allow("b", 1, 0.001))
}

func TestAllowNConsumesAtomically(t *testing.T) {
	l := New()
	assert.True(t, l.AllowN("k", 4, 5, 0.001))
	// one token left, a 2-token request must not partially drain it
	assert.False(t, l.AllowN("k", 2, 5, 0.001))
	assert.True(t, l.Allow("k", 5, 0.001))
}
