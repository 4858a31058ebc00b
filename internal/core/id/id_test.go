package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_IsTimeOrdered(t *testing.T) {
	a := New()
	b := New()

	assert.Equal(t, 7, int(a.Version()))
	assert.True(t, a.String() < b.String())
}

func TestOptionalHelpers(t *testing.T) {
	v := New()

	assert.True(t, IsSet(Ptr(v)))
	assert.False(t, IsSet(nil))
	assert.False(t, IsSet(Ptr(Nil())))
	assert.True(t, Equal(nil, Ptr(Nil())))
	assert.Equal(t, v, Deref(Ptr(v)))
}

func TestUnique(t *testing.T) {
	a, b := New(), New()

	assert.Equal(t, []ID{a, b}, Unique([]ID{a, b, a, b}))
}
