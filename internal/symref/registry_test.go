package symref

import (
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handler func(n int) int

func double(n int) int { return n * 2 }
func triple(n int) int { return n * 3 }

func TestRegister_UsesRuntimeName(t *testing.T) {
	r := NewRegistry[handler]()
	name := r.Register(double)

	assert.True(t, strings.HasSuffix(name, "symref.double"), "unexpected name %q", name)

	ref, err := r.Reference(double)
	require.NoError(t, err)
	assert.Equal(t, name, ref)
}

func TestResolve_RoundTrip(t *testing.T) {
	r := NewRegistry[handler]()
	name := r.Register(triple)

	fn, err := r.Resolve(name)
	require.NoError(t, err)
	assert.Equal(t, 9, fn(3))
}

func TestResolve_Unknown(t *testing.T) {
	r := NewRegistry[handler]()
	_, err := r.Resolve("github.com/gone/pkg.missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnresolvableReference))
}

func TestReference_Unregistered(t *testing.T) {
	r := NewRegistry[handler]()
	r.Register(double)

	_, err := r.Reference(triple)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnresolvableReference))
}

func TestReference_Nil(t *testing.T) {
	r := NewRegistry[handler]()
	_, err := r.Reference(nil)
	assert.True(t, errors.Is(err, ErrUnresolvableReference))
}

func TestRegisterNamed(t *testing.T) {
	r := NewRegistry[handler]()
	r.RegisterNamed("legacy.tick", double)

	ref, err := r.Reference(double)
	require.NoError(t, err)
	assert.Equal(t, "legacy.tick", ref)

	fn, err := r.Resolve("legacy.tick")
	require.NoError(t, err)
	assert.Equal(t, 4, fn(2))
	assert.Equal(t, []string{"legacy.tick"}, r.Names())
}

func TestRegister_PanicsOnNil(t *testing.T) {
	r := NewRegistry[handler]()
	assert.Panics(t, func() { r.Register(nil) })
}
