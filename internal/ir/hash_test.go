package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleHashDeterminism(t *testing.T) {
	h1, err := ModuleHash(helloModule(t))
	require.NoError(t, err)
	h2, err := ModuleHash(helloModule(t))
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestModuleHashChangesWithContent(t *testing.T) {
	a := helloModule(t)
	b := helloModule(t)

	var global *Node
	Walk(b, func(n *Node) bool {
		if n.Kind == KindGlobal {
			global = n
		}
		return true
	})
	require.NotNil(t, global)
	require.NoError(t, global.SetAttr("value", StringAttr("hellO\n")))

	assert.NotEqual(t, MustModuleHash(a), MustModuleHash(b))
}

func TestHashWithDomainNullSeparator(t *testing.T) {
	h := sha256.New()
	h.Write([]byte("d"))
	h.Write([]byte{0x00})
	h.Write([]byte("x"))
	want := hex.EncodeToString(h.Sum(nil))

	assert.Equal(t, want, hashWithDomain("d", []byte("x")))
}

func TestDomainSeparation(t *testing.T) {
	data := []byte("same bytes")
	assert.NotEqual(t, hashWithDomain(DomainModule, data), hashWithDomain(DomainSource, data))
	assert.Equal(t, hashWithDomain(DomainSource, data), SourceHash(data))
}

func TestDomainConstants(t *testing.T) {
	assert.Equal(t, "tinypy/module/v1", DomainModule)
	assert.Equal(t, "tinypy/source/v1", DomainSource)
}

func TestMustModuleHashPanics(t *testing.T) {
	assert.Panics(t, func() { MustModuleHash(nil) })
}
