package soymsg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fixedBundle struct{ locale string }

func (b fixedBundle) Locale() string             { return b.locale }
func (b fixedBundle) Message(id uint64) *Message { return &Message{ID: id} }
func (b fixedBundle) PluralCase(n int) int       { return int(PluralSpecOther) }

func TestMapProvider_CanonicalizesLocale(t *testing.T) {
	var p = NewMapProvider(map[string]Bundle{
		"en-US": fixedBundle{locale: "en-US"},
	})

	assert.Equal(t, "en-US", p.Bundle("en_US").Locale())
	assert.Equal(t, "en-US", p.Bundle("EN-us").Locale())
}

func TestMapProvider_UnknownLocaleFallsBackEmpty(t *testing.T) {
	var p = NewMapProvider(map[string]Bundle{
		"en-US": fixedBundle{locale: "en-US"},
	})

	var b = p.Bundle("fr-FR")
	assert.Nil(t, b.Message(1))
	assert.Equal(t, int(PluralSpecOther), b.PluralCase(5))
}
