package engine

import (
	"math/rand/v2"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "plain", in: "Concierto de jazz", want: "Concierto de jazz"},
		{name: "control noise", in: "Concierto\x00\x01 de  jazz", want: "Concierto de jazz"},
		{name: "emoji", in: "🎷 Jazz 🎺🎺 night", want: "Jazz night"},
		{name: "spanish letters kept", in: "Calle Uría 3, Gijón ¿Sí? ¡Ñu!", want: "Calle Uría 3, Gijón ¿Sí? ¡Ñu!"},
		{name: "other accents dropped", in: "Crème brûlée", want: "Cr me br lée"},
		{name: "tabs and newlines collapse", in: "  ¡Hola!\n\tqué tal?  ", want: "¡Hola! qué tal?"},
		{name: "non latin script", in: "日本語", want: ""},
		{name: "invalid utf8", in: "a\xffb", want: "a b"},
		{name: "quotes and slashes", in: `"Sala 2" / 'B-1'`, want: `"Sala 2" / 'B-1'`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestSanitizeAllowListProperty(t *testing.T) {
	alphabet := []rune("aZ09 \t\n\r\x00\x07 áéíóúÁÉÍÓÚñÑüÜàçøß¿?¡!.,:;()/-\"'€😀日")
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 2000; i++ {
		n := rng.IntN(40)
		var b strings.Builder
		for j := 0; j < n; j++ {
			b.WriteRune(alphabet[rng.IntN(len(alphabet))])
		}
		in := b.String()
		out := Sanitize(in)

		assert.True(t, utf8.ValidString(out))
		for _, r := range out {
			assert.True(t, allowed(r), "rune %q from %q", r, in)
		}
		assert.NotContains(t, out, "  ")
		assert.NotContains(t, out, "\n")
		assert.Equal(t, strings.TrimSpace(out), out)
		assert.Equal(t, out, Sanitize(out), "sanitize must be idempotent")
	}
}
