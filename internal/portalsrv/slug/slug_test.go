package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Tráfego Pago", "trafego_pago"},
		{"Visão Geral", "visao_geral"},
		{"  CAC / LTV  ", "cac_ltv"},
		{"Conversão (%)", "conversao"},
		{"já_um_slug", "ja_um_slug"},
		{"123 abc", "123_abc"},
		{"---", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Make(tt.input), "input %q", tt.input)
	}
}

func TestMakeIsStable(t *testing.T) {
	first := Make("Tráfego Pago")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Make("Tráfego Pago"))
	}
}

func TestMakeOr(t *testing.T) {
	assert.Equal(t, "view_1", MakeOr("***", "view_1"))
	assert.Equal(t, "titulo", MakeOr("Título ", "view_1"))
}
