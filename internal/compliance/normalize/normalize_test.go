package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Jogue com Responsabilidade", "jogue com responsabilidade"},
		{"  PROIBIDO   para\tmenores\n de 18 anos ", "proibido para menores de 18 anos"},
		{"Bônus de Boas-Vindas", "bonus de boas-vindas"},
		{"AÇÃO", "acao"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}

func TestText_Idempotent(t *testing.T) {
	inputs := []string{
		"Jogue com responsabilidade",
		"Crédito   GRÁTIS!!",
		"İstanbul ÅNGSTRÖM",
		"   espaço largo ",
		"é",
	}
	for _, in := range inputs {
		once := Text(in)
		assert.Equal(t, once, Text(once), "input %q", in)
	}
}

func TestAll(t *testing.T) {
	assert.Equal(t, []string{"a b", "ceu"}, All([]string{" A  B", "Céu"}))
}
