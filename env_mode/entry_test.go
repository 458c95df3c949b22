package env_mode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEnv(t *testing.T) {
	tests := map[string]ENV_MODE{
		"":            DevMode,
		"dev":         DevMode,
		" Production": ProMode,
		"prod":        ProMode,
		"pro":         ProMode,
		"testing":     TestMode,
		"staging":     DevMode,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseEnv(in), in)
	}
}

func TestSetMode(t *testing.T) {
	prev := Mode()
	defer SetMode(prev)

	SetMode(ProMode)
	assert.Equal(t, ProMode, Mode())
	SetMode(TestMode)
	assert.Equal(t, TestMode, Mode())
}

func TestAliases(t *testing.T) {
	assert.Equal(t, "production", Aliases(ProMode)[0])
	assert.Equal(t, []string{"test"}, Aliases(TestMode))
	assert.Contains(t, Aliases(DevMode), "dev")
}
