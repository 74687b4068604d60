package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Kind
		wantErr  bool
	}{
		{name: "plural", input: "characters", expected: KindCharacter},
		{name: "singular", input: "character", expected: KindCharacter},
		{name: "mixed case", input: "Maps", expected: KindMap},
		{name: "surrounding spaces", input: "  lore ", expected: KindLore},
		{name: "power system underscore", input: "power_system", expected: KindPowerSystem},
		{name: "power system collection path", input: "powersystems", expected: KindPowerSystem},
		{name: "unknown", input: "weapons", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := ParseKind(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, k)
		})
	}
}

func TestKind_Labels(t *testing.T) {
	assert.Equal(t, "power systems", KindPowerSystem.Plural())
	assert.Equal(t, "power system", KindPowerSystem.Singular())
	assert.Equal(t, "characters", KindCharacter.Plural())
	assert.Equal(t, "character", KindCharacter.Singular())
	assert.Equal(t, "lore", KindLore.Singular())
	assert.Equal(t, "powersystems", KindPowerSystem.Path())
}

func TestKind_IsValid(t *testing.T) {
	for _, k := range AllKinds {
		assert.True(t, k.IsValid(), "kind %s", k)
	}
	assert.False(t, Kind("weapons").IsValid())
}
