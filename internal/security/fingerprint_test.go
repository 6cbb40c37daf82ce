package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintProvider_Deterministic(t *testing.T) {
	provider := NewFingerprintProvider()

	first, err := provider.Identity()
	require.NoError(t, err)
	require.NotEmpty(t, first.Core)
	require.NotEmpty(t, first.Full)

	second, err := provider.Identity()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotEqual(t, first.Core, first.Full, "core and full must differ: full binds the network adapter")
}

func TestStaticProvider(t *testing.T) {
	want := HardwareIdentity{Core: "core-abc", Full: "full-abc"}
	got, err := StaticProvider{ID: want}.Identity()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFingerprintsEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical", "abc123", "abc123", true},
		{"case insensitive", "ABC123", "abc123", true},
		{"whitespace insensitive", "  abc123\n", "abc123", true},
		{"different", "abc123", "abc124", false},
		{"empty left", "", "abc123", false},
		{"empty both", "", "", false},
		{"whitespace only", "   ", "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FingerprintsEqual(tt.a, tt.b))
		})
	}
}
