package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-ffsp/internal/types"
)

func TestClassifyKnownTypes(t *testing.T) {
	tests := []struct {
		code types.EraseblockType
		role Role
	}{
		{types.EbTypeSuper, RoleSuper},
		{types.EbTypeDentryInode, RoleDentryInode},
		{types.EbTypeDentryClin, RoleDentryClin},
		{types.EbTypeFileInode, RoleFileInode},
		{types.EbTypeFileClin, RoleFileClin},
		{types.EbTypeEbin, RoleEbin},
		{types.EbTypeEmpty, RoleEmpty},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			style, err := Classify(uint64(tt.code))
			require.NoError(t, err)
			assert.Equal(t, tt.role, style.Role)
			assert.NotEqual(t, style.Foreground, style.Background)
		})
	}
}

func TestClassifyPairsAreDistinct(t *testing.T) {
	seen := make(map[[2]string]Role)
	for _, code := range types.KnownEraseblockTypes {
		style, err := Classify(uint64(code))
		require.NoError(t, err)

		pair := [2]string{string(style.Foreground), string(style.Background)}
		if other, dup := seen[pair]; dup {
			t.Fatalf("roles %s and %s share colours %v", other, style.Role, pair)
		}
		seen[pair] = style.Role
	}
	assert.Len(t, seen, 7)
}

func TestClassifyUnknownType(t *testing.T) {
	for _, code := range []uint64{0x03, 0x40, 0xff, 0x100} {
		_, err := Classify(code)
		assert.ErrorIs(t, err, ErrUnknownEraseblockType, "code 0x%x", code)
	}
}
