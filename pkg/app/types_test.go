package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-ffsp/internal/classify"
	"github.com/deploymenttheory/go-ffsp/internal/dump"
	"github.com/deploymenttheory/go-ffsp/internal/navigator"
	"github.com/deploymenttheory/go-ffsp/internal/runner"
)

func TestTargetValidate(t *testing.T) {
	tests := []struct {
		name    string
		target  Target
		wantErr bool
		str     string
	}{
		{"empty", Target{}, false, "Superblock"},
		{"eraseblock", Target{Eraseblock: 3, HasEraseblock: true}, false, "Eraseblock 3"},
		{"cluster", Target{Eraseblock: 3, HasEraseblock: true, Cluster: 9, HasCluster: true}, false, "Eraseblock 3 / Cluster 9"},
		{"cluster without eraseblock", Target{Cluster: 9, HasCluster: true}, true, "Eraseblock 0 / Cluster 9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.target.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.str, tt.target.String())
		})
	}
}

func TestFromCore(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"access denied", fmt.Errorf("super: %w", dump.ErrAccessDenied), ErrCodePermission},
		{"not found", fmt.Errorf("super: %w", dump.ErrNotFound), ErrCodeNotMounted},
		{"malformed", fmt.Errorf("super: %w", dump.ErrMalformed), ErrCodeDebugDirAccess},
		{"invalid selection", fmt.Errorf("%w: eraseblock 9", navigator.ErrInvalidSelection), ErrCodeInvalidSelection},
		{"unknown type", fmt.Errorf("%w: 0x40", classify.ErrUnknownEraseblockType), ErrCodeUnknownType},
		{"precondition", fmt.Errorf("%w: mounted", runner.ErrPrecondition), ErrCodeInvalidInput},
		{"command failed", fmt.Errorf("%w: exit 1", runner.ErrCommandFailed), ErrCodeCommandFailed},
		{"timeout", context.DeadlineExceeded, ErrCodeTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromCore("loading", tt.err)
			var ce *CommonError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.code, ce.Code)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, FromCore("loading", nil))

	orig := NewError(ErrCodeInvalidInput, "bad", nil)
	assert.Same(t, orig, FromCore("loading", orig))
}

func TestApplyVerbosity(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		quiet   bool
		level   string
		want    logrus.Level
	}{
		{"default", false, false, "", logrus.InfoLevel},
		{"verbose", true, false, "", logrus.DebugLevel},
		{"quiet", false, true, "", logrus.ErrorLevel},
		{"explicit level wins", true, false, "warn", logrus.WarnLevel},
		{"unknown level falls back", false, true, "loud", logrus.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := NewContext()
			ctx.Verbose = tt.verbose
			ctx.Quiet = tt.quiet
			ctx.ApplyVerbosity(tt.level)
			assert.Equal(t, tt.want, ctx.Logger.GetLevel())
		})
	}
}
