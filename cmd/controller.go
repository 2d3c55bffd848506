package cmd

import (
	"github.com/deploymenttheory/go-ffsp/internal/dump"
	"github.com/deploymenttheory/go-ffsp/internal/navigator"
	"github.com/deploymenttheory/go-ffsp/internal/reload"
	"github.com/deploymenttheory/go-ffsp/pkg/app"
)

// newController wires a reload controller to the configured debug directory.
// The caller closes it.
func newController() (*reload.Controller, error) {
	debugDir := cfg.DebugDirPath()
	reader := dump.NewReader(debugDir)
	if !reader.Exists() {
		appCtx.Logger.WithField("debug_dir", debugDir).Warn("debug directory not found, is the file system mounted?")
	}

	ctrl, err := reload.New(reader, navigator.New(appCtx.Logger), reload.Options{
		Workers: cfg.ReloadWorkers,
		Log:     appCtx.Logger,
	})
	if err != nil {
		return nil, app.NewError(app.ErrCodeInvalidInput, "cannot start reload controller", err)
	}
	return ctrl, nil
}
