package inspect

import (
	"github.com/deploymenttheory/go-ffsp/pkg/app"
)

// maxWorkers bounds the eraseblock read pool
const maxWorkers = 256

// Validate validates an inspection request
func (r *Request) Validate() error {
	// Debug directory is required
	if r.DebugDir == "" {
		return app.NewError(app.ErrCodeInvalidInput, "debug directory is required", nil)
	}

	// Validate drill-down target
	if err := r.Target.Validate(); err != nil {
		return app.NewError(app.ErrCodeInvalidInput, "invalid target", err)
	}

	if r.Workers < 0 || r.Workers > maxWorkers {
		return app.NewError(app.ErrCodeInvalidInput, "workers must be between 0 and 256", nil)
	}

	return nil
}

// Validate validates a raw document request
func (r *RawRequest) Validate() error {
	if r.DebugDir == "" {
		return app.NewError(app.ErrCodeInvalidInput, "debug directory is required", nil)
	}
	if r.Document == "" {
		return app.NewError(app.ErrCodeInvalidInput, "document is required", nil)
	}
	return nil
}
