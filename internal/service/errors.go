package service

import (
	"github.com/noah-isme/topfive-api/internal/repository"
	appErrors "github.com/noah-isme/topfive-api/pkg/errors"
)

// storageError maps a repository failure to the transport taxonomy. Timeouts
// and lost connections become ErrTransientStorage so callers know a retry is safe.
func storageError(err error, message string) error {
	if repository.IsTransient(err) {
		return appErrors.Wrap(err, appErrors.ErrTransientStorage.Code, appErrors.ErrTransientStorage.Status, appErrors.ErrTransientStorage.Message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
