package cli

import (
	"errors"

	"github.com/dmitrijs2005/gophgallery/internal/client/client"
	"github.com/dmitrijs2005/gophgallery/internal/client/resolver"
	"github.com/dmitrijs2005/gophgallery/internal/client/viewer"
	"github.com/dmitrijs2005/gophgallery/internal/common"
)

// usageError is returned when a command is called with malformed arguments.
type usageError string

func (u usageError) Error() string { return "usage: " + string(u) }

var errViewerClosed = errors.New("no item is open, use 'view <n>' first")

// describe turns an error into a notification line.
func describe(err error) string {
	var u usageError
	switch {
	case errors.As(err, &u):
		return u.Error()
	case errors.Is(err, common.ErrKeyRequired):
		return "this item is encrypted, run 'unlock' first"
	case errors.Is(err, common.ErrValidation):
		return err.Error()
	case errors.Is(err, client.ErrUnauthorized):
		return "not authorized: " + err.Error()
	case errors.Is(err, client.ErrNotFound):
		return "not found"
	case errors.Is(err, client.ErrUnavailable):
		return "storage is unavailable, try again later"
	case errors.Is(err, client.ErrNetwork):
		return "network error, check your connection"
	case errors.Is(err, resolver.ErrEmptyList):
		return "nothing to show"
	case errors.Is(err, viewer.ErrClosed):
		return errViewerClosed.Error()
	}
	return err.Error()
}
