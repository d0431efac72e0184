package client

import (
	"context"
	"errors"

	"github.com/carryon-app/carryon/internal/api"
	"github.com/carryon-app/carryon/internal/i18n"
	"github.com/carryon-app/carryon/internal/logging"
)

// HandleError logs err with whatever context it carries and returns a plain
// error suitable for showing to a user: the original message, or the
// localized "unknown error" text when there is none. It returns nil for nil.
func HandleError(ctx context.Context, logger *logging.Logger, locale string, err error) error {
	if err == nil {
		return nil
	}

	if apiErr, ok := api.AsError(err); ok {
		logger.ErrorContext(ctx, "API error",
			logging.Reason(string(apiErr.Reason)),
			logging.Status(apiErr.Status),
			logging.URL(apiErr.URL),
			logging.Error(err),
		)
	} else {
		logger.ErrorContext(ctx, "Request error", logging.Error(err))
	}

	msg := err.Error()
	if msg == "" {
		msg = i18n.T(locale, i18n.UnknownError)
	}
	return errors.New(msg)
}
