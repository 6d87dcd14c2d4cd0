// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package postgres

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"seedfast/docshell/internal/backend"
	"seedfast/docshell/internal/errors"
)

// classify maps pg error classes onto error kinds. Deadline errors are left
// as they are so the caller reports Timeout.
func classify(ctx context.Context, err error) error {
	if err == nil || ctx.Err() != nil {
		return err
	}
	if _, ok := errors.As(err); ok {
		return err
	}

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		class := pgErr.Code
		if len(class) > 2 {
			class = class[:2]
		}
		switch {
		case class == "28":
			return errors.Wrap(errors.ConnectionFailed, backend.ErrAuthFailed.Reason, err)
		case class == "3D", class == "42", class == "22", class == "23":
			return errors.Wrap(errors.InvalidArgument, "", err)
		case class == "08", class == "53", class == "57" && pgErr.Code != "57014":
			return errors.Wrap(errors.ConnectionFailed, "", err)
		case pgErr.Code == "57014":
			return errors.Wrap(errors.Timeout, "", err)
		}
		return errors.Wrap(errors.DriverError, "", err)
	}

	var connectErr *pgconn.ConnectError
	if stderrors.As(err, &connectErr) {
		if strings.Contains(strings.ToLower(err.Error()), "password authentication failed") {
			return errors.Wrap(errors.ConnectionFailed, backend.ErrAuthFailed.Reason, err)
		}
		return errors.Wrap(errors.ConnectionFailed, "", err)
	}
	if pgconn.SafeToRetry(err) {
		return errors.Wrap(errors.ConnectionFailed, "", err)
	}
	return err
}
