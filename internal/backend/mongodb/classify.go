// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package mongodb

import (
	"context"
	stderrors "errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"

	"seedfast/docshell/internal/backend"
	"seedfast/docshell/internal/errors"
)

// Server error codes that indicate a bad request rather than a driver fault.
var invalidArgumentCodes = map[int32]bool{
	2:  true, // BadValue
	9:  true, // FailedToParse
	26: true, // NamespaceNotFound
	59: true, // CommandNotFound
	73: true, // InvalidNamespace
}

const authenticationFailed = 18

// classify converts a driver error into an errors.E. Deadline handling is
// left to the caller's context so a timed-out call reports Timeout.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	if stderrors.Is(err, mongo.ErrClientDisconnected) {
		return backend.ErrClosed
	}

	var cmdErr mongo.CommandError
	if stderrors.As(err, &cmdErr) {
		switch {
		case cmdErr.Code == authenticationFailed:
			return errors.Wrap(errors.ConnectionFailed, backend.ErrAuthFailed.Reason, err)
		case invalidArgumentCodes[cmdErr.Code]:
			return errors.Wrap(errors.InvalidArgument, "", err)
		}
		return errors.Wrap(errors.DriverError, "", err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "auth error"), strings.Contains(msg, "authentication failed"):
		return errors.Wrap(errors.ConnectionFailed, backend.ErrAuthFailed.Reason, err)
	case mongo.IsTimeout(err):
		return errors.Wrap(errors.Timeout, "", err)
	case mongo.IsNetworkError(err), strings.Contains(msg, "server selection"):
		return errors.Wrap(errors.ConnectionFailed, "", err)
	}
	return err
}
