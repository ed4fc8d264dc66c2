package firestore

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/loomcart/api/internal/repositories"
)

// WrapError annotates Firestore errors with repository semantics. Context cancellations
// and already-categorised repository errors pass through unchanged.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return err
	}
	if _, ok := repositories.AsStockError(err); ok {
		return err
	}

	switch status.Code(err) {
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	case codes.NotFound:
		return repositories.NewNotFound(op, err)
	case codes.AlreadyExists, codes.FailedPrecondition, codes.Aborted, codes.OutOfRange:
		return repositories.NewConflict(op, err)
	case codes.Unavailable, codes.ResourceExhausted, codes.Internal:
		return repositories.NewUnavailable(op, err)
	}
	return repositories.NewUnavailable(op, err)
}

// IsNotFound reports whether the raw Firestore error is a missing-document error.
func IsNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
