package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/boristopalov/airwrap/pkg/core"
)

// toStatus maps domain errors onto gRPC status codes.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	code := codes.Internal
	switch {
	case errors.Is(err, core.ErrTargetNotFound), errors.Is(err, core.ErrUnknownAgent):
		code = codes.NotFound
	case errors.Is(err, core.ErrShapeMismatch):
		code = codes.InvalidArgument
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	}
	return status.Error(code, err.Error())
}

// fromStatus maps gRPC status codes back onto domain errors.
func fromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		if strings.Contains(st.Message(), core.ErrUnknownAgent.Error()) {
			return fmt.Errorf("%w: %s", core.ErrUnknownAgent, st.Message())
		}
		return fmt.Errorf("%w: %s", core.ErrTargetNotFound, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", core.ErrShapeMismatch, st.Message())
	case codes.Canceled:
		return fmt.Errorf("%w: %s", context.Canceled, st.Message())
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", context.DeadlineExceeded, st.Message())
	}
	return err
}
