package proxy

import (
	"errors"

	"github.com/pranav-okta/Cosmos-Circuitry/internal/approval"
)

func isDenied(err error) bool {
	return errors.Is(err, approval.ErrDenied)
}

func isTimeout(err error) bool {
	return errors.Is(err, approval.ErrTimeout)
}
