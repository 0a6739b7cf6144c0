package api

import (
	"strconv"

	"github.com/skywatch/drone-ops/internal/apierr"
)

func notFoundNoActiveSession() error {
	return apierr.NotFound("no active session to stop")
}

func parseIDQueryValue(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}
