package netutil

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"slices"
)

// ErrNoBindAddr is returned when neither the preferred address nor any
// candidate can be bound.
var ErrNoBindAddr = errors.New("no available API bind addresses")

// Listen binds preferred, or with autoFallback the first candidate that is
// free. The listener is returned open, so the chosen port cannot be taken
// between selection and serving.
func Listen(preferred string, candidates []string, autoFallback bool) (net.Listener, error) {
	if preferred != "" {
		ln, err := net.Listen("tcp", preferred)
		if err == nil {
			return ln, nil
		}
		if !autoFallback {
			return nil, fmt.Errorf("preferred bind address unavailable: %s: %w", preferred, err)
		}
		slog.Warn("preferred bind address unavailable, trying fallbacks", "addr", preferred, "error", err)
	}

	for _, addr := range candidates {
		if addr == preferred {
			continue
		}
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			slog.Debug("bind candidate unavailable", "addr", addr, "error", err)
			continue
		}
		return ln, nil
	}
	return nil, fmt.Errorf("%w (tried %v)", ErrNoBindAddr, slices.Insert(slices.Clone(candidates), 0, preferred))
}
