// ofexport - Openfire Administrative Data Export Toolkit
// Copyright 2026 The ofexport Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/openfire-tools/ofexport

package openfire

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/openfire-tools/ofexport/internal/logging"
	"github.com/openfire-tools/ofexport/internal/metrics"
	models "github.com/openfire-tools/ofexport/internal/models/openfire"
)

// CircuitBreakerClient wraps Client with a circuit breaker so a degraded
// Openfire server fails fast instead of dragging an export run through
// timeout after timeout.
//
// The breaker uses real time (via sony/gobreaker) for its interval and
// timeout calculations. Tests should exercise the wrapped client directly.
type CircuitBreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

var (
	_ UserDirectory    = (*CircuitBreakerClient)(nil)
	_ RoomDirectory    = (*CircuitBreakerClient)(nil)
	_ SecurityAuditLog = (*CircuitBreakerClient)(nil)
	_ SystemProperties = (*CircuitBreakerClient)(nil)
)

// NewCircuitBreakerClient wraps client with circuit breaker protection.
// Configuration:
//   - Max 3 requests allowed through in half-open state
//   - 1 minute measurement window
//   - 30 second timeout before attempting recovery
//   - Opens after 60% failure rate with minimum 5 requests
func NewCircuitBreakerClient(client *Client) *CircuitBreakerClient {
	cbName := "openfire-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &CircuitBreakerClient{client: client, cb: cb, name: cbName}
}

// execute wraps an API call with circuit breaker protection. Enrichment
// misses (not-found) do not count as breaker failures; only transport and
// server faults should trip the circuit.
func (cbc *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := cbc.cb.Execute(func() (interface{}, error) {
		res, err := fn()
		if err != nil && errors.Is(err, ErrNotFound) {
			return notFoundResult{res: res, err: err}, nil
		}
		return res, err
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
			return nil, transportError("circuit breaker", err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
		return nil, err
	}

	if nf, ok := result.(notFoundResult); ok {
		metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
		return nf.res, nf.err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	return result, nil
}

// notFoundResult tunnels a not-found error through the breaker as a success.
type notFoundResult struct {
	res interface{}
	err error
}

// castSlice safely type-casts the circuit breaker result with error checking.
func castSlice[T any](result interface{}, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.([]T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Ping verifies connectivity with circuit breaker protection.
func (cbc *CircuitBreakerClient) Ping(ctx context.Context) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.client.Ping(ctx)
	})
	return err
}

// ListUsers retrieves users with circuit breaker protection.
func (cbc *CircuitBreakerClient) ListUsers(ctx context.Context, search string) ([]models.User, error) {
	return castSlice[models.User](cbc.execute(func() (interface{}, error) {
		return cbc.client.ListUsers(ctx, search)
	}))
}

// GetUserSessions retrieves user sessions with circuit breaker protection.
func (cbc *CircuitBreakerClient) GetUserSessions(ctx context.Context, username string) ([]models.Session, error) {
	return castSlice[models.Session](cbc.execute(func() (interface{}, error) {
		return cbc.client.GetUserSessions(ctx, username)
	}))
}

// GetUserRooms retrieves per-user room names with circuit breaker protection.
func (cbc *CircuitBreakerClient) GetUserRooms(ctx context.Context, username, affiliation string) ([]string, error) {
	return castSlice[string](cbc.execute(func() (interface{}, error) {
		return cbc.client.GetUserRooms(ctx, username, affiliation)
	}))
}

// ListRooms retrieves chat rooms with circuit breaker protection.
func (cbc *CircuitBreakerClient) ListRooms(ctx context.Context, service, roomType, search string) ([]models.Room, error) {
	return castSlice[models.Room](cbc.execute(func() (interface{}, error) {
		return cbc.client.ListRooms(ctx, service, roomType, search)
	}))
}

// GetRoomOccupants retrieves room occupants with circuit breaker protection.
func (cbc *CircuitBreakerClient) GetRoomOccupants(ctx context.Context, service, room string) ([]models.Occupant, error) {
	return castSlice[models.Occupant](cbc.execute(func() (interface{}, error) {
		return cbc.client.GetRoomOccupants(ctx, service, room)
	}))
}

// GetSecurityLogs retrieves security audit entries with circuit breaker
// protection.
func (cbc *CircuitBreakerClient) GetSecurityLogs(ctx context.Context, q SecurityLogQuery) ([]models.SecurityLogEntry, error) {
	return castSlice[models.SecurityLogEntry](cbc.execute(func() (interface{}, error) {
		return cbc.client.GetSecurityLogs(ctx, q)
	}))
}

// GetSystemProperty retrieves a system property with circuit breaker
// protection.
func (cbc *CircuitBreakerClient) GetSystemProperty(ctx context.Context, key string) (string, error) {
	result, err := cbc.execute(func() (interface{}, error) {
		return cbc.client.GetSystemProperty(ctx, key)
	})
	if err != nil {
		return "", err
	}
	value, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return value, nil
}
