package admin

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/youtrackr/youtrack"
)

// DefaultLookupConcurrency bounds the number of lookups in flight
const DefaultLookupConcurrency = 5

// LookupOption configures LookupUsers
type LookupOption func(*lookupOptions)

type lookupOptions struct {
	concurrency int
}

// WithConcurrency sets how many lookups run at once
func WithConcurrency(n int) LookupOption {
	return func(o *lookupOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// LookupUsers fetches every login concurrently. A Connection is not safe for
// concurrent use, so each lookup runs on its own clone of conn. Individual
// failures are collected, not returned.
func LookupUsers(ctx context.Context, conn *youtrack.Connection, logins []string, logger zerolog.Logger, opts ...LookupOption) BatchLookupResult {
	options := lookupOptions{concurrency: DefaultLookupConcurrency}
	for _, opt := range opts {
		opt(&options)
	}

	result := BatchLookupResult{
		Requested: len(logins),
	}

	if len(logins) == 0 {
		return result
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(options.concurrency)

	// One slot per login keeps the output in request order
	users := make([]*youtrack.User, len(logins))
	failures := make([]error, len(logins))

	for i, login := range logins {
		g.Go(func() error {
			users[i], failures[i] = NewUserManagement(conn.Clone(), logger).GetUserByUsername(ctx, login)
			if failures[i] != nil {
				logger.Debug().
					Err(failures[i]).
					Str("login", login).
					Str("outcome", youtrack.Classify(failures[i]).String()).
					Msg("User lookup failed")
			}
			return nil // Keep going on individual failures
		})
	}

	// Lookups record failures per login and never fail the group
	_ = g.Wait()

	for i, login := range logins {
		if failures[i] != nil {
			result.Failed = append(result.Failed, LookupError{Login: login, Err: failures[i]})
			continue
		}
		result.Found = append(result.Found, users[i])
	}

	logger.Debug().
		Int("requested", result.Requested).
		Int("found", len(result.Found)).
		Int("failed", len(result.Failed)).
		Msg("User lookup finished")

	return result
}

// BatchLookupResult contains the results of a batch user lookup
type BatchLookupResult struct {
	Requested int
	Found     []*youtrack.User
	Failed    []LookupError
}

// LookupError records why a single login could not be fetched
type LookupError struct {
	Login string
	Err   error
}

// Error implements the error interface
func (e LookupError) Error() string {
	return fmt.Sprintf("failed to look up user %s: %v", e.Login, e.Err)
}

func (e LookupError) Unwrap() error {
	return e.Err
}

// Outcome classifies the failure
func (e LookupError) Outcome() youtrack.Outcome {
	return youtrack.Classify(e.Err)
}
