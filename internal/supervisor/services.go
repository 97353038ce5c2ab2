// Didactus - Learning Recommendation and Analytics Engine
// Copyright 2026 The Didactus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/didactus/didactus

package supervisor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/didactus/didactus/internal/logging"
	"github.com/didactus/didactus/internal/profile"
)

// HTTPService runs an *http.Server as a supervised suture service.
type HTTPService struct {
	server *http.Server
}

// NewHTTPService wraps srv for supervision.
func NewHTTPService(srv *http.Server) *HTTPService {
	return &HTTPService{server: srv}
}

// String names the service in supervisor logs.
func (s *HTTPService) String() string {
	return "http-server-" + s.server.Addr
}

// Serve runs the server until ctx is cancelled, then shuts down gracefully.
func (s *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("HTTP server shutdown failed")
		}
		<-errCh
		return ctx.Err()
	}
}

// InvalidationService runs the learner-state invalidation subscription as
// a supervised service, so a dropped subscription is re-established.
type InvalidationService struct {
	aggregator *profile.Aggregator
	subscriber message.Subscriber
}

// NewInvalidationService wraps the aggregator's subscription loop.
func NewInvalidationService(aggregator *profile.Aggregator, subscriber message.Subscriber) *InvalidationService {
	return &InvalidationService{aggregator: aggregator, subscriber: subscriber}
}

// String names the service in supervisor logs.
func (s *InvalidationService) String() string {
	return "profile-invalidation"
}

// Serve consumes invalidation messages until ctx is cancelled.
func (s *InvalidationService) Serve(ctx context.Context) error {
	return s.aggregator.SubscribeInvalidations(ctx, s.subscriber)
}
