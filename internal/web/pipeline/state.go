// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package pipeline

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/toeirei/lingo/internal/logging"
)

// State is shared by every stage handling one request. Stages further in
// fill it; outer stages read it once the inner ones return.
type State struct {
	ID string

	mu    sync.Mutex
	route string
	err   error
	stack []byte
}

type stateKey struct{}

// StateFrom returns the request state, or nil outside the pipeline.
func StateFrom(ctx context.Context) *State {
	s, _ := ctx.Value(stateKey{}).(*State)
	return s
}

// Route returns the endpoint name that handled the request.
func (s *State) Route() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.route
}

func (s *State) setRoute(name string) {
	s.mu.Lock()
	s.route = name
	s.mu.Unlock()
}

// Err returns the unhandled error reported for the request, if any.
func (s *State) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *State) setErr(err error, stack []byte) {
	s.mu.Lock()
	s.err, s.stack = err, stack
	s.mu.Unlock()
}

func (s *State) takeErr() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stack, err := s.stack, s.err
	s.err, s.stack = nil, nil
	return stack, err
}

// RequestState assigns a request id (honouring X-Request-ID) and attaches
// the shared State.
func RequestState(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		st := &State{ID: id}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), stateKey{}, st)))
	})
}

// Fail reports an unhandled error for the request. The response must not
// have been written yet; the exception stage renders the error page once
// the handler returns.
func Fail(r *http.Request, err error) {
	if err == nil {
		return
	}
	st := StateFrom(r.Context())
	if st == nil {
		logging.Errorf("unhandled error outside pipeline: %v", err)
		return
	}
	st.setErr(err, nil)
}
