/*
Copyright 2026 The llm-d Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// The file provides the HTTP server hosting the api handlers.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"k8s.io/klog/v2"

	"github.com/llm-d-incubation/chat-engine/internal/apiserver/common"
	"github.com/llm-d-incubation/chat-engine/internal/apiserver/middleware"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	httpServer *http.Server
}

func New(address string, handlers ...common.ApiHandler) *Server {
	mux := http.NewServeMux()
	for _, h := range handlers {
		common.RegisterHandler(mux, h)
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              address,
			Handler:           middleware.RequestMiddleware(mux),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	logger := klog.FromContext(ctx)
	baseCtx := context.WithoutCancel(ctx)
	s.httpServer.BaseContext = func(net.Listener) context.Context { return baseCtx }

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "address", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
