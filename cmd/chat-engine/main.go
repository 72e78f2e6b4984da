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

// The entry point for the interactive chat engine.

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/llm-d-incubation/chat-engine/internal/apiserver/conversations"
	"github.com/llm-d-incubation/chat-engine/internal/apiserver/health"
	"github.com/llm-d-incubation/chat-engine/internal/apiserver/metrics"
	"github.com/llm-d-incubation/chat-engine/internal/apiserver/middleware"
	"github.com/llm-d-incubation/chat-engine/internal/apiserver/server"
	"github.com/llm-d-incubation/chat-engine/internal/chat"
	"github.com/llm-d-incubation/chat-engine/internal/config"
	"github.com/llm-d-incubation/chat-engine/internal/engine"
	"github.com/llm-d-incubation/chat-engine/internal/history"
	"github.com/llm-d-incubation/chat-engine/internal/tools"
)

func main() {
	// initialize klog
	klog.InitFlags(nil)
	defer klog.Flush()

	fs := flag.NewFlagSet("chat-engine", flag.ExitOnError)

	cfgFilePath := fs.String("config", "cmd/chat-engine/config.yaml", "Path to configuration file")
	conversationID := fs.String("conversation", "", "Conversation id to resume; a new one is generated when empty")
	serve := fs.Bool("serve", false, "Serve the chat api instead of reading turns from stdin")
	klog.InitFlags(fs)
	fs.Parse(os.Args[1:])

	cfg, err := loadConfig(*cfgFilePath)
	if err != nil {
		klog.ErrorS(err, "Invalid configuration", "path", *cfgFilePath)
		os.Exit(1)
	}
	if *conversationID == "" {
		*conversationID = uuid.NewString()
	}

	// setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 2)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signalChan
		klog.InfoS("Received shutdown signal, starting graceful shutdown...", "signal", sig)
		cancel()

		sig = <-signalChan
		klog.InfoS("Received second shutdown signal, forcing shutdown...", "signal", sig)
		os.Exit(1)
	}()

	store, err := newHistoryStore(ctx, cfg)
	if err != nil {
		klog.ErrorS(err, "Failed to initialize history store", "store", cfg.History.Store)
		os.Exit(1)
	}
	defer store.Close()

	registry, err := newToolRegistry()
	if err != nil {
		klog.ErrorS(err, "Failed to register tools")
		os.Exit(1)
	}

	eng, err := newEngine(ctx, cfg, store, registry)
	if err != nil {
		klog.ErrorS(err, "Failed to initialize engine")
		os.Exit(1)
	}

	healthHandler := health.NewHealthApiHandler(storeCheckers(store)...)
	metricsHandler := metrics.NewMetricsApiHandler()

	if *serve {
		klog.InfoS("Chat api starting", "address", cfg.APIAddress, "tools", registry.Names())
		srv := server.New(cfg.APIAddress, conversations.NewChatApiHandler(eng, store, registry, middleware.NewTurnLimiter(cfg.MaxConcurrentTurns)), healthHandler, metricsHandler)
		if err := srv.Start(ctx); err != nil {
			klog.ErrorS(err, "Chat api exited with error")
		}
		klog.InfoS("Chat engine exited gracefully")
		return
	}

	// setup metrics and health checks endpoints (background goroutine)
	go func() {
		if err := server.New(cfg.MetricsAddress, healthHandler, metricsHandler).Start(ctx); err != nil {
			klog.ErrorS(err, "Observability server failed")
		}
	}()

	klog.InfoS("Chat engine ready", "conversationId", *conversationID, "tools", registry.Names())
	if err := chatLoop(ctx, eng, store, registry, *conversationID, os.Stdin, os.Stdout); err != nil {
		klog.ErrorS(err, "Chat loop exited with error")
	}
	klog.InfoS("Chat engine exited gracefully")
}

// loadConfig overlays the YAML file on the defaults. Only a missing file falls back to
// the defaults; an unreadable or malformed one is an error.
func loadConfig(path string) (*config.Config, error) {
	cfg := config.NewConfig()
	if err := cfg.LoadFromYAML(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		klog.InfoS("Config file not found, using defaults", "path", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// storeCheckers exposes the store's connectivity check when it has one.
func storeCheckers(store history.Store) []health.Checker {
	if checker, ok := store.(interface{ Check(context.Context) error }); ok {
		return []health.Checker{{Name: "history", Check: checker.Check}}
	}
	return nil
}

// chatLoop runs one turn per input line. "/clear" forgets the conversation and "/exit" stops.
func chatLoop(ctx context.Context, eng *engine.Engine, store history.Store, registry *tools.Registry,
	conversationID string, in io.Reader, out io.Writer) error {

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				scanErr <- nil
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(out, "> ")
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return <-scanErr
			}
			line = strings.TrimSpace(l)
		}

		switch line {
		case "":
			continue
		case "/exit":
			return nil
		case "/clear":
			if err := store.Clear(ctx, conversationID); err != nil {
				return err
			}
			fmt.Fprintln(out, "history cleared")
			continue
		}

		res, err := eng.Run(ctx, &chat.Request{
			ConversationID: conversationID,
			Messages:       []chat.Message{chat.UserMessage(line)},
			Functions:      registry.Names(),
		})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		if g, ok := res.Generation.Primary(); ok {
			fmt.Fprintln(out, g.Message.Content)
		} else {
			fmt.Fprintln(out, "(no reply)")
		}
	}
}
