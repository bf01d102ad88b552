// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

/*
Package supervisor runs relayd's long-lived goroutines under suture v4.

Two kinds of supervisor exist. SupervisorTree is built once in main and
lives for the whole process:

	relayd
	├── forwarding-layer
	│   └── ForwarderService (autostart, stop on exit)
	├── messaging-layer
	│   ├── WebSocketHubService
	│   └── StatusBroadcastService
	└── api-layer
	    └── HTTPServerService

The forwarder additionally builds a short-lived supervisor with New on every
start. It holds the upstream reader, the dispatcher and one publisher per
enabled endpoint, and is thrown away on stop. A panicking publisher is
restarted by that supervisor without disturbing its siblings.

Supervisor events (service panics, restarts, backoff) are logged through
sutureslog into the zerolog pipeline via logging.NewSlogLogger.

# Usage

	tree, _ := supervisor.NewSupervisorTree(logging.NewSlogLogger(),
	    supervisor.TreeConfigFrom(cfg.Supervisor))
	tree.AddForwardingService(services.NewForwarderService(daemon, cfg.Forwarding.Autostart))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Supervisor.ShutdownTimeout))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    logging.Error().Err(err).Msg("supervisor tree stopped")
	}
*/
package supervisor
