// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

// Command relayd forwards ADS-B and AIS frames from one upstream source to
// many TCP endpoints.
//
// relayd reads newline-delimited frames from a decoder (dump1090 SBS on
// port 30003, an AIS receiver on a serial device, or any TCP feed), keeps
// the frames whose aircraft or vessel identifier is on the allow-list, and
// writes each kept frame to every enabled endpoint. An endpoint that is down
// never delays the others.
//
// # Application Architecture
//
// The daemon initializes components in the following order:
//
//  1. Configuration: daemon settings from defaults, relayd.yaml and the
//     environment (koanf v2)
//  2. Log store: badger-backed recent-log buffer with a 72h TTL
//  3. WebSocket hub: live feed of log lines and status ticks
//  4. Logging: zerolog JSON to stderr, the log file, the store and the hub
//  5. Forwarder: the daemon handle over the forwarding document
//  6. HTTP server: the control API on /api/v1 and /metrics
//  7. Supervisor tree: forwarding, messaging and API layers (suture v4)
//
// # Configuration
//
// Daemon settings are read from RELAYD_CONFIG, ./relayd.yaml or
// /etc/relayd/relayd.yaml, then overridden by environment variables:
//
//	RELAYD_HTTP_PORT=8080
//	LOG_LEVEL=debug
//	LOG_FILE=/var/log/relayd.log
//	RELAYD_DOCUMENT=/etc/relayd/forwarding.yaml
//
// The forwarding document (upstream, filter, endpoints) is a separate YAML
// file edited through the API. Every save keeps a timestamped backup.
//
// # Signal Handling
//
// SIGINT and SIGTERM stop the HTTP server, stop the forwarder and close every
// endpoint connection before the process exits.
//
// # Example Usage
//
//	./relayd
//	curl -X POST localhost:8080/api/v1/endpoints \
//	  -d '{"name":"Marine traffic","host":"10.0.0.5","port":30003}'
//	curl localhost:8080/api/v1/status
package main
