// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

/*
Package websocket provides the dashboard's live feed.

The hub-and-client design uses gorilla/websocket. A single Hub goroutine
owns the client set. Each Client runs a read pump, which answers pings,
and a write pump, which sends hub messages and keepalive pings.

Message Types:

  - log: one daemon log line, data is the zerolog JSON object
  - status: a forwarder status snapshot, pushed periodically while at
    least one client is connected
  - ping / pong: client keepalive

The Hub is attached to the logger as an extra writer:

	hub := websocket.NewHub()
	logging.Init(logging.Config{Output: os.Stderr, Extra: []io.Writer{hub}})

and runs under the supervisor through services.NewWebSocketHubService. The
control API upgrades GET /api/v1/ws and registers a Client.

Backpressure:

Nothing the hub does can stall the daemon. A full broadcast buffer drops
the message, and a client whose send buffer is full is disconnected. Both
are counted in websocket_messages_dropped_total.

Connection Settings:

  - writeWait: 10 seconds
  - pongWait: 60 seconds
  - pingPeriod: 54 seconds
  - maxMessageSize: 4 KB inbound
*/
package websocket
