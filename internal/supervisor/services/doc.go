// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

/*
Package services adapts relayd's components to suture.Service.

Each wrapper translates one lifecycle shape into Serve(ctx) error:

  - HTTPServerService: ListenAndServe and Shutdown
  - WebSocketHubService: a hub's RunWithContext loop
  - ForwarderService: Start on boot when autostart is set, Stop on exit
  - StatusBroadcastService: a ticker pushing forwarder status to the hub

The wrappers depend on small interfaces rather than the concrete packages,
so internal/forwarder and internal/websocket never import this package.
*/
package services
