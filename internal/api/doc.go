// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

/*
Package api provides relayd's HTTP control API.

The API is a chi router over a Forwarder (the daemon handle), the recent-log
store and the websocket hub. Every JSON response uses one envelope:

	{
	  "status": "success",
	  "data": {...},
	  "metadata": {"timestamp": "2026-03-01T12:00:00Z"}
	}

	{
	  "status": "error",
	  "data": null,
	  "metadata": {"timestamp": "2026-03-01T12:00:00Z"},
	  "error": {
	    "code": "CONFIGURATION_INVALID",
	    "message": "endpoints[0].port must be at most 65535",
	    "details": {"fields": [{"field": "endpoints[0].port", "tag": "max", "message": "..."}]}
	  }
	}

Routes:

  - GET    /api/v1/health/live
  - GET    /api/v1/health/ready
  - GET    /api/v1/status
  - POST   /api/v1/forwarder/start      409 ALREADY_RUNNING
  - POST   /api/v1/forwarder/stop       409 NOT_RUNNING
  - POST   /api/v1/forwarder/restart
  - GET    /api/v1/config
  - PUT    /api/v1/config               400 CONFIGURATION_INVALID
  - GET    /api/v1/endpoints
  - POST   /api/v1/endpoints
  - PUT    /api/v1/endpoints/{id}       404 NOT_FOUND
  - DELETE /api/v1/endpoints/{id}
  - POST   /api/v1/endpoints/{id}/toggle
  - POST   /api/v1/endpoints/test
  - GET    /api/v1/logs?count=&level=
  - DELETE /api/v1/logs
  - GET    /api/v1/ws
  - GET    /metrics

Configuration writes are applied by the daemon with a full restart when it
is running; the response is sent after the restart has completed.

Middleware Stack:

	RequestID → RealIP → Recoverer → RequestLogger → CORS → rate limit → PrometheusMetrics

Usage:

	handler := api.NewHandler(daemon, logStore, hub, cfg.Server)
	router := api.NewRouter(handler, api.NewChiMiddlewareFromConfig(cfg.Server))
	srv := &http.Server{Addr: cfg.Server.Addr(), Handler: router.Setup()}
*/
package api
