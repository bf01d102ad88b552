// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

/*
Package config loads relayd's two kinds of configuration.

# Daemon settings

Config is built with koanf from three layers, later layers winning:

 1. struct defaults (defaultConfig)
 2. an optional YAML file (RELAYD_CONFIG, ./relayd.yaml, /etc/relayd/relayd.yaml)
 3. environment variables, through an explicit mapping table

Only mapped variables are read:

  - RELAYD_HTTP_HOST, RELAYD_HTTP_PORT: control API bind address (0.0.0.0:8080)
  - RELAYD_CORS_ORIGINS: comma-separated origins (default: *)
  - LOG_LEVEL, LOG_FORMAT, LOG_FILE: logging (info, json, relayd.log)
  - RELAYD_LOGSTORE_PATH: recent-log store directory (data/logstore)
  - RELAYD_DOCUMENT: forwarding document path (forwarding.yaml)
  - RELAYD_RETRY_DELAY, RELAYD_BACKOFF_DELAY, RELAYD_MAX_ATTEMPTS: endpoint
    retry policy (5s, 60s, 3)
  - RELAYD_UPSTREAM_MIN_DELAY, RELAYD_UPSTREAM_MAX_DELAY: upstream reconnect
    backoff bounds (1s, 30s)

Daemon settings are read once at boot.

# Forwarding document

Document holds the upstream source, the filter and the endpoint list. It is
owned by DocumentStore, which reads it with koanf on every forwarder start
and rewrites it on every configuration change, after copying the previous
version to backups/<name>_<timestamp>.yaml next to it.
*/
package config
