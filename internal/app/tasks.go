package app

import (
	"context"
	"log/slog"

	"cronhelper/internal/cronjob"
	"cronhelper/internal/host"
)

const (
	heartbeatTask   = "cronhost_heartbeat"
	maintenanceTask = "cronhost_store_maintenance"
)

// HeartbeatArgs are passed to every heartbeat run.
type HeartbeatArgs struct {
	Service string `json:"service"`
	Env     string `json:"env"`
}

// MaintenanceArgs are passed to every maintenance run.
type MaintenanceArgs struct {
	Driver string `json:"driver"`
}

// registerTasks declares the built-in recurring tasks on h.
func registerTasks(h *host.Host, store host.Store, env, driver string, heartbeat, maintenance int64, log *slog.Logger) error {
	beat := func(ctx context.Context, args HeartbeatArgs) error {
		events, err := h.Events(ctx)
		if err != nil {
			return err
		}
		log.Info("heartbeat", "service", args.Service, "env", args.Env, "pending_events", len(events))
		return nil
	}
	if _, err := cronjob.Init(h, heartbeatTask, heartbeat, beat,
		HeartbeatArgs{Service: appName, Env: env}, cronjob.WithLogger(log)); err != nil {
		return err
	}

	maintain := func(ctx context.Context, args MaintenanceArgs) error {
		m, ok := store.(host.Maintainer)
		if !ok {
			log.Debug("store needs no maintenance", "driver", args.Driver)
			return nil
		}
		return m.Maintain(ctx)
	}
	if _, err := cronjob.Init(h, maintenanceTask, maintenance, maintain,
		MaintenanceArgs{Driver: driver}, cronjob.WithLogger(log)); err != nil {
		return err
	}
	return nil
}
