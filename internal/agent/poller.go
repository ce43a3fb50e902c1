package agent

import (
	"context"
	"strconv"
	"time"

	"github.com/luxsync-io/luxsync/internal/device"
	"github.com/luxsync-io/luxsync/internal/statechannel"
	"github.com/luxsync-io/luxsync/pkg/lamp"
	"github.com/luxsync-io/luxsync/pkg/log"
	"github.com/luxsync-io/luxsync/pkg/mqtt/topic"
)

// poller keeps the in-process channel in sync with a directly-connected
// device: it mirrors /lamp/status into the lamp collection and maintains
// the device status document from poll outcomes. Everything downstream
// (registry, liveness, schedules) then works identically in both
// deployment modes.
type poller struct {
	client   *device.Client
	channel  statechannel.Channel
	deviceID string
	interval time.Duration
}

func (p *poller) Run(ctx context.Context) error {
	interval := p.interval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	p.poll(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *poller) poll(ctx context.Context) {
	statusPath := topic.CollectionDeviceStatus + "/" + p.deviceID

	status, err := p.client.Status(ctx)
	if err != nil {
		log.Warn("device poll failed", "device", p.deviceID, "error", err)
		if werr := p.channel.Write(ctx, statusPath, lamp.DeviceStatus{Online: false}); werr != nil {
			log.Warn("failed to record device offline", "error", werr)
		}
		return
	}

	fields := make(map[string]any, len(status.Lamps))
	for _, l := range status.Lamps {
		color := l.CurrentColor
		fields[strconv.Itoa(l.ID)] = map[string]any{
			"status":       l.Status,
			"currentColor": color,
		}
	}
	// Whole-document replace, so lamps that disappeared from the device
	// also disappear from the views.
	if err := p.channel.Write(ctx, topic.CollectionLamps, fields); err != nil {
		log.Warn("failed to mirror device status", "error", err)
		return
	}

	heartbeat := lamp.DeviceStatus{
		Online:   true,
		LastSeen: time.Now().Format(time.RFC3339),
	}
	if err := p.channel.Write(ctx, statusPath, heartbeat); err != nil {
		log.Warn("failed to record device heartbeat", "error", err)
	}
}
