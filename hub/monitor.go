package hub

import (
	"context"
	"time"

	"github.com/classware-tech/switchboard/core/logger"
	"github.com/classware-tech/switchboard/devices"
	"github.com/classware-tech/switchboard/events"
)

// Monitor periodically sweeps the store for devices that are marked online
// but have been silent longer than the freshness window, marks them offline
// and emits offline-scan events.
//
// The system is eventually consistent here: a device that dies right after a
// sweep is reported online for up to one sweep interval.
type Monitor struct {
	store     devices.Store
	emitter   *Emitter
	freshness time.Duration
	interval  time.Duration
}

// NewMonitor returns a liveness monitor. The freshness window must be the
// same value used for any client-facing online computation, otherwise
// observers see flapping state.
func NewMonitor(store devices.Store, emitter *Emitter, freshness, interval time.Duration) *Monitor {
	return &Monitor{
		store:     store,
		emitter:   emitter,
		freshness: freshness,
		interval:  interval,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep marks all stale online devices offline and returns how many were
// flipped. Store failures on one device do not stop the sweep.
func (m *Monitor) Sweep(ctx context.Context) int {
	ctx, rlog := logger.ContextWithLogger(ctx)
	threshold := time.Now().UTC().Add(-m.freshness)
	stale, err := m.store.FindStale(ctx, threshold)
	if err != nil {
		rlog.Errorln("liveness sweep, store unavailable:", err)
		return 0
	}
	marked := 0
	for _, record := range stale {
		record.Status = devices.StatusOffline
		if err := m.store.Save(ctx, record); err != nil {
			rlog.Errorln("liveness sweep, cannot save", record.MAC, ":", err)
			continue
		}
		m.emitter.Emit(ctx, record, events.SourceOfflineScan, "")
		marked++
	}
	if marked > 0 {
		rlog.Infoln("liveness sweep marked", marked, "devices offline")
	}
	return marked
}
