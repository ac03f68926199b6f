package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"visitrack.net/visitrack/model"
)

// LivenessService owns the online/offline flag. Heartbeats are the only way
// a station goes online; the sweeper is the only thing that takes it
// offline. Socket lifecycle never touches the flag, so network blips inside
// the timeout window are tolerated.
type LivenessService struct {
	db          *gorm.DB
	broadcaster Broadcaster
	log         *slog.Logger
}

func NewLivenessService(db *gorm.DB, b Broadcaster, log *slog.Logger) *LivenessService {
	return &LivenessService{db: db, broadcaster: b, log: log}
}

// RecordHeartbeat stamps last_ping and flips the station online.
// Last-write-wins under concurrent heartbeats from the same station.
func (s *LivenessService) RecordHeartbeat(ctx context.Context, stationID, companyID int32) error {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&model.Station{}).
		Where("id = ? AND company_id = ?", stationID, companyID).
		Updates(map[string]interface{}{"is_online": true, "last_ping": now})
	if res.Error != nil {
		return fmt.Errorf("record heartbeat: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStationNotFound
	}

	s.broadcaster.BroadcastToCompany(companyID, EventStationStatusUpdated, StationStatusPayload{
		StationID: stationID,
		IsOnline:  true,
		LastPing:  &now,
	})
	return nil
}

// Sweeper periodically demotes stations whose heartbeat has gone silent
// beyond the timeout.
type Sweeper struct {
	liveness *LivenessService
	interval time.Duration
	timeout  time.Duration
	log      *slog.Logger

	running int32
	stop    chan struct{}
	done    chan struct{}
}

func NewSweeper(liveness *LivenessService, interval, timeout time.Duration, log *slog.Logger) *Sweeper {
	return &Sweeper{
		liveness: liveness,
		interval: interval,
		timeout:  timeout,
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				// Skip the tick if the previous sweep is still running.
				if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
					continue
				}
				ctx, cancel := context.WithTimeout(context.Background(), s.interval)
				s.liveness.SweepOnce(ctx, s.timeout)
				cancel()
				atomic.StoreInt32(&s.running, 0)
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}

// SweepOnce demotes every online station whose last heartbeat is older than
// timeout. A failure on one station is logged and does not abort the rest,
// and the conditional update guarantees a single offline emission per
// transition: an already-offline station is never re-emitted.
func (s *LivenessService) SweepOnce(ctx context.Context, timeout time.Duration) {
	cutoff := time.Now().UTC().Add(-timeout)

	var stale []model.Station
	err := s.db.WithContext(ctx).
		Where("is_online = ? AND (last_ping IS NULL OR last_ping < ?)", true, cutoff).
		Find(&stale).Error
	if err != nil {
		s.log.Error("liveness sweep query failed", "error", err)
		return
	}

	for _, station := range stale {
		res := s.db.WithContext(ctx).Model(&model.Station{}).
			Where("id = ? AND is_online = ?", station.ID, true).
			Update("is_online", false)
		if res.Error != nil {
			s.log.Error("failed to demote station", "stationId", station.ID, "error", res.Error)
			continue
		}
		if res.RowsAffected == 0 {
			continue
		}

		s.log.Info("station went offline", "stationId", station.ID, "lastPing", station.LastPing)
		s.broadcaster.BroadcastToCompany(station.CompanyID, EventStationStatusUpdated, StationStatusPayload{
			StationID: station.ID,
			IsOnline:  false,
			LastPing:  station.LastPing,
		})
	}
}
