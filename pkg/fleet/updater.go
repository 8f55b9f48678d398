// Package fleet keeps aircraft totals in step with completed flights and maintenance.
package fleet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/flightline/pkg/eventbus"
	"github.com/dukex/flightline/pkg/events"
	"github.com/dukex/flightline/pkg/models"
	"github.com/dukex/flightline/pkg/persistence"
)

// Updater applies post-flight and job-card events to the aircraft repository.
type Updater struct {
	logger   *slog.Logger
	aircraft persistence.AircraftRepository
	now      func() time.Time
	mu       sync.Mutex
}

func NewUpdater(logger *slog.Logger, aircraft persistence.AircraftRepository) *Updater {
	return &Updater{
		logger:   logger.With("module", "fleet"),
		aircraft: aircraft,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register installs the updater handlers on bus.
func (u *Updater) Register(bus eventbus.EventSubscriber) error {
	if err := bus.Handle(events.PostFlightCompletedEvent, u.HandlePostFlightCompleted); err != nil {
		return fmt.Errorf("failed to subscribe to post_flight.completed events: %w", err)
	}

	if err := bus.Handle(events.JobCardSignedEvent, u.HandleJobCardSigned); err != nil {
		return fmt.Errorf("failed to subscribe to job_card.ato_signed events: %w", err)
	}

	u.logger.Info("fleet updater subscribed")

	return nil
}

// HandlePostFlightCompleted adds the flight to the aircraft totals. A record is
// applied at most once per aircraft, so redelivered events are ignored.
func (u *Updater) HandlePostFlightCompleted(ctx context.Context, eventData any) error {
	var event *events.PostFlightCompleted

	switch e := eventData.(type) {
	case *events.PostFlightCompleted:
		event = e
	case events.PostFlightCompleted:
		event = &e
	default:
		return fmt.Errorf("invalid event type for post_flight.completed: %T", eventData)
	}

	return u.update(ctx, event.AircraftID, func(aircraft *models.Aircraft) bool {
		if aircraft.LastPostFlyingID == event.PostFlyingID {
			u.logger.Debug("post-flight record already applied", "aircraft_id", aircraft.ID, "post_flying_id", event.PostFlyingID)

			return false
		}

		if event.FlightStatus == models.FlightCompleted {
			applyFlightData(aircraft, event.Data)
		}

		if event.DefectStatus == models.DefectWith {
			aircraft.Status = models.AircraftStatusMaintenance
		}

		aircraft.LastPostFlyingID = event.PostFlyingID

		return true
	})
}

// HandleJobCardSigned returns an aircraft under maintenance to service.
func (u *Updater) HandleJobCardSigned(ctx context.Context, eventData any) error {
	var event *events.JobCardSigned

	switch e := eventData.(type) {
	case *events.JobCardSigned:
		event = e
	case events.JobCardSigned:
		event = &e
	default:
		return fmt.Errorf("invalid event type for job_card.ato_signed: %T", eventData)
	}

	return u.update(ctx, event.AircraftID, func(aircraft *models.Aircraft) bool {
		if aircraft.Status != models.AircraftStatusMaintenance {
			return false
		}

		aircraft.Status = models.AircraftStatusServiceable

		return true
	})
}

func (u *Updater) update(ctx context.Context, aircraftID string, fn func(*models.Aircraft) bool) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	aircraft, err := u.aircraft.ByID(ctx, aircraftID)
	if err != nil {
		if persistence.IsAircraftNotFound(err) {
			u.logger.Warn("event for unknown aircraft", "aircraft_id", aircraftID)

			return nil
		}

		return fmt.Errorf("failed to load aircraft %s: %w", aircraftID, err)
	}

	if !fn(aircraft) {
		return nil
	}

	aircraft.UpdatedAt = u.now()

	if err := u.aircraft.Save(ctx, aircraft); err != nil {
		return fmt.Errorf("failed to save aircraft %s: %w", aircraftID, err)
	}

	u.logger.Info("aircraft updated",
		"aircraft_id", aircraft.ID,
		"status", aircraft.Status,
		"total_flying_hours", aircraft.TotalFlyingHours)

	return nil
}

func applyFlightData(aircraft *models.Aircraft, data models.FlightData) {
	if data.FlightHours != nil {
		aircraft.TotalFlyingHours += *data.FlightHours
	}

	if data.FuelLevelAfter != nil {
		aircraft.CurrentFuelLevel = *data.FuelLevelAfter
	}

	if data.TirePressureMainAfter != nil {
		aircraft.TirePressureMain = *data.TirePressureMainAfter
	}

	if data.TirePressureNoseAfter != nil {
		aircraft.TirePressureNose = *data.TirePressureNoseAfter
	}
}
