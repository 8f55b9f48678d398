// Package outcome selects the post-flight path from the flight and defect status.
package outcome

import (
	"strings"

	"github.com/dukex/flightline/pkg/models"
	"github.com/dukex/flightline/pkg/opserr"
)

// Field names a flight data field that an outcome can require.
type Field string

const (
	FieldLandings          Field = "landings"
	FieldFlightHours       Field = "flight_hours"
	FieldAirframeHours     Field = "airframe_hours"
	FieldFuelConsumed      Field = "fuel_consumed"
	FieldFuelLevelAfter    Field = "fuel_level_after"
	FieldTerminationReason Field = "termination_reason"
	FieldDefectNarrative   Field = "defect_narrative"
)

var present = map[Field]func(models.FlightData) bool{
	FieldLandings:          func(d models.FlightData) bool { return d.Landings != nil },
	FieldFlightHours:       func(d models.FlightData) bool { return d.FlightHours != nil },
	FieldAirframeHours:     func(d models.FlightData) bool { return d.AirframeHours != nil },
	FieldFuelConsumed:      func(d models.FlightData) bool { return d.FuelConsumed != nil },
	FieldFuelLevelAfter:    func(d models.FlightData) bool { return d.FuelLevelAfter != nil },
	FieldTerminationReason: func(d models.FlightData) bool { return strings.TrimSpace(d.TerminationReason) != "" },
	FieldDefectNarrative:   func(d models.FlightData) bool { return strings.TrimSpace(d.DefectNarrative) != "" },
}

// Key is one row selector of the decision table.
type Key struct {
	Flight models.FlightStatus `json:"flight_status"`
	Defect models.DefectStatus `json:"defect_status"`
}

// Outcome is one row of the decision table.
type Outcome struct {
	Key
	Required    []Field                 `json:"required"`
	Next        models.Stage            `json:"next"`
	FinalStatus models.PostFlyingStatus `json:"final_status"`
}

// AllowsAFS reports whether after-flying servicing is reachable from this outcome.
func (o Outcome) AllowsAFS() bool {
	return o.Next == models.StageAFS
}

// Missing returns the required fields absent from data, in table order.
func (o Outcome) Missing(data models.FlightData) []string {
	var missing []string

	for _, f := range o.Required {
		if !present[f](data) {
			missing = append(missing, string(f))
		}
	}

	return missing
}

// table lists every (flight, defect) combination. Only COMPLETED without defects reaches AFS.
var table = map[Key]Outcome{
	{models.FlightCompleted, models.DefectNone}: {
		Required:    []Field{FieldLandings, FieldAirframeHours, FieldFlightHours, FieldFuelConsumed, FieldFuelLevelAfter},
		Next:        models.StageAFS,
		FinalStatus: models.PostFlyingStatusCompleted,
	},
	{models.FlightCompleted, models.DefectWith}: {
		Required:    []Field{FieldFlightHours, FieldDefectNarrative},
		Next:        models.StageMaintenanceRequired,
		FinalStatus: models.PostFlyingStatusMaintenanceRequired,
	},
	{models.FlightTerminated, models.DefectNone}: {
		Required:    []Field{FieldFlightHours, FieldTerminationReason},
		Next:        models.StageMaintenanceRequired,
		FinalStatus: models.PostFlyingStatusTerminated,
	},
	{models.FlightTerminated, models.DefectWith}: {
		Required:    []Field{FieldFlightHours, FieldTerminationReason},
		Next:        models.StageMaintenanceRequired,
		FinalStatus: models.PostFlyingStatusTerminated,
	},
	{models.FlightNotFlown, models.DefectNone}: {
		Next:        models.StageMaintenanceRequired,
		FinalStatus: models.PostFlyingStatusTerminated,
	},
	{models.FlightNotFlown, models.DefectWith}: {
		Next:        models.StageMaintenanceRequired,
		FinalStatus: models.PostFlyingStatusTerminated,
	},
}

// Resolver looks outcomes up in the decision table.
type Resolver struct{}

// NewResolver returns a resolver over the built-in table.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve returns the outcome for the combination, or INVALID_INPUT when it is unknown.
func (r *Resolver) Resolve(flight models.FlightStatus, defect models.DefectStatus) (Outcome, error) {
	key := Key{Flight: flight, Defect: defect}

	o, ok := table[key]
	if !ok {
		return Outcome{}, opserr.New(opserr.CodeInvalidInput, "unknown outcome %s/%s", flight, defect)
	}

	o.Key = key

	return o, nil
}

// Rows returns every row of the table in a stable order.
func (r *Resolver) Rows() []Outcome {
	flights := []models.FlightStatus{models.FlightCompleted, models.FlightTerminated, models.FlightNotFlown}
	defects := []models.DefectStatus{models.DefectNone, models.DefectWith}

	rows := make([]Outcome, 0, len(table))

	for _, f := range flights {
		for _, d := range defects {
			o, _ := r.Resolve(f, d)
			rows = append(rows, o)
		}
	}

	return rows
}
