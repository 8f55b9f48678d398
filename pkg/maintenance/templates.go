package maintenance

import "github.com/dukex/flightline/pkg/models"

// JobTemplate pre-fills a job when a card is created from a template.
type JobTemplate struct {
	Section     models.Trade `json:"section"`
	Description string       `json:"description"`
	ManHours    float64      `json:"man_hours"`
}

var templates = map[models.MaintenanceType][]JobTemplate{
	models.Maintenance100Hourly: {
		{models.TradeAE, "Inspect engine oil level and check for visible leaks", 1.0},
		{models.TradeAE, "Check airframe structure for cracks and corrosion", 1.5},
		{models.TradeAE, "Verify control surface operation and hinges", 1.0},
		{models.TradeAL, "Check battery condition, voltage and terminals", 0.5},
		{models.TradeAL, "Inspect wiring looms and electrical connectors", 1.0},
		{models.TradeAL, "Test exterior and cockpit lighting system", 0.75},
		{models.TradeAR, "Verify communication radios operation (TX/RX)", 0.75},
		{models.TradeAR, "Test navigation equipment functionality", 1.0},
		{models.TradeAR, "Check antenna mounts, security and cabling", 0.5},
		{models.TradeAO, "Inspect weapon mounting points for damage/wear", 1.0},
		{models.TradeAO, "Check safety pins, safety devices and their proper installation", 0.75},
		{models.TradeAO, "Verify arming system indications and interlocks", 0.75},
	},
	models.Maintenance200Hourly: {
		{models.TradeAE, "Complete engine overhaul inspection", 3.0},
		{models.TradeAE, "Landing gear detailed inspection", 2.5},
		{models.TradeAL, "Electrical system comprehensive check", 2.0},
		{models.TradeAL, "Generator and alternator testing", 1.5},
		{models.TradeAR, "Complete avionics system test", 2.0},
		{models.TradeAO, "Weapons system comprehensive inspection", 2.5},
	},
	models.MaintenanceWeekly: {
		{models.TradeAE, "Visual inspection of aircraft exterior", 0.5},
		{models.TradeAE, "Check fluid levels", 0.25},
		{models.TradeAL, "Battery check", 0.25},
		{models.TradeAR, "Radio functionality test", 0.5},
		{models.TradeAO, "Safety device inspection", 0.5},
	},
	models.Maintenance3Monthly: {
		{models.TradeAE, "Quarterly airframe inspection", 2.0},
		{models.TradeAL, "Quarterly electrical system check", 1.5},
		{models.TradeAR, "Quarterly avionics inspection", 1.5},
		{models.TradeAO, "Quarterly weapons system check", 1.5},
	},
	models.Maintenance6Monthly: {
		{models.TradeAE, "Semi-annual comprehensive inspection", 4.0},
		{models.TradeAL, "Semi-annual electrical overhaul", 3.0},
		{models.TradeAR, "Semi-annual avionics calibration", 3.0},
		{models.TradeAO, "Semi-annual weapons system overhaul", 3.0},
	},
	models.Maintenance12Monthly: {
		{models.TradeAE, "Annual airframe comprehensive inspection", 6.0},
		{models.TradeAL, "Annual electrical system overhaul", 5.0},
		{models.TradeAR, "Annual avionics complete check", 5.0},
		{models.TradeAO, "Annual weapons system certification", 5.0},
	},
}

// Templates returns the pre-filled jobs of a maintenance type.
func Templates(t models.MaintenanceType) []JobTemplate {
	out := make([]JobTemplate, len(templates[t]))
	copy(out, templates[t])

	return out
}
