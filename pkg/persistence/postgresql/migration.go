package postgresql

import "github.com/dukex/flightline/pkg/persistence/sqlbase"

// Stage records are stored as JSONB documents. The indexed columns are the ones
// repositories filter and order by.
func migrations() []sqlbase.Migration {
	return []sqlbase.Migration{
		{Version: 1, Name: "stage_records", SQL: `
			CREATE TABLE aircraft (
				id VARCHAR(64) PRIMARY KEY,
				aircraft_id VARCHAR(64) NOT NULL,
				data JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE workflow_states (
				id VARCHAR(64) PRIMARY KEY,
				aircraft_id VARCHAR(64) NOT NULL,
				data JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE servicing_records (
				id VARCHAR(64) PRIMARY KEY,
				aircraft_id VARCHAR(64) NOT NULL,
				data JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_servicing_records_aircraft ON servicing_records(aircraft_id, created_at);

			CREATE TABLE pilot_acceptances (
				id VARCHAR(64) PRIMARY KEY,
				aircraft_id VARCHAR(64) NOT NULL,
				data JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_pilot_acceptances_aircraft ON pilot_acceptances(aircraft_id, created_at);

			CREATE TABLE post_flights (
				id VARCHAR(64) PRIMARY KEY,
				aircraft_id VARCHAR(64) NOT NULL,
				data JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_post_flights_aircraft ON post_flights(aircraft_id, created_at);
		`},
		{Version: 2, Name: "job_cards", SQL: `
			CREATE TABLE job_cards (
				id VARCHAR(64) PRIMARY KEY,
				aircraft_id VARCHAR(64) NOT NULL,
				data JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_job_cards_aircraft ON job_cards(aircraft_id, created_at);
		`},
		{Version: 3, Name: "personnel", SQL: `
			CREATE TABLE personnel (
				pno VARCHAR(32) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				rank VARCHAR(64) NOT NULL DEFAULT '',
				trade VARCHAR(8) NOT NULL CHECK (trade IN ('AE', 'AL', 'AR', 'AO', 'SE', 'SUP')),
				roles TEXT[] NOT NULL DEFAULT '{}',
				pin_hash VARCHAR(100) NOT NULL
			);

			CREATE UNIQUE INDEX idx_personnel_pno_upper ON personnel(UPPER(pno));
		`},
	}
}
