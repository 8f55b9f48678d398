// Package postgresql provides PostgreSQL persistence for aircraft, stage records and personnel.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/flightline/pkg/models"
	"github.com/dukex/flightline/pkg/persistence"
	"github.com/dukex/flightline/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Persistence implements persistence.Persistence for PostgreSQL.
type Persistence struct {
	db          *sql.DB
	logger      *slog.Logger
	aircraft    *documents[models.Aircraft]
	states      *WorkflowStateRepository
	servicing   *documents[models.ServicingRecord]
	acceptances *documents[models.PilotAcceptance]
	postFlights *documents[models.PostFlying]
	jobCards    *documents[models.JobCard]
	personnel   *Directory
}

var _ persistence.Persistence = (*Persistence)(nil)

// NewPersistence connects to databaseURL and runs pending migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	postgres := New(logger, database)

	err = postgres.Migrate(ctx)
	if err != nil {
		_ = database.Close()

		return nil, err
	}

	return postgres, nil
}

// New wraps an open database without migrating it.
func New(logger *slog.Logger, db *sql.DB) *Persistence {
	logger = logger.With("module", "postgresql")

	return &Persistence{
		db:     db,
		logger: logger,
		aircraft: newDocuments(db, logger, "aircraft", persistence.ErrAircraftNotFound, func(a *models.Aircraft) meta {
			return meta{ID: a.ID, AircraftID: a.ID}
		}),
		states: NewWorkflowStateRepository(db, logger),
		servicing: newDocuments(db, logger, "servicing_records", persistence.ErrRecordNotFound, func(r *models.ServicingRecord) meta {
			return meta{ID: r.ID, AircraftID: r.AircraftID, CreatedAt: r.CreatedAt}
		}),
		acceptances: newDocuments(db, logger, "pilot_acceptances", persistence.ErrRecordNotFound, func(a *models.PilotAcceptance) meta {
			return meta{ID: a.ID, AircraftID: a.AircraftID, CreatedAt: a.CreatedAt}
		}),
		postFlights: newDocuments(db, logger, "post_flights", persistence.ErrRecordNotFound, func(p *models.PostFlying) meta {
			return meta{ID: p.ID, AircraftID: p.AircraftID, CreatedAt: p.CreatedAt}
		}),
		jobCards: newDocuments(db, logger, "job_cards", persistence.ErrJobCardNotFound, func(c *models.JobCard) meta {
			return meta{ID: c.ID, AircraftID: c.AircraftID, CreatedAt: c.CreatedAt}
		}),
		personnel: NewDirectory(db, logger),
	}
}

// Migrate applies pending schema migrations.
func (p *Persistence) Migrate(ctx context.Context) error {
	err := sqlbase.NewMigrator(p.logger, p.db, migrations()).Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) AircraftRepository() persistence.AircraftRepository {
	return p.aircraft
}

func (p *Persistence) WorkflowStateRepository() persistence.WorkflowStateRepository {
	return p.states
}

func (p *Persistence) ServicingRepository() persistence.ServicingRepository {
	return p.servicing
}

func (p *Persistence) AcceptanceRepository() persistence.AcceptanceRepository {
	return p.acceptances
}

func (p *Persistence) PostFlyingRepository() persistence.PostFlyingRepository {
	return p.postFlights
}

func (p *Persistence) JobCardRepository() persistence.JobCardRepository {
	return p.jobCards
}

// Directory returns the personnel directory stored in the same database.
func (p *Persistence) Directory() *Directory {
	return p.personnel
}
