package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dukex/flightline/pkg/models"
	"github.com/dukex/flightline/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPersistence(t *testing.T) {
	// Test with regular path
	fp := NewPersistence("/tmp/test")
	assert.Equal(t, "/tmp/test", fp.root)

	// Test with file:// prefix
	fp = NewPersistence("file:///tmp/test")
	assert.Equal(t, "/tmp/test", fp.root)
}

func TestPersistence_Close(t *testing.T) {
	p := NewPersistence("./test-data")
	assert.NoError(t, p.Close(t.Context()))
}

func TestPersistence_HealthCheck(t *testing.T) {
	assert.NoError(t, NewPersistence(t.TempDir()).HealthCheck(t.Context()))
	assert.Error(t, NewPersistence(filepath.Join(t.TempDir(), "missing")).HealthCheck(t.Context()))
}

func TestServicingRepository_SaveAndLoad(t *testing.T) {
	testDir := t.TempDir()
	p := NewPersistence(testDir)
	repo := p.ServicingRepository()

	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	rec := models.NewServicingRecord(models.ServicingBFS, "TAIL-01", 1, models.DefaultBFSVariant(), now)
	rec.ID = "bfs-1"
	rec.Assignment.Trades[models.TradeAE] = []models.PersonnelRef{{PNO: "AE001", Name: "Rajesh Kumar", Trade: models.TradeAE}}
	rec.Signatures.Append(models.Signature{Slot: "AE", PNO: "AE001", SignedAt: now})

	require.NoError(t, repo.Save(t.Context(), rec))

	// Verify file was created
	_, err := os.Stat(filepath.Join(testDir, "servicing", "bfs-1.json"))
	require.NoError(t, err)

	loaded, err := repo.ByID(t.Context(), "bfs-1")
	require.NoError(t, err)
	assert.Equal(t, rec.Assignment, loaded.Assignment)
	assert.Equal(t, rec.Signatures, loaded.Signatures)
	assert.Equal(t, models.SubStepFSIInitAuth, loaded.SubStep)
	assert.True(t, loaded.CreatedAt.Equal(now))
}

func TestServicingRepository_NotFound(t *testing.T) {
	repo := NewPersistence(t.TempDir()).ServicingRepository()

	_, err := repo.ByID(t.Context(), "missing")
	assert.True(t, persistence.IsRecordNotFound(err))

	_, err = repo.ByID(t.Context(), "../etc/passwd")
	assert.True(t, persistence.IsRecordNotFound(err))
}

func TestServicingRepository_ByAircraftOrdersOldestFirst(t *testing.T) {
	repo := NewPersistence(t.TempDir()).ServicingRepository()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	for i, id := range []string{"c", "a", "b"} {
		rec := models.NewServicingRecord(models.ServicingBFS, "TAIL-01", i+1, models.DefaultBFSVariant(), base.Add(time.Duration(i)*time.Hour))
		rec.ID = id
		require.NoError(t, repo.Save(t.Context(), rec))
	}

	other := models.NewServicingRecord(models.ServicingBFS, "TAIL-02", 1, models.DefaultBFSVariant(), base)
	other.ID = "z"
	require.NoError(t, repo.Save(t.Context(), other))

	records, err := repo.ByAircraft(t.Context(), "TAIL-01")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "c", records[0].ID)
	assert.Equal(t, "a", records[1].ID)
	assert.Equal(t, "b", records[2].ID)

	none, err := NewPersistence(t.TempDir()).ServicingRepository().ByAircraft(t.Context(), "TAIL-01")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestWorkflowStateRepository(t *testing.T) {
	repo := NewPersistence(t.TempDir()).WorkflowStateRepository()

	_, err := repo.ByAircraft(t.Context(), "TAIL-01")
	assert.True(t, persistence.IsWorkflowStateNotFound(err))

	state := models.NewWorkflowState("TAIL-01", time.Now().UTC())
	state.Stage = models.StageBFS
	state.BFSID = "bfs-1"
	require.NoError(t, repo.Save(t.Context(), &state))

	loaded, err := repo.ByAircraft(t.Context(), "TAIL-01")
	require.NoError(t, err)
	assert.Equal(t, models.StageBFS, loaded.Stage)
	assert.Equal(t, "bfs-1", loaded.BFSID)
}

func TestWorkflowStateRepository_OneDocumentPerAircraft(t *testing.T) {
	root := t.TempDir()
	repo := NewWorkflowStateRepository(root)

	state := models.NewWorkflowState("TAIL-01", time.Now().UTC())
	require.NoError(t, repo.Save(t.Context(), &state))

	state.Cycle = 2
	state.Stage = models.StageAFS
	require.NoError(t, repo.Save(t.Context(), &state))

	other := models.NewWorkflowState("TAIL-02", time.Now().UTC())
	require.NoError(t, repo.Save(t.Context(), &other))

	files, err := filepath.Glob(filepath.Join(root, "workflow_states", "*.json"))
	require.NoError(t, err)
	assert.Len(t, files, 2)

	loaded, err := repo.ByAircraft(t.Context(), "TAIL-01")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Cycle)
	assert.Equal(t, models.StageAFS, loaded.Stage)

	_, err = repo.ByAircraft(t.Context(), "TAIL-03")
	assert.ErrorIs(t, err, persistence.ErrWorkflowStateNotFound)
}

func TestJobCardRepository_Delete(t *testing.T) {
	repo := NewPersistence(t.TempDir()).JobCardRepository()

	card := &models.JobCard{ID: "card-1", AircraftID: "TAIL-01", Type: models.MaintenanceWeekly, Status: models.JobCardStatusOpen}
	require.NoError(t, repo.Save(t.Context(), card))
	require.NoError(t, repo.Delete(t.Context(), "card-1"))

	_, err := repo.ByID(t.Context(), "card-1")
	assert.True(t, persistence.IsJobCardNotFound(err))

	err = repo.Delete(t.Context(), "card-1")
	assert.True(t, persistence.IsJobCardNotFound(err))
}

func TestCollection_SaveRequiresID(t *testing.T) {
	repo := NewPersistence(t.TempDir()).AircraftRepository()
	assert.Error(t, repo.Save(t.Context(), &models.Aircraft{AircraftNumber: "KT-101"}))
}
