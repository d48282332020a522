package reconcile

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/receiptwise/receiptwise/internal/fieldmap"
	"github.com/receiptwise/receiptwise/internal/models"
	"github.com/receiptwise/receiptwise/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	mapper := fieldmap.NewMapper(fieldmap.DefaultConfig())
	s, err := store.Open(filepath.Join(t.TempDir(), "orders.db"), mapper.FieldNames())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewEngine(s, mapper), s
}

func TestReconcileEmptyOrderIDFails(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Reconcile(context.Background(), models.Fields{"order_id": "   "}, "")

	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "order_id", ve.Field)
}

func TestReconcileInsertsNewRecord(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()

	outcome, err := e.Reconcile(ctx, models.Fields{
		"order_id": "X1",
		"date":     "2024-01-01",
		"total":    "9.99",
	}, "receipt.png")
	require.NoError(t, err)

	assert.Equal(t, StateNew, outcome.State)
	require.NotNil(t, outcome.Record)
	assert.NotZero(t, outcome.Record.ID)
	assert.False(t, outcome.Record.Collected)

	stored, err := s.FindByOrderID(ctx, "X1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "9.99", stored.Fields["total"])
	assert.Equal(t, "receipt.png", stored.Filename)
}

func TestReconcileIdenticalPerformsNoWrite(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()

	fields := models.Fields{"order_id": "X1", "date": "2024-01-01", "total": "9.99"}
	_, err := e.Reconcile(ctx, fields, "a.png")
	require.NoError(t, err)

	before, err := s.FindByOrderID(ctx, "X1")
	require.NoError(t, err)

	// Same values, different surrounding whitespace: still identical.
	outcome, err := e.Reconcile(ctx, models.Fields{
		"order_id": "X1",
		"date":     " 2024-01-01 ",
		"total":    "9.99",
	}, "b.png")
	require.NoError(t, err)

	assert.Equal(t, StateIdentical, outcome.State)
	assert.Empty(t, outcome.Diff)
	assert.Empty(t, outcome.ProposedToken)

	after, err := s.FindByOrderID(ctx, "X1")
	require.NoError(t, err)
	assert.True(t, after.LastUpdated.Equal(before.LastUpdated), "identical reconcile must not touch last_updated")
	assert.Equal(t, "a.png", after.Filename)
}

func TestReconcileConflictThenConfirm(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Reconcile(ctx, models.Fields{"order_id": "X1", "date": "2024-01-01", "total": "9.99"}, "")
	require.NoError(t, err)

	before, err := s.FindByOrderID(ctx, "X1")
	require.NoError(t, err)

	outcome, err := e.Reconcile(ctx, models.Fields{"order_id": "X1", "date": "2024-01-01", "total": "10.99"}, "")
	require.NoError(t, err)

	assert.Equal(t, StateConflictPending, outcome.State)
	require.Len(t, outcome.Diff, 1)
	assert.Equal(t, models.FieldChange{Old: "9.99", New: "10.99"}, outcome.Diff["total"])
	require.NotEmpty(t, outcome.ProposedToken)

	// No write happened yet.
	pending, err := s.FindByOrderID(ctx, "X1")
	require.NoError(t, err)
	assert.Equal(t, "9.99", pending.Fields["total"])

	// The token survives a text round trip by construction; confirm with it.
	confirmed, err := e.Confirm(ctx, "X1", outcome.ProposedToken)
	require.NoError(t, err)

	assert.Equal(t, StateCommitted, confirmed.State)
	assert.Equal(t, "10.99", confirmed.Record.Fields["total"])
	assert.True(t, confirmed.Record.LastUpdated.After(before.LastUpdated) ||
		confirmed.Record.LastUpdated.Equal(before.LastUpdated))

	stored, err := s.FindByOrderID(ctx, "X1")
	require.NoError(t, err)
	assert.Equal(t, "10.99", stored.Fields["total"])
}

func TestConfirmAdvancesLastUpdated(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return base }

	_, err := e.Reconcile(ctx, models.Fields{"order_id": "X1", "total": "9.99"}, "")
	require.NoError(t, err)

	outcome, err := e.Reconcile(ctx, models.Fields{"order_id": "X1", "total": "10.99"}, "")
	require.NoError(t, err)

	e.now = func() time.Time { return base.Add(time.Hour) }
	confirmed, err := e.Confirm(ctx, "X1", outcome.ProposedToken)
	require.NoError(t, err)

	assert.True(t, confirmed.Record.LastUpdated.After(base))

	stored, err := s.FindByOrderID(ctx, "X1")
	require.NoError(t, err)
	assert.True(t, stored.LastUpdated.Equal(base.Add(time.Hour)))
}

func TestConfirmVanishedRecordFails(t *testing.T) {
	e, _ := newTestEngine(t)

	token, err := EncodeProposed(models.Fields{"order_id": "ghost", "total": "1.00"})
	require.NoError(t, err)

	_, err = e.Confirm(context.Background(), "ghost", token)

	var nf *models.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "ghost", nf.OrderID)
}

func TestConfirmRejectsMalformedToken(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Confirm(context.Background(), "X1", "not a token")

	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestConfirmAppliesAliasMapping(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Reconcile(ctx, models.Fields{"order_id": "X1", "total": "9.99"}, "")
	require.NoError(t, err)

	// A proposed payload keyed by display names maps through the same
	// alias table as the original extraction.
	token, err := EncodeProposed(models.Fields{"Order ID": "X1", "Total": " 10.99 ", "Date": "2024-02-02"})
	require.NoError(t, err)

	confirmed, err := e.Confirm(ctx, "X1", token)
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, confirmed.State)

	stored, err := s.FindByOrderID(ctx, "X1")
	require.NoError(t, err)
	assert.Equal(t, "10.99", stored.Fields["total"])
	assert.Equal(t, "2024-02-02", stored.Fields["date"])
}

func TestProposedTokenRoundTrip(t *testing.T) {
	fields := models.Fields{"order_id": "X1", "date": "2024-01-01", "total": "10.99"}

	token, err := EncodeProposed(fields)
	require.NoError(t, err)

	decoded, err := DecodeProposed(token)
	require.NoError(t, err)
	assert.Equal(t, fields, decoded)

	_, err = DecodeProposed("%%%")
	assert.Error(t, err)
}

func TestReconcileDoesNotDiffCollected(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()

	fields := models.Fields{"order_id": "X1", "date": "2024-01-01", "total": "9.99"}
	_, err := e.Reconcile(ctx, fields, "")
	require.NoError(t, err)

	stored, err := s.FindByOrderID(ctx, "X1")
	require.NoError(t, err)
	stored.Collected = true
	_, err = s.Update(ctx, stored)
	require.NoError(t, err)

	outcome, err := e.Reconcile(ctx, fields, "")
	require.NoError(t, err)
	assert.Equal(t, StateIdentical, outcome.State, "collected flag must never appear in a diff")
}
