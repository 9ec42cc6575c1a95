package recorder_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greennav/greennav/internal/recorder"
)

func sampleRecord() recorder.Record {
	return recorder.New(recorder.Record{
		Latitude:     28.6139,
		Longitude:    77.2090,
		FeatureNames: []string{"Latitude", "Longitude"},
		Features:     []float64{28.6139, 77.2090},
		PredictedAQI: 142.37,
		Model:        "linear",
	})
}

func TestNew(t *testing.T) {
	rec := sampleRecord()
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	fixed := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	kept := recorder.New(recorder.Record{ID: "abc", CreatedAt: fixed})
	assert.Equal(t, "abc", kept.ID)
	assert.Equal(t, fixed, kept.CreatedAt)
}

func TestEncodeDecode(t *testing.T) {
	rec := sampleRecord()

	data, err := recorder.Encode(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"predicted_aqi":142.37`)

	decoded, err := recorder.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, decoded.ID)
	assert.Equal(t, rec.Features, decoded.Features)
	assert.True(t, rec.CreatedAt.Equal(decoded.CreatedAt))
}

func TestDecode_Invalid(t *testing.T) {
	_, err := recorder.Decode([]byte(`{not json`))
	assert.ErrorIs(t, err, recorder.ErrInvalidRecord)

	_, err = recorder.Decode([]byte(`{"id":"x","feature_names":["a","b"],"features":[1]}`))
	assert.ErrorIs(t, err, recorder.ErrInvalidRecord)

	_, err = recorder.Decode([]byte(`{"feature_names":[],"features":[]}`))
	assert.ErrorIs(t, err, recorder.ErrInvalidRecord)
}

func TestMemory(t *testing.T) {
	mem := recorder.NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.Record(ctx, sampleRecord()))
	require.NoError(t, mem.Record(ctx, sampleRecord()))
	assert.Error(t, mem.Record(ctx, recorder.Record{}))

	records := mem.Records()
	assert.Len(t, records, 2)
	assert.NotEqual(t, records[0].ID, records[1].ID)
}

func TestNop(t *testing.T) {
	assert.NoError(t, recorder.Nop{}.Record(context.Background(), recorder.Record{}))
}

type fakeExecer struct {
	sql  string
	args []any
	err  error
}

func (f *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql = sql
	f.args = args
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func TestPostgres_Record(t *testing.T) {
	db := &fakeExecer{}
	rec := sampleRecord()

	err := recorder.NewPostgres(db).Record(context.Background(), rec)
	require.NoError(t, err)

	assert.True(t, strings.Contains(db.sql, "INSERT INTO aqi_predictions"))
	assert.Contains(t, db.sql, "ON CONFLICT (id) DO NOTHING")
	require.Len(t, db.args, 10)
	assert.Equal(t, rec.ID, db.args[0])
	assert.Equal(t, 142.37, db.args[5])
	assert.Equal(t, "linear", db.args[8])
}

func TestPostgres_Record_Errors(t *testing.T) {
	db := &fakeExecer{err: errors.New("connection reset")}

	err := recorder.NewPostgres(db).Record(context.Background(), sampleRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	err = recorder.NewPostgres(db).Record(context.Background(), recorder.Record{})
	assert.ErrorIs(t, err, recorder.ErrInvalidRecord)
}
