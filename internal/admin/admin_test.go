package admin

import (
	"errors"
	"testing"

	"classtrade/internal/roster"
	"classtrade/internal/validate"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuestInputNormalize(t *testing.T) {
	in := GuestInput{Name: " 김민수 ", Phone: "010-1234-5678", School: " 한빛중 ", Grade: 2}
	require.NoError(t, in.normalize())
	assert.Equal(t, "김민수", in.Name)
	assert.Equal(t, "01012345678", in.Phone)
	assert.Equal(t, "한빛중", in.School)

	bad := GuestInput{Name: "A", Phone: "12345", Grade: 2}
	err := bad.normalize()
	var verr *validate.Error
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "phone")

	bad = GuestInput{Name: "  ", Phone: "01012345678", Grade: 13}
	err = bad.normalize()
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "grade")
}

func TestStockInputNormalize(t *testing.T) {
	in := StockInput{Name: " Orbit ", MarketCountry: " us "}
	in.normalize()
	assert.Equal(t, "Orbit", in.Name)
	assert.Equal(t, "US", in.MarketCountry)

	in = StockInput{Name: "Local"}
	in.normalize()
	assert.Equal(t, "KR", in.MarketCountry)
	require.NoError(t, validate.Struct(in))

	in = StockInput{Name: "Nowhere", MarketCountry: "zz"}
	in.normalize()
	require.Error(t, validate.Struct(in))
}

func TestClassInputValidation(t *testing.T) {
	require.NoError(t, validate.Struct(ClassInput{ClientID: 1, Name: "A", TotalDays: 5, StartingBalance: 100_000}))

	err := validate.Struct(ClassInput{ClientID: 0, Name: "", TotalDays: 0, DailyBenefit: -1})
	var verr *validate.Error
	require.True(t, errors.As(err, &verr))
	for _, f := range []string{"client_id", "name", "total_days", "daily_benefit"} {
		assert.Contains(t, verr.Fields, f)
	}
}

func TestUniqueIDs(t *testing.T) {
	assert.Equal(t, []int64{1, 3, 7}, uniqueIDs([]int64{7, 3, 7, 1, 3}))
	assert.Equal(t, []int64{}, uniqueIDs(nil))
}

func TestWriteErrMapping(t *testing.T) {
	assert.ErrorIs(t, writeErr(pgx.ErrNoRows, "stock"), ErrNotFound)
	assert.ErrorIs(t, writeErr(&pgconn.PgError{Code: "23505"}, "stock"), ErrConflict)
	assert.ErrorIs(t, writeErr(&pgconn.PgError{Code: "23503", ConstraintName: "managers_client_id_fkey"}, "manager"), ErrNotFound)
	assert.ErrorIs(t, deleteErr(&pgconn.PgError{Code: "23503"}, "client"), ErrInUse)
	assert.NoError(t, writeErr(nil, "x"))
	assert.Equal(t, "stock not found", missing("stock").Error())
}

func TestRowMessageHidesInfrastructureErrors(t *testing.T) {
	assert.Equal(t, "could not create student", rowMessage(errors.New("conn reset")))
	assert.Equal(t, ErrDuplicatePhone.Error(), rowMessage(ErrDuplicatePhone))
	assert.Contains(t, rowMessage(validate.Field("phone", "bad phone")), "bad phone")
}

func TestMergeRejects(t *testing.T) {
	out := BulkResult{Created: 2, Failed: 1, Errors: []RowError{{Row: 5, Message: "dup"}}}
	merged := MergeRejects(out, []roster.RowError{{Line: 2, Message: "phone"}, {Line: 9, Message: "grade"}})
	assert.Equal(t, 2, merged.Created)
	assert.Equal(t, 3, merged.Failed)
	rows := []int{merged.Errors[0].Row, merged.Errors[1].Row, merged.Errors[2].Row}
	assert.Equal(t, []int{2, 5, 9}, rows)
}

func TestCoverage(t *testing.T) {
	days := Coverage(3, 4, map[int]int{1: 2, 3: 1}, map[int]int{1: 4, 2: 3})
	require.Len(t, days, 3)
	assert.Equal(t, DayCoverage{Day: 1, NewsCount: 2, Priced: 4, Universe: 4}, days[0])
	assert.Equal(t, DayCoverage{Day: 2, NewsCount: 0, Priced: 3, Universe: 4}, days[1])
	assert.Equal(t, DayCoverage{Day: 3, NewsCount: 1, Priced: 0, Universe: 4}, days[2])
}

func TestValidStatus(t *testing.T) {
	assert.True(t, validStatus("setting"))
	assert.True(t, validStatus("active"))
	assert.True(t, validStatus("ended"))
	assert.False(t, validStatus("paused"))
}
