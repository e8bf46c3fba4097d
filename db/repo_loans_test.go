package db

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Gin_postgres_redis_asset_loan/access"
	"Gin_postgres_redis_asset_loan/models"
)

func strPtr(s string) *string { return &s }

func TestCreateLoanFlipsAvailability(t *testing.T) {
	f := newFixture(t)

	loan, err := f.repo.CreateLoan(f.ctx, f.caller(f.guard), LoanInput{AssetID: f.a101.ID, BorrowerName: " Budi "})
	require.NoError(t, err)
	assert.Equal(t, models.LoanBorrowed, loan.Status)
	assert.Equal(t, "Budi", loan.BorrowerName)
	assert.True(t, loan.LoanDate.Equal(t0))
	require.NotNil(t, loan.UserID)
	assert.Equal(t, f.guard.ID, *loan.UserID)
	require.NotNil(t, loan.Asset)
	assert.False(t, loan.Asset.IsAvailable)
	assertAvailability(t, f.repo)
}

func TestCreateLoanTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	in := LoanInput{AssetID: f.a101.ID, BorrowerName: "Budi"}

	_, err := f.repo.CreateLoan(f.ctx, f.caller(f.guard), in)
	require.NoError(t, err)

	_, err = f.repo.CreateLoan(f.ctx, f.caller(f.guard), in)
	assert.ErrorIs(t, err, ErrAlreadyBorrowed)
	assert.ErrorIs(t, err, ErrConflict)

	var n int64
	require.NoError(t, f.repo.DB.Model(&models.Loan{}).Where("asset_id = ?", f.a101.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)
	assertAvailability(t, f.repo)
}

func TestCreateLoanConcurrentOnlyOneWins(t *testing.T) {
	f := newFixture(t)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.repo.CreateLoan(f.ctx, f.caller(f.admin), LoanInput{AssetID: f.a201.ID, BorrowerName: "Sari"})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, ErrConflict)
		}
	}
	assert.Equal(t, 1, ok)
	assertAvailability(t, f.repo)
}

func TestCreateLoanInactiveAssetAlwaysFails(t *testing.T) {
	f := newFixture(t)

	_, err := f.repo.UpdateAsset(f.ctx, f.a101.ID, AssetPatch{IsActive: boolPtr(false)})
	require.NoError(t, err)
	_, err = f.repo.CreateLoan(f.ctx, f.caller(f.guard), LoanInput{AssetID: f.a101.ID, BorrowerName: "Budi"})
	assert.ErrorIs(t, err, ErrValidation)

	// Inactive and unavailable still reports inactive.
	require.NoError(t, f.repo.DB.Model(&models.Asset{}).Where("id = ?", f.a101.ID).Update("is_available", false).Error)
	_, err = f.repo.CreateLoan(f.ctx, f.caller(f.admin), LoanInput{AssetID: f.a101.ID, BorrowerName: "Budi"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateLoanGuardOtherOfficeForbidden(t *testing.T) {
	f := newFixture(t)

	_, err := f.repo.CreateLoan(f.ctx, f.caller(f.guard), LoanInput{AssetID: f.a201.ID, BorrowerName: "Budi"})
	assert.ErrorIs(t, err, ErrForbidden)
	assertAvailability(t, f.repo)

	_, err = f.repo.CreateLoan(f.ctx, f.caller(f.guard), LoanInput{AssetID: 9999, BorrowerName: "Budi"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateLoanDropsThirdPartyFieldsUnlessFlagged(t *testing.T) {
	f := newFixture(t)

	l1, err := f.repo.CreateLoan(f.ctx, f.caller(f.admin), LoanInput{
		AssetID: f.a101.ID, BorrowerName: "Budi", ThirdPartyName: strPtr("PT Maju"),
	})
	require.NoError(t, err)
	assert.Nil(t, l1.ThirdPartyName)

	l2, err := f.repo.CreateLoan(f.ctx, f.caller(f.admin), LoanInput{
		AssetID: f.a201.ID, BorrowerName: "Budi", IsThirdParty: true,
		ThirdPartyName: strPtr("PT Maju"), ThirdPartyAddress: strPtr("Jl. Merdeka 1"),
	})
	require.NoError(t, err)
	require.NotNil(t, l2.ThirdPartyName)
	assert.Equal(t, "PT Maju", *l2.ThirdPartyName)
}

func TestReturnLoanTwice(t *testing.T) {
	f := newFixture(t)

	loan, err := f.repo.CreateLoan(f.ctx, f.caller(f.guard), LoanInput{AssetID: f.a101.ID, BorrowerName: "Budi"})
	require.NoError(t, err)

	f.clk.Advance(2 * time.Hour)
	returned, err := f.repo.ReturnLoan(f.ctx, f.scope(f.guard), loan.ID, ReturnInput{Notes: strPtr("ok")})
	require.NoError(t, err)
	assert.Equal(t, models.LoanReturned, returned.Status)
	require.NotNil(t, returned.ActualReturnDate)
	firstReturn := *returned.ActualReturnDate
	assert.True(t, firstReturn.Equal(t0.Add(2*time.Hour)))
	require.NotNil(t, returned.Notes)
	assert.Equal(t, "ok", *returned.Notes)
	assert.True(t, returned.Asset.IsAvailable)
	assertAvailability(t, f.repo)

	f.clk.Advance(time.Hour)
	_, err = f.repo.ReturnLoan(f.ctx, f.scope(f.guard), loan.ID, ReturnInput{Notes: strPtr("again")})
	assert.ErrorIs(t, err, ErrConflict)

	again, err := f.repo.GetLoan(f.ctx, access.Scope{}, loan.ID)
	require.NoError(t, err)
	assert.True(t, again.ActualReturnDate.Equal(firstReturn))
	assert.Equal(t, "ok", *again.Notes)
}

func TestReturnLoanOutOfScopeIsNotFound(t *testing.T) {
	f := newFixture(t)

	loan, err := f.repo.CreateLoan(f.ctx, f.caller(f.other), LoanInput{AssetID: f.a201.ID, BorrowerName: "Sari"})
	require.NoError(t, err)

	_, err = f.repo.ReturnLoan(f.ctx, f.scope(f.guard), loan.ID, ReturnInput{})
	assert.ErrorIs(t, err, ErrNotFound)
	assertAvailability(t, f.repo)
}

func TestMarkOverdueKeepsAssetUnavailable(t *testing.T) {
	f := newFixture(t)

	loan, err := f.repo.CreateLoan(f.ctx, f.caller(f.guard), LoanInput{AssetID: f.a101.ID, BorrowerName: "Budi"})
	require.NoError(t, err)

	overdue, err := f.repo.MarkOverdue(f.ctx, f.scope(f.guard), loan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LoanOverdue, overdue.Status)
	assert.False(t, overdue.Asset.IsAvailable)

	_, err = f.repo.MarkOverdue(f.ctx, f.scope(f.guard), loan.ID)
	assert.ErrorIs(t, err, ErrConflict)

	// OVERDUE cannot be returned.
	_, err = f.repo.ReturnLoan(f.ctx, f.scope(f.guard), loan.ID, ReturnInput{})
	assert.ErrorIs(t, err, ErrConflict)

	// The asset can be re-opened once nothing is BORROWED.
	a, err := f.repo.UpdateAsset(f.ctx, f.a101.ID, AssetPatch{IsAvailable: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, a.IsAvailable)
	assertAvailability(t, f.repo)
}

func TestListLoansScopeAndFilters(t *testing.T) {
	f := newFixture(t)

	_, err := f.repo.CreateLoan(f.ctx, f.caller(f.guard), LoanInput{AssetID: f.a101.ID, BorrowerName: "Budi", Purpose: strPtr("Rapat")})
	require.NoError(t, err)
	f.clk.Advance(24 * time.Hour)
	_, err = f.repo.CreateLoan(f.ctx, f.caller(f.other), LoanInput{AssetID: f.a201.ID, BorrowerName: "Sari"})
	require.NoError(t, err)

	all, err := f.repo.ListLoans(f.ctx, access.Scope{}, LoanFilter{}, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Pagination.Total)
	assert.Equal(t, "Sari", all.Loans[0].BorrowerName, "newest first")

	mine, err := f.repo.ListLoans(f.ctx, f.scope(f.guard), LoanFilter{}, Page{})
	require.NoError(t, err)
	require.Len(t, mine.Loans, 1)
	assert.Equal(t, f.o1.ID, mine.Loans[0].Asset.OfficeID)

	bySearch, err := f.repo.ListLoans(f.ctx, access.Scope{}, LoanFilter{Search: "rapat"}, Page{})
	require.NoError(t, err)
	assert.Len(t, bySearch.Loans, 1)

	byCode, err := f.repo.ListLoans(f.ctx, access.Scope{}, LoanFilter{Search: "a201"}, Page{})
	require.NoError(t, err)
	assert.Len(t, byCode.Loans, 1)

	// The end date covers its whole day.
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	byDate, err := f.repo.ListLoans(f.ctx, access.Scope{}, LoanFilter{StartDate: &day, EndDate: &day}, Page{})
	require.NoError(t, err)
	require.Len(t, byDate.Loans, 1)
	assert.Equal(t, "Budi", byDate.Loans[0].BorrowerName)

	denied, err := f.repo.ListLoans(f.ctx, access.Scope{Deny: true}, LoanFilter{}, Page{})
	require.NoError(t, err)
	assert.Empty(t, denied.Loans)
}

func TestExportLoansInclusiveRange(t *testing.T) {
	f := newFixture(t)

	_, err := f.repo.CreateLoan(f.ctx, f.caller(f.guard), LoanInput{AssetID: f.a101.ID, BorrowerName: "Budi"})
	require.NoError(t, err)

	at := t0
	rows, err := f.repo.ExportLoans(f.ctx, access.Scope{}, LoanFilter{StartDate: &at, EndDate: &at})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	before := t0.Add(-time.Second)
	rows, err = f.repo.ExportLoans(f.ctx, access.Scope{}, LoanFilter{EndDate: &before})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestGetLoanOutOfScope(t *testing.T) {
	f := newFixture(t)

	loan, err := f.repo.CreateLoan(f.ctx, f.caller(f.other), LoanInput{AssetID: f.a201.ID, BorrowerName: "Sari"})
	require.NoError(t, err)

	_, err = f.repo.GetLoan(f.ctx, f.scope(f.guard), loan.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := f.repo.GetLoan(f.ctx, f.scope(f.other), loan.ID)
	require.NoError(t, err)
	assert.Equal(t, "A201", got.Asset.Code)
}

func TestOverdueCandidates(t *testing.T) {
	f := newFixture(t)

	due := t0.Add(time.Hour)
	late, err := f.repo.CreateLoan(f.ctx, f.caller(f.admin), LoanInput{AssetID: f.a101.ID, BorrowerName: "Budi", ReturnDate: &due})
	require.NoError(t, err)
	_, err = f.repo.CreateLoan(f.ctx, f.caller(f.admin), LoanInput{AssetID: f.a201.ID, BorrowerName: "Sari"})
	require.NoError(t, err)

	ids, err := f.repo.OverdueCandidates(f.ctx, t0.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = f.repo.OverdueCandidates(f.ctx, t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []uint{late.ID}, ids)
}
