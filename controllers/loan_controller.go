// controllers/loan_controller.go
package controllers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"Gin_postgres_redis_asset_loan/access"
	"Gin_postgres_redis_asset_loan/app"
	"Gin_postgres_redis_asset_loan/db"
	"Gin_postgres_redis_asset_loan/export"
	"Gin_postgres_redis_asset_loan/models"
)

type LoanController struct{ *Srv }

func NewLoanController(s *Srv) *LoanController { return &LoanController{Srv: s} }

type createLoanReq struct {
	AssetID           uint       `json:"assetId" binding:"required,gt=0"`
	BorrowerName      string     `json:"borrowerName" binding:"required,max=150"`
	BorrowerPhone     *string    `json:"borrowerPhone" binding:"omitempty,max=30"`
	Purpose           *string    `json:"purpose"`
	ReturnDate        *time.Time `json:"returnDate"`
	IsThirdParty      bool       `json:"isThirdParty"`
	ThirdPartyName    *string    `json:"thirdPartyName" binding:"omitempty,max=200"`
	ThirdPartyAddress *string    `json:"thirdPartyAddress"`
	LoanPhoto         *string    `json:"loanPhoto" binding:"omitempty,max=255"`
}

type returnLoanReq struct {
	Notes       *string `json:"notes"`
	ReturnPhoto *string `json:"returnPhoto" binding:"omitempty,max=255"`
}

// filter reads the shared list/export query; officeId narrows the scope.
func (lc *LoanController) filter(c *gin.Context) (access.Scope, db.LoanFilter, error) {
	var f db.LoanFilter
	office, err := queryUint(c, "officeId")
	if err == nil {
		f.AssetID, err = queryUint(c, "assetId")
	}
	if err == nil {
		f.UserID, err = queryUint(c, "userId")
	}
	if err == nil {
		f.StartDate, err = lc.queryDate(c, "startDate")
	}
	if err == nil {
		f.EndDate, err = lc.queryDate(c, "endDate")
	}
	if err != nil {
		return access.Scope{}, f, err
	}
	if s := models.LoanStatus(c.Query("status")); s != "" {
		if !s.Valid() {
			return access.Scope{}, f, errors.New("status must be one of BORROWED, RETURNED, OVERDUE")
		}
		f.Status = s
	}
	f.Search = c.Query("search")
	return access.ScopeFor(caller(c), office), f, nil
}

// GET /api/loans
func (lc *LoanController) List(c *gin.Context) {
	scope, f, err := lc.filter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	res, err := lc.Repo.ListLoans(c.Request.Context(), scope, f, queryPage(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (lc *LoanController) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	l, err := lc.Repo.GetLoan(c.Request.Context(), access.ScopeFor(caller(c), nil), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"loan": l})
}

// POST /api/loans
func (lc *LoanController) Create(c *gin.Context) {
	var in createLoanReq
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	l, err := lc.Repo.CreateLoan(c.Request.Context(), caller(c), db.LoanInput{
		AssetID:           in.AssetID,
		BorrowerName:      in.BorrowerName,
		BorrowerPhone:     in.BorrowerPhone,
		Purpose:           in.Purpose,
		ReturnDate:        in.ReturnDate,
		IsThirdParty:      in.IsThirdParty,
		ThirdPartyName:    in.ThirdPartyName,
		ThirdPartyAddress: in.ThirdPartyAddress,
		LoanPhoto:         in.LoanPhoto,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"message": "loan created", "loan": l})
}

// PATCH /api/loans/:id/return
func (lc *LoanController) Return(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var in returnLoanReq
	if err := c.ShouldBindJSON(&in); err != nil && !errors.Is(err, io.EOF) {
		bindError(c, err)
		return
	}
	l, err := lc.Repo.ReturnLoan(c.Request.Context(), access.ScopeFor(caller(c), nil), id, db.ReturnInput{
		Notes:       in.Notes,
		ReturnPhoto: in.ReturnPhoto,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"message": "loan returned", "loan": l})
}

// PATCH /api/loans/:id/overdue
func (lc *LoanController) MarkOverdue(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	l, err := lc.Repo.MarkOverdue(c.Request.Context(), access.ScopeFor(caller(c), nil), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"message": "loan marked overdue", "loan": l})
}

// GET /api/loans/export/xlsx
func (lc *LoanController) Export(c *gin.Context) {
	scope, f, err := lc.filter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	loans, err := lc.Repo.ExportLoans(c.Request.Context(), scope, f)
	if err != nil {
		fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteLoans(&buf, loans, lc.Loc); err != nil {
		fail(c, err)
		return
	}
	name := export.FileName(lc.Clock.Now().In(lc.Loc))
	c.Header("Content-Disposition", "attachment; filename="+name)
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}
