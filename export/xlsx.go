// Package export renders loan history as a spreadsheet.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"Gin_postgres_redis_asset_loan/models"
)

const SheetName = "Loans"

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const timeLayout = "02/01/2006 15:04"

type column struct {
	title string
	width float64
	value func(l *models.Loan, loc *time.Location) string
}

var columns = []column{
	{"Loan Date", 18, func(l *models.Loan, loc *time.Location) string { return l.LoanDate.In(loc).Format(timeLayout) }},
	{"Borrower", 20, func(l *models.Loan, _ *time.Location) string { return l.BorrowerName }},
	{"Phone", 15, func(l *models.Loan, _ *time.Location) string { return deref(l.BorrowerPhone) }},
	{"Third Party", 12, func(l *models.Loan, _ *time.Location) string { return yesNo(l.IsThirdParty) }},
	{"Organisation", 25, func(l *models.Loan, _ *time.Location) string { return deref(l.ThirdPartyName) }},
	{"Third Party Address", 30, func(l *models.Loan, _ *time.Location) string { return deref(l.ThirdPartyAddress) }},
	{"Asset", 25, func(l *models.Loan, _ *time.Location) string {
		if l.Asset == nil {
			return ""
		}
		return l.Asset.Name
	}},
	{"Asset Code", 15, func(l *models.Loan, _ *time.Location) string {
		if l.Asset == nil {
			return ""
		}
		return l.Asset.Code
	}},
	{"Category", 15, func(l *models.Loan, _ *time.Location) string {
		if l.Asset == nil || l.Asset.Category == nil {
			return ""
		}
		return l.Asset.Category.Name
	}},
	{"Office", 20, func(l *models.Loan, _ *time.Location) string {
		if l.Asset == nil || l.Asset.Office == nil {
			return ""
		}
		return l.Asset.Office.Name
	}},
	{"Recorded By", 20, func(l *models.Loan, _ *time.Location) string {
		if l.User == nil {
			return ""
		}
		return l.User.FullName
	}},
	{"Status", 12, func(l *models.Loan, _ *time.Location) string { return string(l.Status) }},
	{"Return Date", 18, func(l *models.Loan, loc *time.Location) string { return formatTime(l.ReturnDate, loc) }},
	{"Actual Return Date", 18, func(l *models.Loan, loc *time.Location) string { return formatTime(l.ActualReturnDate, loc) }},
	{"Purpose", 25, func(l *models.Loan, _ *time.Location) string { return deref(l.Purpose) }},
	{"Notes", 25, func(l *models.Loan, _ *time.Location) string { return deref(l.Notes) }},
}

// FileName is the attachment name for an export made at now.
func FileName(now time.Time) string {
	return fmt.Sprintf("loans_%s.xlsx", now.Format("2006-01-02"))
}

// WriteLoans writes one header row and one row per loan to w. Timestamps
// are rendered in loc.
func WriteLoans(w io.Writer, loans []models.Loan, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c.title
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, name, name, c.width); err != nil {
			return err
		}
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return err
	}

	for i := range loans {
		row := make([]any, len(columns))
		for j, c := range columns {
			row[j] = c.value(&loans[i], loc)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return err
		}
	}

	_, err = f.WriteTo(w)
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func formatTime(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format(timeLayout)
}
