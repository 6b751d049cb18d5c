// Package artifact derives the two review artifacts from a submission: a
// multi-sheet workbook and a categorized archive of the stored documents.
// Both are best-effort; a nil artifact is a normal outcome the dispatcher
// handles, never a pipeline failure.
package artifact

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kiranafin/dsa-onboarding/constants"
	"github.com/kiranafin/dsa-onboarding/internal/schema"
	"github.com/kiranafin/dsa-onboarding/internal/submission"
)

// Artifact is a derived, non-durable output attached to a notification.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// BuildWorkbook renders the review workbook for a submission. Sheet inclusion
// is conditional: a sheet backed by empty data is omitted entirely, not
// emitted blank. Row order follows submission field order.
func BuildWorkbook(sub *submission.Submission, logger *slog.Logger) (*Artifact, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	f := excelize.NewFile()
	sheets := 0

	writeSheet := func(name string, rows [][]any) error {
		if sheets == 0 {
			// excelize seeds every workbook with Sheet1; claim it for the
			// first real sheet instead of leaving it empty.
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return err
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return err
			}
		}
		sheets++
		for i, row := range rows {
			for j, v := range row {
				cell, _ := excelize.CoordinatesToCellName(j+1, i+1)
				_ = f.SetCellValue(name, cell, v)
			}
		}
		_ = f.SetColWidth(name, "A", "A", 28)
		_ = f.SetColWidth(name, "B", "D", 36)
		return nil
	}

	if err := writeSheet("Customer Info", customerRows(sub)); err != nil {
		return nil, fmt.Errorf("customer sheet: %w", err)
	}

	if rows := businessRows(sub); len(rows) > 0 {
		title := "Business Details"
		if sub.PartnerType == constants.KiranaStoreLoan {
			title = "Shop Details"
		}
		if err := writeSheet(title, rows); err != nil {
			return nil, fmt.Errorf("business sheet: %w", err)
		}
	}

	if err := writeSheet("Banking Info", bankingRows(sub)); err != nil {
		return nil, fmt.Errorf("banking sheet: %w", err)
	}

	if len(sub.References) > 0 {
		if err := writeSheet("References", referenceRows(sub)); err != nil {
			return nil, fmt.Errorf("references sheet: %w", err)
		}
	}

	if title, ok := schema.EntitySheet(sub.PartnerType); ok {
		if rows := entityRows(sub); len(rows) > 1 { // header plus at least one row
			if err := writeSheet(title, rows); err != nil {
				return nil, fmt.Errorf("entity sheet: %w", err)
			}
		}
	}

	if err := writeSheet("Document Links", documentRows(sub)); err != nil {
		return nil, fmt.Errorf("document links sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	logger.Info("artifact.workbook.ok",
		"partner_type", sub.PartnerType,
		"sheets", sheets,
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &Artifact{
		Filename:    fmt.Sprintf("onboarding_%s.xlsx", storageSafe(sub.EntityName())),
		ContentType: xlsxContentType,
		Data:        buf.Bytes(),
	}, nil
}

var unsafeRuns = regexp.MustCompile(`[^a-z0-9]+`)

// storageSafe turns an entity name into a filename stem.
func storageSafe(name string) string {
	s := unsafeRuns.ReplaceAllString(strings.ToLower(name), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "submission"
	}
	return s
}

func customerRows(sub *submission.Submission) [][]any {
	rows := [][]any{
		{"Field", "Value"},
		{"Partner Type", string(sub.PartnerType)},
		{"Full Name", sub.FullName},
		{"Mobile", sub.Mobile},
	}
	if sub.Email != "" {
		rows = append(rows, []any{"Email", sub.Email})
	}
	rows = append(rows,
		[]any{"Address", sub.Address},
		[]any{"City", sub.City},
		[]any{"State", sub.State},
		[]any{"Pincode", sub.Pincode},
		[]any{"PAN Number", sub.PANNumber},
		[]any{"Aadhar Number", sub.AadharNumber},
	)
	return rows
}

func businessRows(sub *submission.Submission) [][]any {
	var rows [][]any
	add := func(label, value string) {
		if value != "" {
			rows = append(rows, []any{label, value})
		}
	}
	add("Firm Name", sub.FirmName)
	add("Company Name", sub.CompanyName)
	add("Trust/Society Name", sub.TrustName)
	add("Firm PAN", sub.FirmPANNumber)
	add("CIN", sub.CINNumber)
	add("GST Number", sub.GSTNumber)
	add("Udyam Number", sub.UdyamNumber)
	add("Shop Name", sub.ShopName)
	add("Shop Address", sub.ShopAddress)
	add("Monthly Turnover", sub.MonthlyTurnover)
	add("Loan Amount Requested", sub.LoanAmount)
	if len(rows) == 0 {
		return nil
	}
	return append([][]any{{"Field", "Value"}}, rows...)
}

func bankingRows(sub *submission.Submission) [][]any {
	return [][]any{
		{"Field", "Value"},
		{"Account Holder", sub.AccountHolderName},
		{"Account Number", sub.AccountNumber},
		{"IFSC Code", sub.IFSCCode},
		{"Bank Name", sub.BankName},
	}
}

func referenceRows(sub *submission.Submission) [][]any {
	rows := [][]any{{"Name", "Relation", "Mobile"}}
	for _, ref := range sub.References {
		rows = append(rows, []any{ref.Name, ref.Relation, ref.Mobile})
	}
	return rows
}

// entityRows renders the variant's repeating entities in submission order.
func entityRows(sub *submission.Submission) [][]any {
	switch sub.PartnerType {
	case constants.Partnership:
		rows := [][]any{{"Name", "PAN", "Share %", "Mobile"}}
		for _, p := range sub.Partners {
			rows = append(rows, []any{p.Name, p.PANNumber, p.SharePercent, p.Mobile})
		}
		return rows
	case constants.PrivatePublicLtd:
		rows := [][]any{{"Name", "DIN", "PAN", "Mobile"}}
		for _, d := range sub.Directors {
			rows = append(rows, []any{d.Name, d.DIN, d.PANNumber, d.Mobile})
		}
		return rows
	case constants.TrustSociety:
		rows := [][]any{{"Name", "Designation", "PAN", "Mobile"}}
		for _, tr := range sub.Trustees {
			rows = append(rows, []any{tr.Name, tr.Designation, tr.PANNumber, tr.Mobile})
		}
		return rows
	case constants.KiranaStoreLoan:
		rows := [][]any{{"Lender", "Outstanding", "Monthly EMI"}}
		for _, l := range sub.ExistingLoans {
			rows = append(rows, []any{l.Lender, l.Outstanding, l.MonthlyEMI})
		}
		return rows
	}
	return nil
}

// documentRows enumerates every slot the variant knows about, with upload
// status, so reviewers can see at a glance which optional evidence is absent.
func documentRows(sub *submission.Submission) [][]any {
	rows := [][]any{{"Document", "Status", "Object Path"}}
	appendSlot := func(field schema.DocumentField, required bool) {
		status := "Not Uploaded"
		path := ""
		if asset, ok := sub.Documents[field]; ok && asset.ObjectPath != "" {
			status = "Uploaded"
			path = asset.ObjectPath
		} else if required {
			status = "MISSING (required)"
		}
		rows = append(rows, []any{string(field), status, path})
	}
	for _, field := range schema.RequiredDocuments(sub.PartnerType) {
		appendSlot(field, true)
	}
	for _, field := range schema.OptionalDocuments(sub.PartnerType) {
		appendSlot(field, false)
	}
	return rows
}
