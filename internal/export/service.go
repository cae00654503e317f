package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fintrack-labs/loandocs/internal/parse"
	"github.com/fintrack-labs/loandocs/internal/repository"
)

// Service is a tiny façade over the applications repository that produces
// XLSX bytes for exports.
type Service struct {
	apps   repository.ApplicationRepository
	logger *slog.Logger
}

func NewService(apps repository.ApplicationRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{apps: apps, logger: logger}
}

// ExportApplicationsXLSX returns an XLSX workbook (as bytes) listing every
// application with its extracted fields flattened into columns.
func (s *Service) ExportApplicationsXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	apps, err := s.apps.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Applications"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Created",
		"Applicant",
		"Address",
		"Monthly Income",
		"Employer",
		"Employment (months)",
		"Loan Amount",
		"Status",
		"Processing",
		"OCR Confidence",
		"Verified",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, a := range apps {
		var data parse.ExtractedApplicationData
		if len(a.ExtractedJSON) > 0 {
			_ = json.Unmarshal(a.ExtractedJSON, &data)
		}

		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, a.CreatedAt.UTC().Format("2006-01-02"))
		write(2, truncate(a.ApplicantName, 60))
		write(3, truncate(formatAddress(data.Address), 120))
		write(4, data.IncomeDetails.MonthlyIncome)
		write(5, truncate(data.IncomeDetails.EmployerName, 60))
		write(6, data.IncomeDetails.EmploymentDuration)
		write(7, data.LoanAmount)
		write(8, a.Status)
		write(9, a.ProcessingStatus)
		if a.OCRConfidence != nil {
			write(10, *a.OCRConfidence)
		} else {
			write(10, "")
		}
		write(11, a.IsManuallyVerified)

		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 12) // date
	_ = f.SetColWidth(sheet, "B", "B", 24) // applicant
	_ = f.SetColWidth(sheet, "C", "C", 48) // address
	_ = f.SetColWidth(sheet, "D", "G", 16) // amounts
	_ = f.SetColWidth(sheet, "H", "I", 14) // statuses

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(apps),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func formatAddress(a parse.Address) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Street, a.City, a.State, a.ZipCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
