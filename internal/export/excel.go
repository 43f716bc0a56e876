package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/maxaizer/vacancy-matcher/internal/entities"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet    = "Summary"
	candidatesSheet = "Candidates"
	breakdownSheet  = "Breakdown"
)

// MatchReport is the content of an exported match results workbook.
type MatchReport struct {
	Vacancy        entities.Vacancy
	Requirements   []entities.Requirement
	Results        []entities.MatchResult
	CandidateNames map[int]string
}

// WriteMatchReport renders the persisted results of a vacancy as an XLSX workbook.
func WriteMatchReport(w io.Writer, report MatchReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(candidatesSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(breakdownSheet); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err = writeSummary(f, report, headerStyle); err != nil {
		return fmt.Errorf("failed to write summary sheet: %w", err)
	}
	if err = writeCandidates(f, report, headerStyle); err != nil {
		return fmt.Errorf("failed to write candidates sheet: %w", err)
	}
	if err = writeBreakdown(f, report, headerStyle); err != nil {
		return fmt.Errorf("failed to write breakdown sheet: %w", err)
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeSummary(f *excelize.File, report MatchReport, headerStyle int) error {
	if err := f.SetColWidth(summarySheet, "A", "A", 25); err != nil {
		return err
	}
	if err := f.SetColWidth(summarySheet, "B", "B", 60); err != nil {
		return err
	}

	rows := [][]any{
		{"Match Report", ""},
		{"Vacancy ID", report.Vacancy.ID},
		{"Job Title", report.Vacancy.Title},
		{"Client", report.Vacancy.ClientName},
		{"Location", report.Vacancy.Location},
		{"Requirements", len(report.Requirements)},
		{"Candidates", len(report.Results)},
		{"Generated", time.Now().UTC().Format("2006-01-02 15:04:05")},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SetCellStyle(summarySheet, "A1", "B1", headerStyle)
}

func writeCandidates(f *excelize.File, report MatchReport, headerStyle int) error {
	header := []any{"Rank", "Candidate ID", "Name", "Overall Score", "Similarity", "Matched", "Missing",
		"Reasoning", "Evaluation Version", "Last Evaluated"}
	if err := writeHeader(f, candidatesSheet, header, headerStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(candidatesSheet, "F", "H", 40); err != nil {
		return err
	}

	for i, result := range report.Results {
		row := []any{
			i + 1,
			result.CandidateID,
			report.CandidateNames[result.CandidateID],
			result.OverallScore,
			result.Score,
			strings.Join(result.MatchedRequirements, ", "),
			strings.Join(result.MissingRequirements, ", "),
			result.Reasoning,
			result.EvaluationVersion,
			result.LastEvaluatedAt.Format(time.RFC3339),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(candidatesSheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeBreakdown(f *excelize.File, report MatchReport, headerStyle int) error {
	header := []any{"Candidate ID", "Requirement", "Type", "Required", "Priority", "Matched", "Evidence"}
	if err := writeHeader(f, breakdownSheet, header, headerStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(breakdownSheet, "G", "G", 60); err != nil {
		return err
	}

	rowNum := 2
	for _, result := range report.Results {
		for _, match := range result.RequirementBreakdown {
			row := []any{
				result.CandidateID,
				match.Requirement,
				string(match.Type),
				yesNo(match.IsRequired),
				match.Priority.String(),
				yesNo(match.Matched),
				match.Evidence,
			}
			cell, _ := excelize.CoordinatesToCellName(1, rowNum)
			if err := f.SetSheetRow(breakdownSheet, cell, &row); err != nil {
				return err
			}
			rowNum++
		}
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, header []any, style int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	return f.SetCellStyle(sheet, "A1", last, style)
}

func yesNo(value bool) string {
	if value {
		return "Yes"
	}
	return "No"
}
