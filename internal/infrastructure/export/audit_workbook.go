package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/kyc-review/internal/application/port"
	"github.com/garyjia/kyc-review/internal/domain/entity"
	"github.com/garyjia/kyc-review/internal/domain/workflow"
)

// Sheet names
const (
	SheetApplication = "Application"
	SheetTrail       = "Audit Trail"
)

// trailHeader is the column order of the trail sheet
var trailHeader = []string{
	"Timestamp", "Action", "Actor ID", "Actor Username", "Actor Role", "IP Address",
	"From State", "To State", "Resource", "Resource ID", "Description", "Metadata", "Entry ID",
}

// AuditWorkbook writes an application's audit trail as an .xlsx workbook
type AuditWorkbook struct {
	logger *zap.Logger
}

// NewAuditWorkbook creates a new AuditWorkbook
func NewAuditWorkbook(logger *zap.Logger) *AuditWorkbook {
	return &AuditWorkbook{logger: logger}
}

// Export writes a summary sheet for app and one trail row per entry in chronological order
func (x *AuditWorkbook) Export(w io.Writer, app *entity.Application, entries []*entity.AuditEntry) error {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", SheetApplication); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := file.NewSheet(SheetTrail); err != nil {
		return fmt.Errorf("failed to create trail sheet: %w", err)
	}

	bold, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := x.fillSummary(file, app, bold); err != nil {
		return fmt.Errorf("failed to fill summary: %w", err)
	}
	if err := x.fillTrail(file, entries, bold); err != nil {
		return fmt.Errorf("failed to fill trail: %w", err)
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	x.logger.Info("Audit trail exported",
		zap.String("application_id", app.ID),
		zap.Int("entries", len(entries)))
	return nil
}

func (x *AuditWorkbook) fillSummary(file *excelize.File, app *entity.Application, bold int) error {
	rows := [][]interface{}{
		{"Application ID", app.ID},
		{"Application Number", app.ApplicationNumber},
		{"Applicant", app.FullName()},
		{"CIN", app.CINNumber},
		{"State", string(app.State)},
		{"Risk Level", string(app.RiskLevel)},
		{"Document Score", scoreCell(app.DocumentScore)},
		{"Face Score", scoreCell(app.FaceScore)},
		{"Fraud Score", scoreCell(app.FraudScore)},
		{"Overall Score", scoreCell(app.OverallScore)},
		{"Decision Reason", app.DecisionReason},
		{"Created At", app.CreatedAt.UTC().Format(time.RFC3339)},
		{"Version", app.Version},
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := file.SetSheetRow(SheetApplication, cell, &row); err != nil {
			return fmt.Errorf("failed to set summary row %d: %w", i+1, err)
		}
	}

	last := fmt.Sprintf("A%d", len(rows))
	if err := file.SetCellStyle(SheetApplication, "A1", last, bold); err != nil {
		return err
	}
	return file.SetColWidth(SheetApplication, "A", "B", 24)
}

func (x *AuditWorkbook) fillTrail(file *excelize.File, entries []*entity.AuditEntry, bold int) error {
	header := make([]interface{}, len(trailHeader))
	for i, h := range trailHeader {
		header[i] = h
	}
	if err := file.SetSheetRow(SheetTrail, "A1", &header); err != nil {
		return fmt.Errorf("failed to set trail header: %w", err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(trailHeader))
	if err != nil {
		return err
	}
	if err := file.SetCellStyle(SheetTrail, "A1", lastCol+"1", bold); err != nil {
		return err
	}

	ordered := append([]*entity.AuditEntry(nil), entries...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	for i, e := range ordered {
		meta := ""
		if len(e.Metadata) > 0 {
			raw, err := json.Marshal(e.Metadata)
			if err != nil {
				return fmt.Errorf("failed to encode metadata of %s: %w", e.ID, err)
			}
			meta = string(raw)
		}

		row := []interface{}{
			e.Timestamp.UTC().Format(time.RFC3339Nano),
			e.Action,
			e.ActorID,
			e.ActorUsername,
			string(e.ActorRole),
			e.IPAddress,
			string(e.FromState),
			string(e.ToState),
			e.Resource,
			e.ResourceID,
			e.Description,
			meta,
			e.ID,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := file.SetSheetRow(SheetTrail, cell, &row); err != nil {
			return fmt.Errorf("failed to set trail row %d: %w", i+2, err)
		}
	}

	return file.SetPanes(SheetTrail, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// ReadTrail parses the trail sheet of a workbook produced by Export.
// ApplicationID and RetentionUntil are not part of the sheet and stay empty.
func ReadTrail(r io.Reader) ([]*entity.AuditEntry, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer file.Close()

	rows, err := file.GetRows(SheetTrail)
	if err != nil {
		return nil, fmt.Errorf("failed to read trail sheet: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("trail sheet is empty")
	}

	var entries []*entity.AuditEntry
	for i, row := range rows[1:] {
		// GetRows trims trailing empty cells
		for len(row) < len(trailHeader) {
			row = append(row, "")
		}

		ts, err := time.Parse(time.RFC3339Nano, row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid timestamp %q: %w", i+2, row[0], err)
		}

		e := &entity.AuditEntry{
			Timestamp:     ts,
			Action:        row[1],
			ActorID:       row[2],
			ActorUsername: row[3],
			ActorRole:     workflow.Role(row[4]),
			IPAddress:     row[5],
			FromState:     workflow.State(row[6]),
			ToState:       workflow.State(row[7]),
			Resource:      row[8],
			ResourceID:    row[9],
			Description:   row[10],
			ID:            row[12],
		}
		if row[11] != "" {
			if err := json.Unmarshal([]byte(row[11]), &e.Metadata); err != nil {
				return nil, fmt.Errorf("row %d: invalid metadata: %w", i+2, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func scoreCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 4, 64)
}

var _ port.AuditExporter = (*AuditWorkbook)(nil)
