// Package export renders appointment reports.
package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Viishveesh/mediconnect/internal/model"
)

// AppointmentLister supplies a doctor's full appointment history.
type AppointmentLister interface {
	ListAppointments(ctx context.Context, doctorID string) ([]model.Appointment, error)
}

var columns = []string{"ID", "Date", "Time", "Patient", "Patient Email", "Status", "Booked At"}

// Exporter writes xlsx appointment reports.
type Exporter struct {
	lister AppointmentLister
	now    func() time.Time
}

// NewExporter creates an appointment exporter.
func NewExporter(lister AppointmentLister) *Exporter {
	return &Exporter{lister: lister, now: time.Now}
}

// WriteReport renders all of a doctor's appointments as a spreadsheet.
func (e *Exporter) WriteReport(ctx context.Context, doctorID string, w io.Writer) error {
	appointments, err := e.lister.ListAppointments(ctx, doctorID)
	if err != nil {
		return fmt.Errorf("list appointments: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Appointments"
	f.SetSheetName("Sheet1", sheet)

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		start, _ := excelize.CoordinatesToCellName(1, 1)
		end, _ := excelize.CoordinatesToCellName(len(columns), 1)
		_ = f.SetCellStyle(sheet, start, end, style)
	}

	now := e.now()
	for i, a := range appointments {
		row := []any{
			a.ID,
			a.Date,
			a.Time,
			a.PatientName,
			a.PatientEmail,
			string(a.Status(now)),
			a.BookedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		for j, val := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return err
			}
		}
	}

	return f.Write(w)
}
