package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/novahq/nova/model"
)

// CreateToolReport persists the outcome of one toolbox run.
func (s *Store) CreateToolReport(r model.ToolReportRecord) (model.ToolReportRecord, error) {
	r.ID = newID()
	r.CreatedAt = time.Now()

	_, err := s.db.Exec(
		`INSERT INTO tool_reports (id, tool_name, status, summary, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.ToolName, r.Status, r.Summary, nullable(r.Details), formatTime(r.CreatedAt))
	if err != nil {
		return model.ToolReportRecord{}, fmt.Errorf("create tool report: %w", err)
	}
	return r, nil
}

// ListToolReports returns up to limit reports, newest first.
func (s *Store) ListToolReports(limit int) ([]model.ToolReportRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, tool_name, status, summary, details, created_at
		 FROM tool_reports ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list tool reports: %w", err)
	}
	defer rows.Close()

	var out []model.ToolReportRecord
	for rows.Next() {
		var r model.ToolReportRecord
		var summary, details sql.NullString
		var created string
		if err := rows.Scan(&r.ID, &r.ToolName, &r.Status, &summary, &details, &created); err != nil {
			return nil, err
		}
		r.Summary = summary.String
		r.Details = details.String
		r.CreatedAt = parseTime(created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteToolReport removes one report.
func (s *Store) DeleteToolReport(id string) error {
	_, err := s.db.Exec(`DELETE FROM tool_reports WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete tool report: %w", err)
	}
	return nil
}

// DeleteAllToolReports removes every report.
func (s *Store) DeleteAllToolReports() error {
	_, err := s.db.Exec(`DELETE FROM tool_reports`)
	if err != nil {
		return fmt.Errorf("delete tool reports: %w", err)
	}
	return nil
}
