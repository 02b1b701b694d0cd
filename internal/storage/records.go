package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rohankatakam/ownerscope/internal/models"
)

// recordRow is the flat table form of a ChangeRecord; list columns hold JSON arrays
type recordRow struct {
	ID        int64      `db:"id"`
	RepoID    string     `db:"repo_id"`
	FilePaths string     `db:"file_paths"`
	Approvers string     `db:"approvers"`
	Author    string     `db:"author"`
	Additions int        `db:"additions"`
	Deletions int        `db:"deletions"`
	Title     string     `db:"title"`
	CreatedAt time.Time  `db:"created_at"`
	MergedAt  *time.Time `db:"merged_at"`
}

func toRow(r *models.ChangeRecord) (*recordRow, error) {
	files, err := json.Marshal(nonNil(r.FilePaths))
	if err != nil {
		return nil, fmt.Errorf("encode file paths of %d: %w", r.ID, err)
	}
	approvers, err := json.Marshal(nonNil(r.Approvers))
	if err != nil {
		return nil, fmt.Errorf("encode approvers of %d: %w", r.ID, err)
	}
	return &recordRow{
		ID:        r.ID,
		RepoID:    r.RepoID,
		FilePaths: string(files),
		Approvers: string(approvers),
		Author:    r.Author,
		Additions: r.Additions,
		Deletions: r.Deletions,
		Title:     r.Title,
		CreatedAt: r.CreatedAt.UTC(),
		MergedAt:  r.MergedAt,
	}, nil
}

func (row *recordRow) toRecord() (*models.ChangeRecord, error) {
	r := &models.ChangeRecord{
		ID:        row.ID,
		RepoID:    row.RepoID,
		Author:    row.Author,
		Additions: row.Additions,
		Deletions: row.Deletions,
		Title:     row.Title,
		CreatedAt: row.CreatedAt.UTC(),
		MergedAt:  row.MergedAt,
	}
	if err := json.Unmarshal([]byte(row.FilePaths), &r.FilePaths); err != nil {
		return nil, fmt.Errorf("decode file paths of %d: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.Approvers), &r.Approvers); err != nil {
		return nil, fmt.Errorf("decode approvers of %d: %w", row.ID, err)
	}
	return r, nil
}

func rowsToRecords(rows []recordRow) ([]*models.ChangeRecord, error) {
	out := make([]*models.ChangeRecord, 0, len(rows))
	for i := range rows {
		r, err := rows[i].toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
