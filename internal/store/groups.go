package store

import (
	"database/sql"
	"fmt"

	"github.com/reckon-dev/reckon/internal/model"
)

// GroupRepo provides typed access to duplicate groups.
type GroupRepo struct {
	db *DB
}

// Replace atomically regenerates all duplicate groups for one source system.
func (g *GroupRepo) Replace(source string, groups []model.DuplicateGroup) error {
	return g.db.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			DELETE FROM duplicate_groups WHERE source_system = ?`, source); err != nil {
			return fmt.Errorf("clearing duplicate groups for %s: %w", source, err)
		}
		for _, grp := range groups {
			res, err := tx.Exec(`
				INSERT INTO duplicate_groups (source_system, canonical_record, reason_code)
				VALUES (?, ?, ?)`, source, grp.Canonical, grp.ReasonCode)
			if err != nil {
				return fmt.Errorf("inserting duplicate group: %w", err)
			}
			groupID, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("reading group id: %w", err)
			}
			for _, member := range grp.Members {
				if _, err := tx.Exec(`
					INSERT INTO duplicate_members (group_id, member_record)
					VALUES (?, ?)`, groupID, member); err != nil {
					return fmt.Errorf("inserting group member %d: %w", member, err)
				}
			}
		}
		return nil
	})
}

// BySource returns the duplicate groups for one source system.
func (g *GroupRepo) BySource(source string) ([]model.DuplicateGroup, error) {
	return g.selectGroups(`
		SELECT id, canonical_record, reason_code FROM duplicate_groups
		WHERE source_system = ? ORDER BY id`, source)
}

// All returns every duplicate group.
func (g *GroupRepo) All() ([]model.DuplicateGroup, error) {
	return g.selectGroups(`
		SELECT id, canonical_record, reason_code FROM duplicate_groups ORDER BY id`)
}

func (g *GroupRepo) selectGroups(q string, args ...any) ([]model.DuplicateGroup, error) {
	rows, err := g.db.query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying duplicate groups: %w", err)
	}
	defer rows.Close()

	var groups []model.DuplicateGroup
	for rows.Next() {
		var grp model.DuplicateGroup
		if err := rows.Scan(&grp.ID, &grp.Canonical, &grp.ReasonCode); err != nil {
			return nil, fmt.Errorf("scanning duplicate group: %w", err)
		}
		groups = append(groups, grp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range groups {
		members, err := g.members(groups[i].ID)
		if err != nil {
			return nil, err
		}
		groups[i].Members = members
	}
	return groups, nil
}

func (g *GroupRepo) members(groupID int64) ([]int64, error) {
	rows, err := g.db.query(`
		SELECT member_record FROM duplicate_members
		WHERE group_id = ? ORDER BY member_record`, groupID)
	if err != nil {
		return nil, fmt.Errorf("querying group members: %w", err)
	}
	defer rows.Close()

	var members []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning group member: %w", err)
		}
		members = append(members, id)
	}
	return members, rows.Err()
}
