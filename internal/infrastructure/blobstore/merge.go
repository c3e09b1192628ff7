// Package blobstore holds the pieces shared by every snapshot-store
// backend: the single-blob encoding and the merge-on-write rule.
package blobstore

import (
	"encoding/json"
	"fmt"

	"github.com/railsewa/grievance-service/internal/core/domain"
)

// Merge applies the merge-write rule to a freshly read snapshot: every
// record whose ID matches a changed record is replaced in place, new
// records are appended, and deleted IDs are dropped. Whole-record
// replacement, last-writer-wins; no conflict detection.
func Merge(current, changed []domain.Complaint, deletedIDs []string) []domain.Complaint {
	deleted := make(map[string]struct{}, len(deletedIDs))
	for _, id := range deletedIDs {
		deleted[id] = struct{}{}
	}
	replacements := make(map[string]domain.Complaint, len(changed))
	for _, c := range changed {
		replacements[c.ID] = c
	}

	out := make([]domain.Complaint, 0, len(current)+len(changed))
	for _, c := range current {
		if _, gone := deleted[c.ID]; gone {
			continue
		}
		if repl, ok := replacements[c.ID]; ok {
			out = append(out, repl)
			delete(replacements, c.ID)
			continue
		}
		out = append(out, c)
	}
	// Preserve caller order for inserts.
	for _, c := range changed {
		repl, ok := replacements[c.ID]
		if !ok {
			continue
		}
		delete(replacements, c.ID)
		if _, gone := deleted[c.ID]; gone {
			continue
		}
		out = append(out, repl)
	}
	return out
}

// Encode serializes the whole collection as one JSON array.
func Encode(all []domain.Complaint) ([]byte, error) {
	if all == nil {
		all = []domain.Complaint{}
	}
	raw, err := json.Marshal(all)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return raw, nil
}

// Decode parses a serialized snapshot; empty input is an empty collection.
func Decode(raw []byte) ([]domain.Complaint, error) {
	if len(raw) == 0 {
		return []domain.Complaint{}, nil
	}
	var all []domain.Complaint
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if all == nil {
		all = []domain.Complaint{}
	}
	return all, nil
}
