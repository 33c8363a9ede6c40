package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

func encodeLines(lines []CartLine) ([]byte, error) {
	if lines == nil {
		lines = []CartLine{}
	}
	return json.Marshal(lines)
}

func encodeWishlist(entries []WishlistEntry) ([]byte, error) {
	if entries == nil {
		entries = []WishlistEntry{}
	}
	return json.Marshal(entries)
}

// normalizeLines drops lines without an id or with quantity < 1 and merges
// duplicate ids by summing quantities, keeping the first line's position.
func normalizeLines(in []CartLine) (out []CartLine, changed bool) {
	out = make([]CartLine, 0, len(in))
	index := make(map[string]int, len(in))
	for _, line := range in {
		line.ID = strings.TrimSpace(line.ID)
		if line.ID == "" || line.Quantity < 1 {
			changed = true
			continue
		}
		if i, ok := index[line.ID]; ok {
			out[i].Quantity += line.Quantity
			changed = true
			continue
		}
		index[line.ID] = len(out)
		out = append(out, line)
	}
	return out, changed
}

// normalizeWishlist drops entries without an id and keeps the first of any duplicates.
func normalizeWishlist(in []WishlistEntry) (out []WishlistEntry, changed bool) {
	out = make([]WishlistEntry, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, entry := range in {
		entry.ID = strings.TrimSpace(entry.ID)
		if entry.ID == "" {
			changed = true
			continue
		}
		if _, ok := seen[entry.ID]; ok {
			changed = true
			continue
		}
		seen[entry.ID] = struct{}{}
		out = append(out, entry)
	}
	return out, changed
}

// loadState reads one slot and decodes it into dst. A miss is reported as
// (false, nil); read and decode failures are returned for the caller to log.
func loadState(ctx context.Context, slot Slot, key string, dst any) (bool, error) {
	raw, err := slot.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrSlotMiss) {
			return false, nil
		}
		return false, fmt.Errorf("reading %s: %w", key, err)
	}
	if len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}
