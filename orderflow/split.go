package orderflow

import (
	"math"
	"sort"
	"strings"

	"github.com/yeremiapane/fuji-pos/apperrors"
)

// SplitGroup is one destination of a split.
type SplitGroup struct {
	Name         string `json:"name"`
	ItemIDs      []uint `json:"item_ids"`
	TableID      *uint  `json:"table_id,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
}

// Split validation failures. Each is a validation error.
var (
	ErrSplitNoGroups      = apperrors.Validation("at least one split group is required")
	ErrSplitEmptyGroup    = apperrors.Validation("no split group may be empty")
	ErrSplitDuplicateItem = apperrors.Validation("an item may appear in only one group")
	ErrSplitUnknownItem   = apperrors.Validation("split references items not on the order")
	ErrSplitUnassigned    = apperrors.Validation("no items must be unassigned")
)

// ValidateSplit checks that groups form an exact cover of itemIDs.
func ValidateSplit(itemIDs []uint, groups []SplitGroup) error {
	if len(groups) == 0 {
		return ErrSplitNoGroups
	}

	original := make(map[uint]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		original[id] = struct{}{}
	}

	seen := make(map[uint]struct{}, len(itemIDs))
	var duplicates, unknown []uint
	for i, g := range groups {
		if len(g.ItemIDs) == 0 {
			name := strings.TrimSpace(g.Name)
			if name == "" {
				return ErrSplitEmptyGroup.WithDetails(map[string]int{"group_index": i})
			}
			return ErrSplitEmptyGroup.WithDetails(map[string]string{"group": name})
		}
		for _, id := range g.ItemIDs {
			if _, ok := original[id]; !ok {
				unknown = append(unknown, id)
				continue
			}
			if _, dup := seen[id]; dup {
				duplicates = append(duplicates, id)
				continue
			}
			seen[id] = struct{}{}
		}
	}
	if len(unknown) > 0 {
		return ErrSplitUnknownItem.WithDetails(sortedIDs(unknown))
	}
	if len(duplicates) > 0 {
		return ErrSplitDuplicateItem.WithDetails(sortedIDs(duplicates))
	}

	var missing []uint
	for id := range original {
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return ErrSplitUnassigned.WithDetails(sortedIDs(missing))
	}
	return nil
}

func sortedIDs(ids []uint) []uint {
	out := append([]uint(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ProrateDiscount spreads amount across weights in whole cents. Each share gets
// the floor of its exact portion and leftover cents go to the largest
// remainders, later weights first on ties. Shares are never negative and always
// sum to the rounded amount.
func ProrateDiscount(amount float64, weights []float64) []float64 {
	shares := make([]float64, len(weights))
	cents := int64(math.Round(amount * 100))
	if cents <= 0 || len(weights) == 0 {
		return shares
	}
	units := make([]int64, len(weights))
	var total int64
	for i, w := range weights {
		if w > 0 {
			units[i] = int64(math.Round(w * 100))
			total += units[i]
		}
	}
	if total <= 0 {
		return shares
	}

	alloc := make([]int64, len(weights))
	rest := make([]int64, len(weights))
	order := make([]int, len(weights))
	remaining := cents
	for i, u := range units {
		alloc[i] = cents * u / total
		rest[i] = cents * u % total
		remaining -= alloc[i]
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := rest[order[a]], rest[order[b]]
		if ra != rb {
			return ra > rb
		}
		return order[a] > order[b]
	})
	for _, i := range order {
		if remaining == 0 {
			break
		}
		if units[i] == 0 {
			continue
		}
		alloc[i]++
		remaining--
	}
	for i, c := range alloc {
		shares[i] = float64(c) / 100
	}
	return shares
}
