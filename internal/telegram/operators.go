package telegram

import "sort"

// Operators is the set of Telegram users allowed to run operator commands
// and receiving admin alerts. It is fixed at construction.
type Operators struct {
	ids map[int64]struct{}
}

func NewOperators(ids []int64) *Operators {
	o := &Operators{ids: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		o.ids[id] = struct{}{}
	}
	return o
}

// IsOperator reports whether userID is an operator.
func (o *Operators) IsOperator(userID int64) bool {
	_, ok := o.ids[userID]
	return ok
}

// IDs returns operator IDs in ascending order.
func (o *Operators) IDs() []int64 {
	out := make([]int64, 0, len(o.ids))
	for id := range o.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
