package plugin

import "publisher/internal/tree"

// TaskFailure is one failing task. A nil Err means the task failed without
// raising, for example a validation that returned false.
type TaskFailure struct {
	Task *tree.Task
	Err  error
}

// ItemFailures groups the failing tasks of one item.
type ItemFailures struct {
	Item     *tree.Item
	Failures []TaskFailure
}

// GroupByItem groups failures by the item their task belongs to, keeping the
// order in which each item first failed.
func GroupByItem(failures []TaskFailure) []ItemFailures {
	var out []ItemFailures
	index := map[*tree.Item]int{}
	for _, f := range failures {
		item := f.Task.Item()
		i, ok := index[item]
		if !ok {
			i = len(out)
			index[item] = i
			out = append(out, ItemFailures{Item: item})
		}
		out[i].Failures = append(out[i].Failures, f)
	}
	return out
}

// Verdict is a post_validate decision.
type Verdict int

const (
	// Abstain leaves the validation outcome unchanged.
	Abstain Verdict = iota
	// Approve is recorded but cannot turn failures into a pass.
	Approve
	// Veto turns an otherwise passing validation into a failure.
	Veto
)

func (v Verdict) String() string {
	switch v {
	case Approve:
		return "approve"
	case Veto:
		return "veto"
	default:
		return "abstain"
	}
}
