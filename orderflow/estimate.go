package orderflow

// DefaultPrepMinutes applies to menu items without a preparation time.
const DefaultPrepMinutes = 15

// PrepLine is the kitchen view of an order line.
type PrepLine struct {
	PrepMinutes int
	Quantity    int
}

func prepOf(l PrepLine) int {
	if l.PrepMinutes <= 0 {
		return DefaultPrepMinutes
	}
	return l.PrepMinutes
}

// OrderEstimate is the longest line: prep time times quantity.
func OrderEstimate(lines []PrepLine) int {
	longest := 0
	for _, l := range lines {
		qty := l.Quantity
		if qty < 1 {
			qty = 1
		}
		if m := prepOf(l) * qty; m > longest {
			longest = m
		}
	}
	return longest
}

// AverageWait averages prep time across open kitchen lines, DefaultPrepMinutes when idle.
func AverageWait(lines []PrepLine) int {
	if len(lines) == 0 {
		return DefaultPrepMinutes
	}
	sum := 0
	for _, l := range lines {
		sum += prepOf(l)
	}
	return (sum + len(lines)/2) / len(lines)
}
