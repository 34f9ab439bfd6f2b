package ingest

import "fmt"

// Policy decides which data is lost when pushes outpace processing.
type Policy int

const (
	// Ring keeps the newest push and evicts the oldest queued chunks.
	Ring Policy = iota
	// Drop rejects the newest push whole.
	Drop
)

func (p Policy) String() string {
	switch p {
	case Ring:
		return "ring"
	case Drop:
		return "drop"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy parses the String form of a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "ring", "":
		return Ring, nil
	case "drop":
		return Drop, nil
	default:
		return 0, fmt.Errorf("unknown overload policy %q (want ring or drop)", s)
	}
}
