package bgen

import "fmt"

// Layout is the versioned variant structure named by bits 2-5 of the header
// flags.
type Layout uint32

const (
	Layout1 Layout = 1
	Layout2 Layout = 2
)

func (l Layout) String() string {
	switch l {
	case Layout1:
		return "Layout1"
	case Layout2:
		return "Layout2"

	default:
		return fmt.Sprintf("Layout(%d)", uint32(l))
	}
}
