package r1cs

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// String renders the combination as "c·w_i + ..."; an empty one is "0".
func (lc LinearCombination) String() string {
	if lc.Len() == 0 {
		return "0"
	}
	var sb strings.Builder
	for i, t := range lc.terms {
		if i > 0 {
			sb.WriteString(" + ")
		}
		fmt.Fprintf(&sb, "%s*w%d", t.Coeff, t.Wire)
	}
	return sb.String()
}

func (c Constraint) String() string {
	return fmt.Sprintf("[%s] * [%s] - [%s] = 0", c.A, c.B, c.C)
}

// WriteText prints the loaded constraints of c, one per line, followed by a
// line per wire label when the map is loaded. limit caps the constraints
// printed; zero prints all of them.
func WriteText(w io.Writer, c *Circuit, limit int) error {
	bw := bufio.NewWriter(w)
	h := c.Header
	fmt.Fprintf(bw, "# prime %s (%s)\n", h.Prime, h.CurveName())
	fmt.Fprintf(bw, "# wires %d outputs %d public %d private %d labels %d constraints %d\n",
		h.NVars, h.NOutputs, h.NPubInputs, h.NPrvInputs, h.NLabels, h.NConstraints)

	if c.Constraints != nil {
		for i, con := range c.Constraints.All() {
			if limit > 0 && i >= limit {
				fmt.Fprintf(bw, "... %d more\n", c.Constraints.Len()-limit)
				break
			}
			fmt.Fprintf(bw, "%d: %s\n", i, con)
		}
		if err := c.Constraints.Err(); err != nil {
			return err
		}
	}
	if c.Map != nil {
		for i, label := range c.Map.All() {
			fmt.Fprintf(bw, "w%d -> label %d\n", i, label)
		}
		if err := c.Map.Err(); err != nil {
			return err
		}
	}
	return bw.Flush()
}
