package lower

import "github.com/roach88/tinypy/internal/ir"

// CarriedVariables returns the distinct names assigned directly in body,
// in first-discovery order. Nested loops and functions are not scanned.
func CarriedVariables(body *ir.Block) []string {
	if body == nil {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, n := range body.Nodes {
		if n.Kind != ir.KindAssign {
			continue
		}
		name := n.StringAttr("var_name")
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
