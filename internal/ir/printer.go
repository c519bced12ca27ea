package ir

import (
	"fmt"
	"strings"
)

// PrintFunction renders the finished IR of one function as deterministic
// text: per block its id, role flags, accesses, SSA statements and
// terminator. The CLI --ssa flag and tests consume this form.
func PrintFunction(fn *Function) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "function %s [%s]", fn.Name, fn.Visibility)
	if len(fn.Params) > 0 {
		params := make([]string, len(fn.Params))
		for i, p := range fn.Params {
			if p.Type != "" {
				params[i] = p.Type + " " + p.Name
			} else {
				params[i] = p.Name
			}
		}
		fmt.Fprintf(&sb, "(%s)", strings.Join(params, ", "))
	}
	sb.WriteString("\n")

	if fn.Err != nil {
		fmt.Fprintf(&sb, "  error: %v\n", fn.Err)
		return sb.String()
	}

	for _, block := range fn.Blocks {
		fmt.Fprintf(&sb, "  %s%s:\n", block.ID, roleSuffix(block))
		if reads := block.Accesses.ReadList(); len(reads) > 0 {
			fmt.Fprintf(&sb, "    reads:  %s\n", strings.Join(reads, ", "))
		}
		if writes := block.Accesses.WriteList(); len(writes) > 0 {
			fmt.Fprintf(&sb, "    writes: %s\n", strings.Join(writes, ", "))
		}
		for _, stmt := range block.SSAStatements {
			fmt.Fprintf(&sb, "    %s\n", stmt)
		}
		fmt.Fprintf(&sb, "    -> %s\n", block.Terminator)
	}

	if len(fn.Calls) > 0 {
		sb.WriteString("  calls:\n")
		for _, call := range fn.Calls {
			fmt.Fprintf(&sb, "    %s [%s] @ %d:%d\n", call.Name, call.Kind, call.Location.Line, call.Location.Column)
		}
	}
	return sb.String()
}

func roleSuffix(block *BasicBlock) string {
	var roles []string
	if block.IsLoopInit {
		roles = append(roles, "loop_init")
	}
	if block.IsLoopHeader {
		roles = append(roles, "loop_header")
	}
	if block.IsLoopBody {
		roles = append(roles, "loop_body")
	}
	if block.IsLoopIncrement {
		roles = append(roles, "loop_increment")
	}
	if block.IsLoopExit {
		roles = append(roles, "loop_exit")
	}
	if block.HasExternalCallEffects {
		kinds := make([]string, len(block.ExternalCallKinds))
		for i, k := range block.ExternalCallKinds {
			kinds[i] = string(k)
		}
		roles = append(roles, "external_call_effects("+strings.Join(kinds, ",")+")")
	}
	if len(roles) == 0 {
		return ""
	}
	return " (" + strings.Join(roles, ", ") + ")"
}
