package dispatch

import (
	"fmt"
	"strings"

	"github.com/keshon/botcrew/internal/command"
)

// Validate runs the one-time consistency check over the concatenated command
// table of all managers. It must pass before the agent accepts traffic: every
// alias must be canonical lowercase, and any two prototypes sharing an alias
// must have disjoint arity intervals so arity alone disambiguates them.
// Pairwise O(n²) is fine; the table is small and fixed at startup.
func Validate(managers []Manager) error {
	var protos []command.Prototype
	for _, mgr := range managers {
		protos = append(protos, mgr.CommandPrototypes()...)
	}

	var problems []string
	for _, p := range protos {
		for _, name := range p.Names {
			if name != strings.ToLower(name) {
				problems = append(problems, fmt.Sprintf("alias %q of %s is not lowercase", name, p.ID()))
			}
		}
	}

	for i := 0; i < len(protos); i++ {
		for j := i + 1; j < len(protos); j++ {
			l, r := protos[i], protos[j]
			if !aliasesOverlap(l, r) {
				continue
			}
			if intervalsOverlap(l.MinArgs, l.MaxArgs, r.MinArgs, r.MaxArgs) {
				problems = append(problems, fmt.Sprintf(
					"%q and %q share an alias with overlapping arity intervals [%d,%d] and [%d,%d]",
					l.AliasString(), r.AliasString(), l.MinArgs, l.MaxArgs, r.MinArgs, r.MaxArgs))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("command table invalid:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}

func aliasesOverlap(l, r command.Prototype) bool {
	for _, name := range l.Names {
		if r.HasName(name) {
			return true
		}
	}
	return false
}

// intervalsOverlap reports whether [lMin,lMax] and [rMin,rMax] intersect.
func intervalsOverlap(lMin, lMax, rMin, rMax int) bool {
	return lMin <= rMax && lMax >= rMin
}
