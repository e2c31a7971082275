// Copyright © 2025 tjj
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package commands

import (
	"fmt"
	"strings"

	"github.com/china-tjj/dyncast"
	"github.com/china-tjj/dyncast/internal/hierarchy"
	"github.com/spf13/cobra"
)

func (c *CLI) newLayoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "layout <type>",
		Short:     "Print the sub-objects of a built-in type",
		Args:      cobra.ExactArgs(1),
		ValidArgs: hierarchy.Names(),
		RunE: func(_ *cobra.Command, args []string) error {
			typ, err := hierarchy.Lookup(args[0])
			if err != nil {
				return fmt.Errorf("%w (known: %s)", err, strings.Join(hierarchy.Names(), ", "))
			}
			subs, err := dyncast.Describe(typ)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(c.stdout, "%s (%d bytes)\n", typ, typ.Size())
			for i, sub := range subs {
				kind := ""
				if sub.Virtual {
					kind = " virtual"
				}
				bases := make([]string, len(sub.Bases))
				for j, b := range sub.Bases {
					bases[j] = fmt.Sprintf("#%d", b)
				}
				_, _ = fmt.Fprintf(c.stdout, "#%-3d %-6d %s%s", i, sub.Offset, sub.Type, kind)
				if len(bases) > 0 {
					_, _ = fmt.Fprintf(c.stdout, " -> %s", strings.Join(bases, " "))
				}
				_, _ = fmt.Fprintln(c.stdout)
			}
			return nil
		},
	}
}
