package postgres

import (
	"fmt"

	"github.com/avasilkov/knowledge-retrieval/internal/core/domain"
)

// appendFilterConditions pushes the optional allowlist and connector
// predicates into the index query itself. Narrowing at the index level keeps
// fused rank positions honest; post-filtering would bias them.
func appendFilterConditions(conds []string, args []any, filter domain.IndexFilter, docIDColumn, connectorColumn string) ([]string, []any) {
	if len(filter.DocumentIDs) > 0 {
		args = append(args, filter.DocumentIDs)
		conds = append(conds, fmt.Sprintf("%s = ANY($%d)", docIDColumn, len(args)))
	}
	if len(filter.Connectors) > 0 {
		connectors := make([]string, 0, len(filter.Connectors))
		for _, c := range filter.Connectors {
			connectors = append(connectors, string(c))
		}
		args = append(args, connectors)
		conds = append(conds, fmt.Sprintf("%s = ANY($%d)", connectorColumn, len(args)))
	}
	return conds, args
}
