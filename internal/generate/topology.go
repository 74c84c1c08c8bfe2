package generate

import (
	"sort"

	"github.com/uvilor/dbm-merge/internal/model"
)

// sortTablesByDependency orders tables so that every table follows the tables
// it references through foreign keys. Kahn's algorithm with sorted queues
// keeps the output deterministic; a cycle falls back to plain name order.
func sortTablesByDependency(tables []*model.Table) []*model.Table {
	byName := make(map[string]*model.Table, len(tables))
	names := make([]string, 0, len(tables))
	for _, table := range tables {
		byName[table.Name] = table
		names = append(names, table.Name)
	}
	sort.Strings(names)

	inDegree := make(map[string]int, len(names))
	adjacent := make(map[string][]string, len(names))
	for _, name := range names {
		inDegree[name] = 0
	}
	for _, name := range names {
		table := byName[name]
		for _, fkName := range table.ForeignKeyNames() {
			referenced := table.ForeignKeys[fkName].ReferencedTable
			if _, ok := byName[referenced]; ok && referenced != name {
				adjacent[referenced] = append(adjacent[referenced], name)
				inDegree[name]++
			}
		}
	}

	var queue, order []string
	for _, name := range names {
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		neighbors := adjacent[current]
		sort.Strings(neighbors)
		for _, neighbor := range neighbors {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
				sort.Strings(queue)
			}
		}
	}

	if len(order) != len(names) {
		order = names
	}

	out := make([]*model.Table, len(order))
	for i, name := range order {
		out[i] = byName[name]
	}
	return out
}

// reverseTables returns the slice in reverse order; drops run opposite to the
// creation dependency order.
func reverseTables(tables []*model.Table) []*model.Table {
	out := make([]*model.Table, len(tables))
	for i, table := range tables {
		out[len(tables)-1-i] = table
	}
	return out
}
