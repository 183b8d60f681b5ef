package migration

import "sort"

// Sort returns a new slice of migrations ordered by filename, comparing bytes.
// Filenames are expected to carry their sequence (e.g. a zero-padded numeric
// prefix); nothing else influences the order.
func Sort(migrations []Migration) []Migration {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Filename < sorted[j].Filename
	})

	return sorted
}

// Filenames returns the filenames of migrations in their current order.
func Filenames(migrations []Migration) []string {
	names := make([]string, len(migrations))
	for i, m := range migrations {
		names[i] = m.Filename
	}

	return names
}
