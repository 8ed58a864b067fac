package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed *.sql
var files embed.FS

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

type Migration struct {
	Name string
	SQL  string
}

// Load returns the migrations for direction ordered by version. Down
// migrations run newest first.
func Load(direction Direction) ([]Migration, error) {
	if direction != Up && direction != Down {
		return nil, fmt.Errorf("unknown migration direction %q", direction)
	}

	names, err := fs.Glob(files, "*."+string(direction)+".sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read migration files: %w", err)
	}

	sort.Slice(names, func(i, j int) bool {
		vi := strings.Split(names[i], "_")[0]
		vj := strings.Split(names[j], "_")[0]
		if direction == Down {
			return vi > vj
		}
		return vi < vj
	})

	migrations := make([]Migration, 0, len(names))
	for _, name := range names {
		data, err := files.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		migrations = append(migrations, Migration{Name: name, SQL: string(data)})
	}
	return migrations, nil
}
