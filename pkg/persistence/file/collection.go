package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dukex/flightline/pkg/persistence"
)

// meta is what a collection needs to know about a stored value.
type meta struct {
	ID         string
	AircraftID string
	CreatedAt  time.Time
}

// collection stores values of T as JSON files under root/<name>/<id>.json.
type collection[T any] struct {
	mu       sync.Mutex
	dir      string
	name     string
	notFound error
	metaOf   func(*T) meta
}

func newCollection[T any](root, name string, notFound error, metaOf func(*T) meta) *collection[T] {
	return &collection[T]{
		dir:      filepath.Join(root, name),
		name:     name,
		notFound: notFound,
		metaOf:   metaOf,
	}
}

// ByID loads the value stored under id.
func (c *collection[T]) ByID(_ context.Context, id string) (*T, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, persistence.NewRecordError("ByID", c.name, id, c.notFound)
	}

	body, err := os.ReadFile(filepath.Join(c.dir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewRecordError("ByID", c.name, id, c.notFound)
		}

		return nil, fmt.Errorf("failed to fetch %s %s: %w", c.name, id, err)
	}

	var value T

	err = json.Unmarshal(body, &value)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s %s: %w", c.name, id, err)
	}

	return &value, nil
}

// All loads every value, oldest first.
func (c *collection[T]) All(ctx context.Context) ([]*T, error) {
	jsonFiles, err := fs.Glob(os.DirFS(c.dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s files: %w", c.name, err)
	}

	values := make([]*T, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		value, err := c.ByID(ctx, strings.TrimSuffix(file, ".json"))
		if err != nil {
			return nil, err
		}

		values = append(values, value)
	}

	sort.SliceStable(values, func(i, j int) bool {
		return c.metaOf(values[i]).CreatedAt.Before(c.metaOf(values[j]).CreatedAt)
	})

	return values, nil
}

// ByAircraft loads every value of an aircraft, oldest first.
func (c *collection[T]) ByAircraft(ctx context.Context, aircraftID string) ([]*T, error) {
	all, err := c.All(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*T, 0)

	for _, v := range all {
		if c.metaOf(v).AircraftID == aircraftID {
			out = append(out, v)
		}
	}

	return out, nil
}

// Save writes value, replacing any previous version.
func (c *collection[T]) Save(_ context.Context, value *T) error {
	id := c.metaOf(value).ID
	if id == "" {
		return fmt.Errorf("failed to save %s: id is empty", c.name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err := os.MkdirAll(c.dir, 0750)
	if err != nil {
		return fmt.Errorf("failed to create %s directory: %w", c.name, err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", c.name, id, err)
	}

	tmp := filepath.Join(c.dir, "."+id+".tmp")

	err = os.WriteFile(tmp, data, 0600)
	if err != nil {
		return persistence.NewRecordError("Save", c.name, id, err)
	}

	err = os.Rename(tmp, filepath.Join(c.dir, id+".json"))
	if err != nil {
		return persistence.NewRecordError("Save", c.name, id, err)
	}

	return nil
}

// Delete removes the value stored under id.
func (c *collection[T]) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := os.Remove(filepath.Join(c.dir, id+".json"))
	if err != nil && os.IsNotExist(err) {
		return persistence.NewRecordError("Delete", c.name, id, c.notFound)
	}

	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", c.name, id, err)
	}

	return nil
}
