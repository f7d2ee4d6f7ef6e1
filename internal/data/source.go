package data

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Source reads a structural document by file name.
type Source interface {
	ReadFile(ctx context.Context, name string) ([]byte, error)
}

// DirSource reads structural documents from a local directory.
type DirSource struct {
	Dir string
}

// ReadFile reads name from the directory.
func (s DirSource) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filepath.Join(s.Dir, name))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return b, nil
}

// Load reads the three structural documents from src and parses them.
func Load(ctx context.Context, src Source) (*StructuralData, error) {
	files := [3][]byte{}
	for i, name := range []string{TabsFile, CategoriesFile, TabCategoryFile} {
		b, err := src.ReadFile(ctx, name)
		if err != nil {
			return nil, err
		}
		files[i] = b
	}
	return Parse(files[0], files[1], files[2])
}
