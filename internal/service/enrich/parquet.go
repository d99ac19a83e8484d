package enrich

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kapu/ghostwriter-go/internal/domain"
	"github.com/parquet-go/parquet-go"
)

// WriteRows writes the enriched table as a single Parquet file, replacing any
// previous snapshot at path.
func WriteRows(path string, rows []domain.SongRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := parquet.WriteFile(tmp, rows); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write parquet %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("finalize parquet %s: %w", path, err)
	}
	return nil
}

// ReadRows loads a snapshot written by WriteRows.
func ReadRows(path string) ([]domain.SongRow, error) {
	rows, err := parquet.ReadFile[domain.SongRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	return rows, nil
}
