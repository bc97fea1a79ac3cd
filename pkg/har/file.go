package har

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// New returns an empty archive stamped with this tool as creator.
func New() *Archive {
	return &Archive{
		Log: Log{
			Version: Version,
			Creator: Creator{Name: CreatorName, Version: CreatorVersion},
			Pages:   []Page{},
			Entries: []Entry{},
		},
	}
}

// Marshal encodes the archive as indented JSON.
func Marshal(a *Archive) ([]byte, error) {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling archive: %w", err)
	}
	return data, nil
}

// Save writes the archive to path, compressing it when the extension asks for it.
func Save(a *Archive, path string) error {
	data, err := Marshal(a)
	if err != nil {
		return err
	}
	return WriteFile(path, data)
}

// WriteJSON writes v as indented JSON to path.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	return WriteFile(path, data)
}

// WriteFile creates missing parent directories and replaces path atomically.
// Compression is applied based on the file extension.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	encoded, err := Compress(data, path)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}
