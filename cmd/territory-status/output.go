package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

func writeJSONLine(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return withCode(exitDB, fmt.Errorf("json encode: %w", err))
	}
	return nil
}

// writeManifest stores the full report as import_manifest_<ts>_<run>.json
// and returns its path.
func writeManifest(outputDir, runID string, v any) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", withCode(exitDB, fmt.Errorf("mkdir %s: %w", outputDir, err))
	}
	ts := time.Now().UTC().Format("20060102T150405Z")
	path := filepath.Join(outputDir, fmt.Sprintf("import_manifest_%s_%s.json", ts, runID))

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", withCode(exitDB, fmt.Errorf("json marshal: %w", err))
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", withCode(exitDB, fmt.Errorf("write %s: %w", path, err))
	}
	return path, nil
}
