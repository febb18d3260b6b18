package reporting

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	apperrors "finpulse/internal/errors"
)

// ReportFormat tags the JSON document layout
const ReportFormat = "finpulse_report_v1"

type jsonDocument struct {
	Format string `json:"format"`
	*Bundle
}

// WriteJSON writes b as an indented JSON document
func (r *Reporter) WriteJSON(ctx context.Context, path string, b *Bundle) error {
	r.logger.InfoContext(ctx, "Writing JSON report", slog.String("path", path))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError("failed to create directory for JSON report", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return apperrors.NewStorageError("failed to create JSON report", err).WithContext("path", path)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(jsonDocument{Format: ReportFormat, Bundle: b}); err != nil {
		return apperrors.NewStorageError("failed to encode JSON report", err).WithContext("path", path)
	}
	return nil
}
