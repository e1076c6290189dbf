package storage

import (
	"fmt"
	"strings"
	"sync"
)

// Purpose selects the object layout for an upload.
type Purpose string

const (
	// PurposeLabelPDF is a generated label PDF: exports/labels/{templateID|adhoc}/{exportID}/{file}.
	PurposeLabelPDF Purpose = "label-pdf"
	// PurposeImportSource is an uploaded CSV kept for audit: imports/csv/{importID}/{file}.
	PurposeImportSource Purpose = "import-source"
)

// AdhocTemplateSegment replaces the template id for PDFs printed from raw HTML.
const AdhocTemplateSegment = "adhoc"

// PathParams carries the identifiers a PathBuilder may need.
type PathParams struct {
	TemplateID string
	ExportID   string
	ImportID   string
	FileName   string
}

type PathBuilder func(PathParams) (string, error)

var (
	buildersMu sync.RWMutex
	builders   = map[Purpose]PathBuilder{
		PurposeLabelPDF:     buildLabelPDFPath,
		PurposeImportSource: buildImportSourcePath,
	}
)

// RegisterPathBuilder installs or, with a nil builder, removes the layout for purpose.
func RegisterPathBuilder(purpose Purpose, builder PathBuilder) {
	buildersMu.Lock()
	defer buildersMu.Unlock()
	if builder == nil {
		delete(builders, purpose)
		return
	}
	builders[purpose] = builder
}

// BuildObjectPath returns the object name for purpose.
func BuildObjectPath(purpose Purpose, params PathParams) (string, error) {
	buildersMu.RLock()
	builder, ok := builders[purpose]
	buildersMu.RUnlock()
	if !ok {
		return "", fmt.Errorf("storage: unsupported purpose %q", purpose)
	}
	return builder(params)
}

func buildLabelPDFPath(params PathParams) (string, error) {
	templateID := strings.TrimSpace(params.TemplateID)
	if templateID == "" {
		templateID = AdhocTemplateSegment
	}
	templateID, err := validateSegment("templateID", templateID)
	if err != nil {
		return "", err
	}
	exportID, err := validateSegment("exportID", params.ExportID)
	if err != nil {
		return "", err
	}
	fileName, err := validateSegment("fileName", params.FileName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("exports/labels/%s/%s/%s", templateID, exportID, fileName), nil
}

func buildImportSourcePath(params PathParams) (string, error) {
	importID, err := validateSegment("importID", params.ImportID)
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(params.FileName)
	if name == "" {
		name = "upload.csv"
	}
	fileName, err := validateSegment("fileName", name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("imports/csv/%s/%s", importID, fileName), nil
}

func validateSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return "", fmt.Errorf("storage: %s is required", name)
	case strings.ContainsAny(value, "/\\"):
		return "", fmt.Errorf("storage: %s contains path separators", name)
	case strings.Contains(value, ".."):
		return "", fmt.Errorf("storage: %s contains a traversal sequence", name)
	}
	return value, nil
}
