package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/cases"
	"golang.org/x/text/transform"

	"github.com/hansupo/shad-label/internal/domain"
	"github.com/hansupo/shad-label/internal/platform/storage"
	"github.com/hansupo/shad-label/internal/repositories"
)

const (
	msgCSVEmpty         = "CSV file is empty"
	msgCSVNoRows        = "CSV file has no data rows"
	msgCSVInvalid       = "CSV file could not be parsed"
	msgCSVUnknownColumn = "Name column not found in CSV headers"
	csvImportSource     = "csv"
)

var defaultNameColumns = []string{"name", "product name", "nimi"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type CSVImportServiceDeps struct {
	Attributes repositories.AttributeRepository
	Products   ProductService
	// Sources archives the raw upload when set.
	Sources     ObjectStore
	IDGenerator func() string
	Logger      Logger
}

type csvImportService struct {
	attributes repositories.AttributeRepository
	products   ProductService
	sources    ObjectStore
	newID      func() string
	logger     Logger
	strip      *bluemonday.Policy
}

var _ CSVImportService = (*csvImportService)(nil)

func NewCSVImportService(deps CSVImportServiceDeps) (CSVImportService, error) {
	if deps.Attributes == nil || deps.Products == nil {
		return nil, errors.New("csv import service: attribute repository and product service are required")
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &csvImportService{
		attributes: deps.Attributes,
		products:   deps.Products,
		sources:    deps.Sources,
		newID:      idGen,
		logger:     logger,
		strip:      bluemonday.StrictPolicy(),
	}, nil
}

func (s *csvImportService) Preview(ctx context.Context, src io.Reader, opts CSVOptions) (CSVPreview, error) {
	raw, err := io.ReadAll(src)
	if err != nil {
		return CSVPreview{}, fmt.Errorf("read csv upload: %w", err)
	}
	return s.preview(ctx, raw, opts)
}

// Import parses the upload, stores the products and archives the raw file when an object store is
// configured.
func (s *csvImportService) Import(ctx context.Context, src io.Reader, opts CSVOptions) (CSVImportResult, error) {
	raw, err := io.ReadAll(src)
	if err != nil {
		return CSVImportResult{}, fmt.Errorf("read csv upload: %w", err)
	}
	preview, err := s.preview(ctx, raw, opts)
	if err != nil {
		return CSVImportResult{}, err
	}
	if len(preview.Products) == 0 {
		return CSVImportResult{}, withMessage(ErrCSVInvalidInput, msgCSVNoRows)
	}
	imported, err := s.products.Import(ctx, ImportProductsCommand{Products: preview.Products, Source: csvImportSource})
	if err != nil {
		return CSVImportResult{}, err
	}
	result := CSVImportResult{Preview: preview, Count: imported.Count}
	result.Source = s.archive(ctx, raw, opts)
	return result, nil
}

func (s *csvImportService) preview(ctx context.Context, raw []byte, opts CSVOptions) (CSVPreview, error) {
	text, encoding, err := decodeUpload(raw, opts.ContentType)
	if err != nil {
		return CSVPreview{}, withMessage(ErrCSVInvalidInput, msgCSVInvalid)
	}
	if strings.TrimSpace(text) == "" {
		return CSVPreview{}, withMessage(ErrCSVInvalidInput, msgCSVEmpty)
	}

	delimiter := DetectDelimiter(text)
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return CSVPreview{}, fmt.Errorf("%w: %v", withMessage(ErrCSVInvalidInput, msgCSVInvalid), err)
		}
		if blankRecord(record) {
			continue
		}
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
		rows = append(rows, record)
	}
	if len(rows) == 0 {
		return CSVPreview{}, withMessage(ErrCSVInvalidInput, msgCSVEmpty)
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(s.strip.Sanitize(h))
	}
	nameIdx, err := s.nameColumn(headers, opts.NameColumn)
	if err != nil {
		return CSVPreview{}, err
	}

	catalog, err := s.attributes.List(ctx)
	if err != nil {
		return CSVPreview{}, translateRepoError(err, nil, nil)
	}
	mapping := s.mapHeaders(headers, nameIdx, catalog)

	preview := CSVPreview{
		Delimiter:  string(delimiter),
		Encoding:   encoding,
		Headers:    headers,
		NameColumn: headers[nameIdx],
		Mapping:    mapping,
		Products:   make([]ProductInput, 0, len(rows)-1),
	}
	for _, row := range rows[1:] {
		if nameIdx >= len(row) || row[nameIdx] == "" {
			preview.Skipped++
			continue
		}
		attrs := make(map[string]string, len(headers))
		for i, header := range headers {
			if i == nameIdx || i >= len(row) || header == "" || row[i] == "" {
				continue
			}
			attrs[mapping[header]] = row[i]
		}
		preview.Products = append(preview.Products, ProductInput{Name: row[nameIdx], Attributes: attrs})
	}
	s.logger(ctx, "csv.parsed", map[string]any{
		"rows":      len(preview.Products),
		"skipped":   preview.Skipped,
		"delimiter": preview.Delimiter,
		"encoding":  encoding,
	})
	return preview, nil
}

// nameColumn resolves the product-name column: the requested header, else the first conventional
// name header, else column zero.
func (s *csvImportService) nameColumn(headers []string, requested string) (int, error) {
	if requested = strings.TrimSpace(requested); requested != "" {
		want := foldKey(requested)
		for i, h := range headers {
			if foldKey(h) == want {
				return i, nil
			}
		}
		return 0, withMessage(ErrCSVInvalidInput, msgCSVUnknownColumn)
	}
	for _, candidate := range defaultNameColumns {
		for i, h := range headers {
			if foldKey(h) == candidate {
				return i, nil
			}
		}
	}
	return 0, nil
}

// mapHeaders maps each header to the label of the catalog attribute whose name or label matches it
// case-insensitively. Unmatched headers map to themselves.
func (s *csvImportService) mapHeaders(headers []string, nameIdx int, catalog []domain.Attribute) map[string]string {
	byKey := make(map[string]string, len(catalog)*2)
	for _, attr := range catalog {
		for _, key := range []string{attr.Name, attr.Label} {
			folded := foldKey(strings.TrimSpace(key))
			if _, taken := byKey[folded]; !taken && folded != "" {
				byKey[folded] = attr.Label
			}
		}
	}
	mapping := make(map[string]string, len(headers))
	for i, h := range headers {
		if i == nameIdx || h == "" {
			continue
		}
		if label, ok := byKey[foldKey(h)]; ok {
			mapping[h] = label
			continue
		}
		mapping[h] = h
	}
	return mapping
}

func (s *csvImportService) archive(ctx context.Context, raw []byte, opts CSVOptions) *storage.Object {
	if s.sources == nil {
		return nil
	}
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(opts.FileName), "\\", "/"))
	if name == "." || name == "/" {
		name = ""
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	obj, err := s.sources.Put(ctx, storage.Upload{
		Purpose:     storage.PurposeImportSource,
		Params:      storage.PathParams{ImportID: s.newID(), FileName: name},
		ContentType: "text/csv",
		Data:        raw,
	})
	if err != nil {
		s.logger(ctx, "csv.archive_failed", map[string]any{"error": err.Error()})
		return nil
	}
	return &obj
}

// DetectDelimiter inspects the first line: semicolon when it outnumbers both commas and tabs, tab
// when it outnumbers commas, otherwise comma.
func DetectDelimiter(text string) rune {
	first, _, _ := strings.Cut(text, "\n")
	semicolons := strings.Count(first, ";")
	commas := strings.Count(first, ",")
	tabs := strings.Count(first, "\t")
	switch {
	case semicolons > commas && semicolons > tabs:
		return ';'
	case tabs > commas:
		return '\t'
	default:
		return ','
	}
}

// decodeUpload converts raw to UTF-8 using the declared content type or content sniffing.
func decodeUpload(raw []byte, contentType string) (string, string, error) {
	if bytes.HasPrefix(raw, utf8BOM) {
		return string(raw[len(utf8BOM):]), "utf-8", nil
	}
	enc, name, _ := charset.DetermineEncoding(raw, contentType)
	if name == "utf-8" {
		return string(raw), name, nil
	}
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), enc.NewDecoder()))
	if err != nil {
		return "", name, err
	}
	return string(decoded), name, nil
}

// foldKey case-folds a header for comparison. A Caser must not be shared between goroutines.
func foldKey(value string) string {
	return cases.Fold().String(value)
}

func blankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
