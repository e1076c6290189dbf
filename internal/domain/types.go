package domain

import (
	"strings"
	"time"
)

// AttributeType enumerates how an attribute value is meant to be presented on a label.
type AttributeType string

const (
	AttributeTypeText    AttributeType = "text"
	AttributeTypeURL     AttributeType = "url"
	AttributeTypeQRCode  AttributeType = "qrcode"
	AttributeTypeBarcode AttributeType = "barcode"
)

const (
	// MinAttributePriority is the lowest priority an attribute definition may carry.
	MinAttributePriority = 1
	// MaxAttributePriority is the highest priority an attribute definition may carry.
	MaxAttributePriority = 100
	// DefaultAttributePriority applies when a definition is created without a priority.
	DefaultAttributePriority = 50
)

// AttributeTypes lists the supported attribute types in display order.
func AttributeTypes() []AttributeType {
	return []AttributeType{AttributeTypeText, AttributeTypeURL, AttributeTypeQRCode, AttributeTypeBarcode}
}

// Valid reports whether the type is one of the supported attribute types.
func (t AttributeType) Valid() bool {
	switch t {
	case AttributeTypeText, AttributeTypeURL, AttributeTypeQRCode, AttributeTypeBarcode:
		return true
	default:
		return false
	}
}

// ParseAttributeType normalises raw input into an AttributeType.
func ParseAttributeType(raw string) (AttributeType, bool) {
	t := AttributeType(strings.ToLower(strings.TrimSpace(raw)))
	return t, t.Valid()
}

// Attribute defines a product attribute known to the catalog. Name is unique; Label is the display
// string products are keyed by and may be shared by several definitions.
type Attribute struct {
	ID        string
	Name      string
	Label     string
	Type      AttributeType
	Required  bool
	Priority  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Product holds the values printed on a label. Attributes is keyed by attribute label.
type Product struct {
	ID         string
	Name       string
	Attributes map[string]string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Value returns the attribute value stored under label.
func (p Product) Value(label string) (string, bool) {
	if p.Attributes == nil {
		return "", false
	}
	v, ok := p.Attributes[label]
	return v, ok
}

// LabelTemplate is an HTML document containing placeholders and loop markers.
type LabelTemplate struct {
	ID        string
	Name      string
	HTML      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LabelExport records a generated PDF archived to object storage.
type LabelExport struct {
	ID         string
	TemplateID string
	ProductID  string
	Filename   string
	Bucket     string
	Object     string
	SizeBytes  int64
	CreatedAt  time.Time
}

// URI returns the gs:// location of the export.
func (e LabelExport) URI() string {
	if e.Bucket == "" || e.Object == "" {
		return ""
	}
	return "gs://" + e.Bucket + "/" + e.Object
}

// Label event types published to the label topic.
const (
	EventLabelGenerated   = "label.generated"
	EventProductsImported = "products.imported"
)

// LabelEvent notifies downstream consumers (print queues, audit) that labels or products changed.
type LabelEvent struct {
	Type       string            `json:"type"`
	ID         string            `json:"id"`
	TemplateID string            `json:"templateId,omitempty"`
	ProductID  string            `json:"productId,omitempty"`
	ExportURI  string            `json:"exportUri,omitempty"`
	Count      int               `json:"count,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but service remains running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the service or a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}
