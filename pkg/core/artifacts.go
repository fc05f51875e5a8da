// Package core provides the execution model types for shopcheck.
package core

// Attachment represents a debug artifact captured during step execution
type Attachment struct {
	Name        string `json:"name"`           // Descriptive name: screenshot, page_text
	ContentType string `json:"contentType"`    // MIME type: image/png, text/plain
	Path        string `json:"path,omitempty"` // File path relative to output directory
	Body        []byte `json:"-"`              // In-memory content (not serialized to JSON)
}

// Common attachment names
const (
	AttachmentScreenshot = "screenshot"
)

// Common content types
const (
	ContentTypePNG = "image/png"
)

// NewScreenshotAttachment creates a screenshot attachment
func NewScreenshotAttachment(path string, data []byte) Attachment {
	return Attachment{
		Name:        AttachmentScreenshot,
		ContentType: ContentTypePNG,
		Path:        path,
		Body:        data,
	}
}

// ArtifactConfig controls when artifacts are captured
type ArtifactConfig struct {
	ScreenshotOnFailure bool `yaml:"screenshotOnFailure" json:"screenshotOnFailure"` // Default: true
	ScreenshotOnSuccess bool `yaml:"screenshotOnSuccess" json:"screenshotOnSuccess"` // Default: false
}

// DefaultArtifactConfig returns sensible defaults for artifact capture
func DefaultArtifactConfig() ArtifactConfig {
	return ArtifactConfig{
		ScreenshotOnFailure: true,
		ScreenshotOnSuccess: false,
	}
}

// ShouldCapture returns true if a screenshot should be captured for the given status
func (c ArtifactConfig) ShouldCapture(status StepStatus) bool {
	switch status {
	case StatusFailed:
		return c.ScreenshotOnFailure
	case StatusPassed:
		return c.ScreenshotOnSuccess
	default:
		return false
	}
}
