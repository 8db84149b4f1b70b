package hub

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// maxConfigFileSize caps how large a hub config file may be, following
// the teacher's internal/config.LoadTuningConfig size guard.
const maxConfigFileSize = 1 * 1024 * 1024

// RecordingConfig is the JSON-loadable, all-optional-pointer-fields
// description of one Recording's startup parameters (spec.md §2
// "RunConfig"). Fields left unset at load time keep their
// GetXxx-method defaults, so partial configs are safe to hand-edit.
type RecordingConfig struct {
	Name              *string           `json:"name,omitempty"`
	Kind              *string           `json:"kind,omitempty"`
	IntervalSeconds   *float64          `json:"interval_seconds,omitempty"`
	Saving            *bool             `json:"saving,omitempty"`
	Active            *bool             `json:"active,omitempty"`
	Continuous        *bool             `json:"continuous,omitempty"`
	ImageExt          *string           `json:"image_ext,omitempty"`
	InitialProperties map[string]string `json:"initial_properties,omitempty"`
}

// RecordingKindNumeric and RecordingKindImage are the two Recording
// shapes a RecordingConfig can select (spec.md §3 Measurement: "a
// vector of numeric values" or "an image payload").
const (
	RecordingKindNumeric = "numeric"
	RecordingKindImage   = "image"
)

// GetKind returns the configured Recording kind, defaulting to
// "numeric".
func (c *RecordingConfig) GetKind() string {
	if c == nil || c.Kind == nil || *c.Kind == "" {
		return RecordingKindNumeric
	}
	return *c.Kind
}

// GetImageExt returns the configured image file extension, or "" if
// unset, in which case the caller applies recording.DefaultImageExt
// based on the configured continuous flag (spec.md §6).
func (c *RecordingConfig) GetImageExt() string {
	if c == nil || c.ImageExt == nil {
		return ""
	}
	return *c.ImageExt
}

// GetName returns the configured sensor name, or "" if unset; the
// composition root treats an empty name as a configuration error.
func (c *RecordingConfig) GetName() string {
	if c == nil || c.Name == nil {
		return ""
	}
	return *c.Name
}

// GetInterval returns the configured tick interval, defaulting to one
// second.
func (c *RecordingConfig) GetInterval() time.Duration {
	if c == nil || c.IntervalSeconds == nil {
		return time.Second
	}
	return time.Duration(*c.IntervalSeconds * float64(time.Second))
}

// GetSaving returns the configured initial saving flag, defaulting to
// true.
func (c *RecordingConfig) GetSaving() bool {
	if c == nil || c.Saving == nil {
		return true
	}
	return *c.Saving
}

// GetActive returns the configured initial active flag, defaulting to
// true.
func (c *RecordingConfig) GetActive() bool {
	if c == nil || c.Active == nil {
		return true
	}
	return *c.Active
}

// GetContinuous returns the configured continuous flag, defaulting to
// false.
func (c *RecordingConfig) GetContinuous() bool {
	if c == nil || c.Continuous == nil {
		return false
	}
	return *c.Continuous
}

// HubConfig is the JSON-loadable description of a Record Hub's startup
// parameters: the shared base path, save cadence, request-wait
// timeout, metadata filename, and the per-Recording configs
// (spec.md §2, §4.6).
type HubConfig struct {
	BasePath         *string           `json:"base_path,omitempty"`
	DtSaveSeconds    *float64          `json:"dt_save_seconds,omitempty"`
	DtRequestSeconds *float64          `json:"dt_request_seconds,omitempty"`
	MetadataFilename *string           `json:"metadata_filename,omitempty"`
	Recordings       []RecordingConfig `json:"recordings,omitempty"`
}

// GetBasePath returns the configured base path, defaulting to ".".
func (c *HubConfig) GetBasePath() string {
	if c == nil || c.BasePath == nil || *c.BasePath == "" {
		return "."
	}
	return *c.BasePath
}

// GetDtSave returns the configured writer save cadence, defaulting to
// five seconds.
func (c *HubConfig) GetDtSave() time.Duration {
	if c == nil || c.DtSaveSeconds == nil {
		return 5 * time.Second
	}
	return time.Duration(*c.DtSaveSeconds * float64(time.Second))
}

// GetDtRequest returns the configured graph-gate wait timeout,
// defaulting to one second (spec.md §4.6 "wait on stop with timeout
// dt_request").
func (c *HubConfig) GetDtRequest() time.Duration {
	if c == nil || c.DtRequestSeconds == nil {
		return time.Second
	}
	return time.Duration(*c.DtRequestSeconds * float64(time.Second))
}

// GetMetadataFilename returns the configured metadata artifact
// filename, defaulting to "metadata.json".
func (c *HubConfig) GetMetadataFilename() string {
	if c == nil || c.MetadataFilename == nil || *c.MetadataFilename == "" {
		return "metadata.json"
	}
	return *c.MetadataFilename
}

// Validate checks that every configured value is well-formed.
func (c *HubConfig) Validate() error {
	if c.DtSaveSeconds != nil && *c.DtSaveSeconds <= 0 {
		return fmt.Errorf("dt_save_seconds must be positive, got %f", *c.DtSaveSeconds)
	}
	if c.DtRequestSeconds != nil && *c.DtRequestSeconds <= 0 {
		return fmt.Errorf("dt_request_seconds must be positive, got %f", *c.DtRequestSeconds)
	}
	for i, rc := range c.Recordings {
		if rc.GetName() == "" {
			return fmt.Errorf("recordings[%d]: name is required", i)
		}
		if rc.IntervalSeconds != nil && *rc.IntervalSeconds <= 0 {
			return fmt.Errorf("recordings[%d] (%s): interval_seconds must be positive", i, rc.GetName())
		}
		if kind := rc.GetKind(); kind != RecordingKindNumeric && kind != RecordingKindImage {
			return fmt.Errorf("recordings[%d] (%s): kind must be %q or %q, got %q", i, rc.GetName(), RecordingKindNumeric, RecordingKindImage, kind)
		}
	}
	return nil
}

// LoadHubConfig loads a HubConfig from a JSON file at path, following
// the teacher's internal/config.LoadTuningConfig discipline: a cleaned
// path, a size cap, unmarshal into all-optional fields, then
// validation.
func LoadHubConfig(path string) (*HubConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("hub: config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("hub: stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("hub: config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("hub: read config file: %w", err)
	}

	cfg := &HubConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("hub: parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("hub: invalid config: %w", err)
	}
	return cfg, nil
}

// MustLoadHubConfig loads a HubConfig and panics on any error. Intended
// for the composition root, which has no sensible recovery path from a
// broken startup config.
func MustLoadHubConfig(path string) *HubConfig {
	cfg, err := LoadHubConfig(path)
	if err != nil {
		panic(err)
	}
	return cfg
}
