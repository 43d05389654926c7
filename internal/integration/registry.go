// Package integration loads external JSON data stores (collections, archived
// uploads, social posts) and snapshots them into a build-scoped manifest that
// page-generator plugins read instead of touching the stores themselves.
package integration

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Record is one entry of an external store. Stores are owned by other
// subsystems; the registry never writes to them.
type Record map[string]any

// Flag reads a boolean field, tolerating absence.
func (r Record) Flag(key string) bool {
	v, ok := r[key].(bool)
	return ok && v
}

// String reads a string field, tolerating absence.
func (r Record) String(key string) string {
	v, _ := r[key].(string)
	return v
}

// StoreSection is the manifest slice for one named store.
type StoreSection struct {
	Name      string   `json:"name"`
	HasData   bool     `json:"has_data"`
	Count     int      `json:"count"`
	Selected  int      `json:"selected"`
	Confirmed int      `json:"confirmed"`
	Records   []Record `json:"records,omitempty"`
	Warning   string   `json:"warning,omitempty"`
}

// Manifest is the derived, regenerable snapshot written before each build.
type Manifest struct {
	GeneratedAt time.Time               `json:"generated_at"`
	BuildID     string                  `json:"build_id,omitempty"`
	Stores      map[string]StoreSection `json:"stores"`
	Warnings    []string                `json:"warnings,omitempty"`
}

// Store returns the section for name; absent stores yield an empty section
// so plugins never nil-check.
func (m *Manifest) Store(name string) StoreSection {
	if s, ok := m.Stores[name]; ok {
		return s
	}
	return StoreSection{Name: name}
}

// storeSpec names a store and its backing file.
type storeSpec struct {
	name     string
	fileName string
}

// Registry knows the closed set of external stores for a workspace.
type Registry struct {
	dataDir string
	stores  []storeSpec
}

// Store names exposed to plugins.
const (
	StoreCollections = "collections"
	StoreUploads     = "uploads"
	StoreSocialPosts = "social-posts"
)

// NewRegistry builds a registry over the integrations data directory.
func NewRegistry(dataDir string) *Registry {
	return &Registry{
		dataDir: dataDir,
		stores: []storeSpec{
			{StoreCollections, "collections.json"},
			{StoreUploads, "uploads.json"},
			{StoreSocialPosts, "social-posts.json"},
		},
	}
}

// LoadAll reads every known store and computes the manifest. A missing store
// yields an empty section; a malformed one yields an empty section plus a
// warning. LoadAll never fails the build.
func (r *Registry) LoadAll(buildID string) *Manifest {
	m := &Manifest{
		GeneratedAt: time.Now().UTC(),
		BuildID:     buildID,
		Stores:      make(map[string]StoreSection, len(r.stores)),
	}

	for _, spec := range r.stores {
		section := r.loadStore(spec)
		if section.Warning != "" {
			m.Warnings = append(m.Warnings, fmt.Sprintf("store %s: %s", spec.name, section.Warning))
		}
		m.Stores[spec.name] = section
	}
	return m
}

func (r *Registry) loadStore(spec storeSpec) StoreSection {
	section := StoreSection{Name: spec.name}

	path := filepath.Join(r.dataDir, spec.fileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("Integration store absent", "store", spec.name)
			return section
		}
		section.Warning = "unreadable: " + err.Error()
		return section
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		slog.Warn("Malformed integration store", "store", spec.name, "error", err)
		section.Warning = "malformed JSON: " + err.Error()
		return section
	}

	section.HasData = true
	section.Count = len(records)
	section.Records = records
	for _, rec := range records {
		if rec.Flag("selected") {
			section.Selected++
		}
		if rec.Flag("confirmed") {
			section.Confirmed++
		}
	}
	return section
}

// WriteManifest persists the manifest atomically at path so plugins have a
// single consistent read path for the whole build.
func WriteManifest(m *Manifest, path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a previously written manifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return &m, nil
}
