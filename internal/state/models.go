package state

import (
	"time"

	"github.com/notepress/notepress/internal/config"
)

// Status is the workspace publish lifecycle state.
type Status string

const (
	StatusNotInitialized Status = "not-initialized"
	StatusReady          Status = "ready"
	StatusBuilding       Status = "building"
	StatusDeployed       Status = "deployed"
	StatusError          Status = "error"
)

// BuildStatus is the terminal status of one build attempt.
type BuildStatus string

const (
	BuildSuccess   BuildStatus = "success"
	BuildError     BuildStatus = "error"
	BuildCancelled BuildStatus = "cancelled"
)

// BuildRecord is the immutable record of one build attempt. It is created
// once at the end of the attempt and never mutated; DeployConfig owns it in
// its append-only history.
type BuildRecord struct {
	ID             string        `json:"id"`
	Timestamp      time.Time     `json:"timestamp"`
	Status         BuildStatus   `json:"status"`
	Duration       time.Duration `json:"duration"`
	FilesProcessed int           `json:"files_processed"`
	OutputSize     int64         `json:"output_size"`
	Errors         []string      `json:"errors,omitempty"`
	Warnings       []string      `json:"warnings,omitempty"`
}

// DeployConfig is the single persistent record for a workspace: current
// lifecycle status, the option snapshot builds run with, the deployment
// target and the append-only build history.
type DeployConfig struct {
	ID            string              `json:"id"`
	Workspace     string              `json:"workspace"`
	Status        Status              `json:"status"`
	Site          config.SiteConfig   `json:"site"`
	Content       config.ContentRules `json:"content"`
	Target        config.TargetConfig `json:"target"`
	History       []BuildRecord       `json:"history"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	LastBuildAt   *time.Time          `json:"last_build_at,omitempty"`
	LastDeployAt  *time.Time          `json:"last_deploy_at,omitempty"`
	LastDeployURL string              `json:"last_deploy_url,omitempty"`
}

// LatestRecord returns the most recent build record, or nil.
func (dc *DeployConfig) LatestRecord() *BuildRecord {
	if len(dc.History) == 0 {
		return nil
	}
	return &dc.History[len(dc.History)-1]
}

// FindRecord returns the record with the given id, or nil.
func (dc *DeployConfig) FindRecord(buildID string) *BuildRecord {
	for i := range dc.History {
		if dc.History[i].ID == buildID {
			return &dc.History[i]
		}
	}
	return nil
}
