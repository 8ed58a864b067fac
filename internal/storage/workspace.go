package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/theblitlabs/tinyml-runner/internal/config"
	"github.com/theblitlabs/tinyml-runner/internal/utils/errorutil"
)

const (
	jobsDir        = "jobs"
	predictionsDir = "predictions"
)

// Workspace owns the on-disk layout under the storage root:
//
//	<root>/features.txt
//	<root>/jobs/<job id>/dataset.<format>
//	<root>/jobs/<job id>/predictions/<request id>/
type Workspace struct {
	root         string
	datasetFile  string
	featuresFile string
}

func NewWorkspace(cfg config.StorageConfig) (*Workspace, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, errorutil.IO(err, "failed to resolve storage root")
	}
	if err := os.MkdirAll(filepath.Join(root, jobsDir), 0o755); err != nil {
		return nil, errorutil.IO(err, "failed to create storage root")
	}

	datasetFile := cfg.DatasetFile
	if datasetFile == "" {
		datasetFile = "dataset"
	}
	featuresFile := cfg.FeaturesFile
	if featuresFile == "" {
		featuresFile = "features.txt"
	}

	return &Workspace{root: root, datasetFile: datasetFile, featuresFile: featuresFile}, nil
}

func (w *Workspace) Root() string {
	return w.root
}

// JobPath returns the directory owned by job id. It may not exist.
func (w *Workspace) JobPath(id uuid.UUID) string {
	return filepath.Join(w.root, jobsDir, id.String())
}

// JobDir is the isolated working directory of one training job.
type JobDir struct {
	ID   uuid.UUID
	Path string

	datasetFile string
}

// CreateJob creates a fresh directory for job id.
func (w *Workspace) CreateJob(id uuid.UUID) (*JobDir, error) {
	path := w.JobPath(id)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, errorutil.IO(err, "failed to create job directory")
	}
	return &JobDir{ID: id, Path: path, datasetFile: w.datasetFile}, nil
}

// OpenJob returns the directory of an existing job.
func (w *Workspace) OpenJob(id uuid.UUID) (*JobDir, error) {
	path := w.JobPath(id)
	info, err := os.Stat(path)
	if err != nil {
		return nil, errorutil.IO(err, "job directory not found")
	}
	if !info.IsDir() {
		return nil, errorutil.IO(nil, "job path %s is not a directory", path)
	}
	return &JobDir{ID: id, Path: path, datasetFile: w.datasetFile}, nil
}

// File returns the absolute path of name inside the job directory.
func (j *JobDir) File(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(j.Path, name)
}

// DatasetPath is where WriteDataset stores content of the given format.
func (j *JobDir) DatasetPath(format string) string {
	return j.File(fmt.Sprintf("%s.%s", j.datasetFile, format))
}

// WriteDataset stores the uploaded dataset and returns its absolute path.
func (j *JobDir) WriteDataset(content, format string) (string, error) {
	path := j.DatasetPath(format)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errorutil.IO(err, "failed to create dataset directory")
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", errorutil.IO(err, "failed to write dataset")
	}
	return path, nil
}

// CreatePredictionDir makes a fresh per-request directory under the job.
func (j *JobDir) CreatePredictionDir() (string, error) {
	path := filepath.Join(j.Path, predictionsDir, uuid.New().String())
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", errorutil.IO(err, "failed to create prediction directory")
	}
	return path, nil
}

func (w *Workspace) FeaturesPath() string {
	return filepath.Join(w.root, w.featuresFile)
}

// SaveFeatures replaces the features file atomically.
func (w *Workspace) SaveFeatures(features string) (string, error) {
	path := w.FeaturesPath()

	tmp, err := os.CreateTemp(w.root, ".features-*")
	if err != nil {
		return "", errorutil.IO(err, "failed to create features file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(features); err != nil {
		tmp.Close()
		return "", errorutil.IO(err, "failed to write features")
	}
	if err := tmp.Close(); err != nil {
		return "", errorutil.IO(err, "failed to write features")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", errorutil.IO(err, "failed to save features")
	}
	return path, nil
}
