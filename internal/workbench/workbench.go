// Package workbench is the client-side workflow: load a dataset, configure
// an algorithm, train, inspect history and predict.
package workbench

import (
	"context"
	"sync"

	"github.com/theblitlabs/tinyml-runner/internal/catalog"
	"github.com/theblitlabs/tinyml-runner/internal/dataset"
	"github.com/theblitlabs/tinyml-runner/internal/history"
	"github.com/theblitlabs/tinyml-runner/internal/models"
	"github.com/theblitlabs/tinyml-runner/internal/prediction"
	"github.com/theblitlabs/tinyml-runner/internal/utils/errorutil"
	"github.com/theblitlabs/tinyml-runner/pkg/logger"
)

var (
	ErrNoAlgorithm   = errorutil.Validation("please select an algorithm")
	ErrNoDataset     = errorutil.Validation("please upload a dataset")
	ErrTrainInFlight = errorutil.Validation("a training run is already in progress")
	ErrNotTrained    = errorutil.Validation("train a model before predicting")
)

// API is the server surface the workbench drives. *client.Client satisfies it.
type API interface {
	Train(ctx context.Context, req *models.TrainingRequest) (*models.TrainingResult, error)
	Predict(ctx context.Context, req *models.PredictRequest) (*models.PredictResponse, error)
}

// Result is what the result display shows: either a fresh run or a history
// entry.
type Result struct {
	JobID      string
	Algorithm  models.Algorithm
	Parameters models.Parameters
	Metrics    models.Metrics
	Image      string
	View       catalog.MetricsView
}

type trainedModel struct {
	jobID      string
	algorithm  models.Algorithm
	parameters models.Parameters
	builder    *prediction.Builder
}

// Workbench owns all per-session state. Methods are safe for concurrent use.
type Workbench struct {
	api API

	mu        sync.Mutex
	profile   *dataset.Profile
	content   string
	fileName  string
	form      *catalog.Form
	ledger    *history.Ledger
	trained   *trainedModel
	displayed *Result
	inFlight  bool
}

func New(api API) *Workbench {
	return &Workbench{
		api:    api,
		form:   catalog.NewForm(),
		ledger: history.NewLedger(),
	}
}

// LoadDataset profiles content and keeps it for the next training run. The
// previous dataset is kept when parsing fails.
func (w *Workbench) LoadDataset(fileName, content string) (*dataset.Profile, error) {
	p, err := dataset.Parse(content, dataset.Extension(fileName))
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.profile = p
	w.content = content
	w.fileName = fileName

	log := logger.WithComponent("workbench")
	log.Info().
		Str("file", fileName).
		Int("rows", p.RowCount).
		Int("columns", p.ColumnCount).
		Msg("Dataset loaded")
	return p, nil
}

func (w *Workbench) ClearDataset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.profile = nil
	w.content = ""
	w.fileName = ""
}

func (w *Workbench) Profile() *dataset.Profile {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.profile
}

// SelectAlgorithm switches the parameter form, resetting it to defaults.
func (w *Workbench) SelectAlgorithm(name string) error {
	alg, ok := models.ParseAlgorithm(name)
	if !ok {
		return errorutil.Validation("unsupported algorithm: %s", name)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.form.Select(alg)
}

func (w *Workbench) SetParameter(key string, value interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.form.Set(key, value); err != nil {
		return errorutil.Validation("%s", err.Error())
	}
	return nil
}

func (w *Workbench) Parameters() models.Parameters {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.form.Values()
}

// Train sends the loaded dataset and current parameters to the server. Only
// one run may be outstanding, and history is appended only on success.
func (w *Workbench) Train(ctx context.Context) (*Result, error) {
	w.mu.Lock()
	alg := w.form.Algorithm()
	switch {
	case alg == "":
		w.mu.Unlock()
		return nil, ErrNoAlgorithm
	case w.profile == nil:
		w.mu.Unlock()
		return nil, ErrNoDataset
	case w.inFlight:
		w.mu.Unlock()
		return nil, ErrTrainInFlight
	}
	w.inFlight = true

	params := w.form.Values()
	profile := w.profile
	req := &models.TrainingRequest{
		Algorithm:     string(alg),
		Parameters:    params,
		Dataset:       w.content,
		DatasetFormat: dataset.Extension(w.fileName),
	}
	w.mu.Unlock()

	log := logger.WithComponent("workbench")
	log.Info().Str("algorithm", string(alg)).Msg("Training started")

	resp, err := w.api.Train(ctx, req)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.inFlight = false

	if err != nil {
		log.Error().Err(err).Str("algorithm", string(alg)).Msg("Training failed")
		return nil, err
	}

	w.ledger.Record(alg, params, resp.Metrics)
	w.trained = &trainedModel{
		jobID:      resp.JobID,
		algorithm:  alg,
		parameters: params,
		builder:    prediction.NewBuilder(profile, alg, params),
	}
	w.displayed = newResult(resp.JobID, alg, params, resp.Metrics, resp.Image)

	log.Info().Str("algorithm", string(alg)).Str("job_id", resp.JobID).Msg("Training completed")
	return w.displayed, nil
}

// PredictionInputs lists the feature fields for the last trained model.
func (w *Workbench) PredictionInputs() ([]prediction.Input, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.trained == nil {
		return nil, ErrNotTrained
	}
	return w.trained.builder.Inputs(), nil
}

// Predict submits one feature vector keyed by column to the last trained
// model and returns the scalar prediction.
func (w *Workbench) Predict(ctx context.Context, values map[string]string) (interface{}, error) {
	w.mu.Lock()
	trained := w.trained
	w.mu.Unlock()
	if trained == nil {
		return nil, ErrNotTrained
	}

	req, err := trained.builder.Build(values)
	if err != nil {
		return nil, err
	}
	// Pin the weights of this session's run, not whichever job finished last.
	req.JobID = trained.jobID

	resp, err := w.api.Predict(ctx, req)
	if err != nil {
		return nil, err
	}
	return prediction.ExtractPrediction(resp)
}

func (w *Workbench) History() []history.Entry {
	return w.ledger.Render()
}

// ShowHistory redisplays a stored run without contacting the server.
func (w *Workbench) ShowHistory(i int) (*Result, error) {
	rec, err := w.ledger.Get(i)
	if err != nil {
		return nil, errorutil.Validation("%s", err.Error())
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.displayed = newResult("", rec.Algorithm, rec.Parameters, rec.Metrics, "")
	return w.displayed, nil
}

// Displayed returns what the result display currently shows, or nil.
func (w *Workbench) Displayed() *Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.displayed
}

func newResult(jobID string, alg models.Algorithm, params models.Parameters, metrics models.Metrics, image string) *Result {
	return &Result{
		JobID:      jobID,
		Algorithm:  alg,
		Parameters: params,
		Metrics:    metrics,
		Image:      image,
		View:       catalog.BuildMetricsView(alg, metrics),
	}
}
