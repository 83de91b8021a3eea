// Package hugot provides a local sentence-transformer embedder running ONNX
// models through the hugot Go backend. No network service is needed once the
// model is downloaded.
package hugot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/poiesic/knownet/ai"
)

const (
	// ProviderName is the provider part of model descriptors built here.
	ProviderName = "hugot"

	// DefaultModel produces 384-dimensional embeddings.
	DefaultModel = "sentence-transformers/all-MiniLM-L6-v2"
)

// Embedder implements ai.Embedder with a hugot feature-extraction pipeline.
type Embedder struct {
	mu         sync.Mutex
	session    *hugot.Session
	pipeline   *pipelines.FeatureExtractionPipeline
	descriptor ai.ModelDescriptor
	logger     *slog.Logger
}

// NewEmbedder loads modelName from modelDir, downloading it first when absent.
func NewEmbedder(modelName, modelDir string) (*Embedder, error) {
	if modelName == "" {
		modelName = DefaultModel
	}

	modelPath, err := PrepareModel(modelName, modelDir)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "knownet-embedder",
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create embedding pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create embedding pipeline: %w", err)
	}

	return &Embedder{
		session:    session,
		pipeline:   pipeline,
		descriptor: ai.ModelDescriptor{Provider: ProviderName, Model: modelName},
		logger:     slog.Default().With("component", "hugot-embedder"),
	}, nil
}

// PrepareModel downloads the model if it doesn't exist and returns the model path.
func PrepareModel(modelName, modelDir string) (string, error) {
	modelPath := filepath.Join(modelDir, strings.ReplaceAll(modelName, "/", "_"))

	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		if err := os.MkdirAll(modelDir, 0755); err != nil {
			return "", fmt.Errorf("failed to create model directory: %w", err)
		}
		downloadOptions := hugot.NewDownloadOptions()
		downloadOptions.OnnxFilePath = "onnx/model.onnx"
		downloadedPath, err := hugot.DownloadModel(modelName, modelDir, downloadOptions)
		if err != nil {
			return "", fmt.Errorf("failed to download model: %w", err)
		}
		modelPath = downloadedPath
	}

	return modelPath, nil
}

// Descriptor identifies the embedding model.
func (e *Embedder) Descriptor() ai.ModelDescriptor {
	return e.descriptor
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts runs the whole batch through the pipeline in one pass.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	result, err := e.pipeline.RunPipeline(texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: %d embeddings for %d texts", ai.ErrEmptyResponse, len(result.Embeddings), len(texts))
	}
	return result.Embeddings, nil
}

// Close destroys the hugot session.
func (e *Embedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Destroy()
}
