package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
)

// ModelLocalMultilingual is the local multilingual embedding model.
// BGE-M3 produces 1024-dim vectors and handles the mixed-language proposal
// text (governance descriptions are frequently non-English).
const (
	ModelLocalMultilingual     = "bge-m3"
	DimensionLocalMultilingual = 1024
)

const hugotBatchMax = 10

// ortSingleton holds the process-wide ONNX Runtime session and pipeline.
// ORT only allows one active session per process, so all HugotEmbedding
// instances must share it. The mutex serializes both initialization and
// inference (ORT is not thread-safe).
var ortSingleton struct {
	session  *hugot.Session
	pipeline *pipelines.FeatureExtractionPipeline
	mu       sync.Mutex
	ready    bool
}

// HugotEmbedding provides local embedding generation using the BGE-M3 model
// via hugot. The model files must exist on disk under modelDir in a
// subdirectory containing tokenizer.json.
//
// All instances share a single ONNX Runtime session because ORT only
// supports one active session per process.
type HugotEmbedding struct {
	modelDir string
}

// NewHugotEmbedding creates a HugotEmbedding that looks for model files in
// modelDir.
func NewHugotEmbedding(modelDir string) *HugotEmbedding {
	return &HugotEmbedding{modelDir: modelDir}
}

// Available reports whether a usable model exists on disk in modelDir.
func (h *HugotEmbedding) Available() bool {
	_, err := h.diskModelPath()
	return err == nil
}

// Dimension returns the fixed vector dimension of the local model.
func (h *HugotEmbedding) Dimension() int { return DimensionLocalMultilingual }

// Model returns the model identifier.
func (h *HugotEmbedding) Model() string { return ModelLocalMultilingual }

// Capacity returns the maximum number of texts per Embed call.
func (h *HugotEmbedding) Capacity() int { return hugotBatchMax }

// Parallelism returns 1: inference is serialized on the shared ORT session,
// so fanning out Embed calls buys nothing.
func (h *HugotEmbedding) Parallelism() int { return 1 }

func (h *HugotEmbedding) initialize() error {
	ortSingleton.mu.Lock()
	defer ortSingleton.mu.Unlock()

	if ortSingleton.ready {
		return nil
	}

	session, err := newHugotSession()
	if err != nil {
		return fmt.Errorf("create hugot session: %w", err)
	}

	modelPath, err := h.diskModelPath()
	if err != nil {
		_ = session.Destroy()
		return err
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "proposal-embeddings",
		Options: []hugot.FeatureExtractionOption{
			pipelines.WithNormalization(),
		},
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		_ = session.Destroy()
		return fmt.Errorf("create feature extraction pipeline: %w", err)
	}

	ortSingleton.session = session
	ortSingleton.pipeline = pipeline
	ortSingleton.ready = true
	return nil
}

// diskModelPath looks for a model subdirectory containing tokenizer.json
// inside modelDir. Returns the path if found, or an error if no valid
// model directory exists on disk.
func (h *HugotEmbedding) diskModelPath() (string, error) {
	entries, err := os.ReadDir(h.modelDir)
	if err != nil {
		return "", fmt.Errorf("read model directory %s: %w", h.modelDir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := filepath.Join(h.modelDir, entry.Name())
		if _, statErr := os.Stat(filepath.Join(candidate, "tokenizer.json")); statErr == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no model subdirectory with tokenizer.json found in %s", h.modelDir)
}

// Embed generates embeddings for the given texts using the local model.
// The number of texts must not exceed Capacity().
func (h *HugotEmbedding) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}
	if len(texts) > hugotBatchMax {
		return nil, fmt.Errorf("embed: %d texts exceeds capacity %d", len(texts), hugotBatchMax)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := h.initialize(); err != nil {
		return nil, fmt.Errorf("initialize hugot: %w", err)
	}

	// Hold the singleton mutex for inference — ORT is not thread-safe.
	ortSingleton.mu.Lock()
	defer ortSingleton.mu.Unlock()

	result, err := ortSingleton.pipeline.RunPipeline(texts)
	if err != nil {
		return nil, fmt.Errorf("run embedding pipeline: %w", err)
	}

	embeddings := make([][]float64, len(result.Embeddings))
	for i, vec32 := range result.Embeddings {
		vec64 := make([]float64, len(vec32))
		for j, v := range vec32 {
			vec64[j] = float64(v)
		}
		embeddings[i] = vec64
	}
	return embeddings, nil
}

// Close is a no-op. The ONNX Runtime session is process-global and shared
// across all HugotEmbedding instances; it is cleaned up when the process
// exits.
func (h *HugotEmbedding) Close() error { return nil }

var _ Embedder = (*HugotEmbedding)(nil)
