package ai

import "github.com/poiesic/knownet/storage"

// Cache components, one per capability kind.
const (
	ComponentEmbedder        = "embedder"
	ComponentTripleExtractor = "triple_extractor"
)

// ModelDescriptor is the stable identity of a model-backed capability.
// It is fixed at construction and names the cache namespace the
// capability's results are stored under.
type ModelDescriptor struct {
	Provider string // e.g. "openai", "anthropic", "hugot"
	Model    string // provider-specific model name
}

// ID returns "provider/model", or just the model when no provider is set.
func (d ModelDescriptor) ID() string {
	if d.Provider == "" {
		return d.Model
	}
	return d.Provider + "/" + d.Model
}

// Namespace returns the cache namespace for component results produced by
// this model.
func (d ModelDescriptor) Namespace(component string) storage.Namespace {
	return storage.Namespace{Component: component, Model: d.ID()}
}
