package orchestrator

import (
	"context"

	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
	"github.com/akolanti/CampusRAG/internal/rag/retrieval"
)

// CapabilityOutput is what one capability hands to composition. Text goes into the prompt,
// the other fields are returned to the caller as metadata.
type CapabilityOutput struct {
	Kind    Kind                    `json:"kind"`
	Text    string                  `json:"-"`
	Results []retrieval.Passage     `json:"sources,omitempty"`
	News    []commonModels.NewsItem `json:"news,omitempty"`
	Contact *commonModels.Contact   `json:"contact,omitempty"`
}

type Capability interface {
	Kind() Kind
	Run(ctx context.Context, req Request) (CapabilityOutput, error)
}

type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]retrieval.Passage, error)
}

type RetrievalCapability struct {
	searcher Searcher
	k        int
}

func NewRetrievalCapability(searcher Searcher, k int) *RetrievalCapability {
	return &RetrievalCapability{searcher: searcher, k: retrieval.ClampK(k)}
}

func (r *RetrievalCapability) Kind() Kind { return KindRetrieve }

func (r *RetrievalCapability) Run(ctx context.Context, req Request) (CapabilityOutput, error) {
	passages, err := r.searcher.Search(ctx, req.Message, r.k)
	if err != nil {
		return CapabilityOutput{}, err
	}
	return CapabilityOutput{
		Kind:    KindRetrieve,
		Text:    retrieval.FormatContext(passages),
		Results: passages,
	}, nil
}
