package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
	"github.com/akolanti/CampusRAG/internal/domain/ragErrors"
	"github.com/akolanti/CampusRAG/internal/metrics"
	"github.com/akolanti/CampusRAG/internal/rag/llm"
	"github.com/akolanti/CampusRAG/internal/rag/retrieval"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
	"golang.org/x/sync/errgroup"
)

type Request struct {
	Message string                          `json:"message"`
	History []commonModels.ConversationTurn `json:"history,omitempty"`
	Model   string                          `json:"model,omitempty"`
}

// Metadata describes how an answer was built. It is the first streamed event.
type Metadata struct {
	Capabilities []Kind                  `json:"capabilities"`
	Reason       string                  `json:"reason"`
	Model        string                  `json:"model"`
	Provider     string                  `json:"provider"`
	Sources      []retrieval.Passage     `json:"sources,omitempty"`
	News         []commonModels.NewsItem `json:"news,omitempty"`
	Contact      *commonModels.Contact   `json:"contact,omitempty"`
	Unavailable  []Kind                  `json:"unavailable,omitempty"`
}

type Response struct {
	Answer string `json:"answer"`
	Metadata
}

type EventType string

const (
	EventMetadata EventType = "metadata"
	EventChunk    EventType = "chunk"
	EventDone     EventType = "done"
	EventError    EventType = "error"
)

type Event struct {
	Type    EventType `json:"type"`
	Content string    `json:"content,omitempty"`
	Data    *Metadata `json:"data,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// Plan is the result of classification and capability invocation, before composition.
type Plan struct {
	Decision Decision
	Outputs  []CapabilityOutput
	Failed   []Kind
	Prompt   llm.Prompt
}

type Orchestrator struct {
	classifier   Classifier
	provider     llm.Provider
	systemPrompt string
	capabilities map[Kind]Capability
}

func New(classifier Classifier, provider llm.Provider, systemPrompt string, capabilities ...Capability) *Orchestrator {
	if classifier == nil {
		classifier = KeywordClassifier{}
	}
	o := &Orchestrator{
		classifier:   classifier,
		provider:     provider,
		systemPrompt: systemPrompt,
		capabilities: make(map[Kind]Capability),
	}
	for _, c := range capabilities {
		if c != nil {
			o.capabilities[c.Kind()] = c
		}
	}
	return o
}

// Prepare validates the request, classifies it and runs the selected capabilities
// concurrently. A failing capability never fails the request, it is listed in Failed.
func (o *Orchestrator) Prepare(ctx context.Context, req Request) (Plan, error) {
	log := logger_i.FromContext(ctx, "Orchestrator")

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return Plan{}, ragErrors.ErrEmptyQuery
	}
	if req.Model != "" {
		if err := o.provider.CheckModel(ctx, req.Model); err != nil {
			return Plan{}, err
		}
	}

	decision := o.classifier.Classify(ctx, req.Message, req.History)
	for _, k := range decision.Kinds {
		metrics.CountRoutingDecision(string(k))
	}
	log.Info("Routing decision", "capabilities", decision.Kinds, "reason", decision.Reason)

	outputs := make([]CapabilityOutput, len(decision.Kinds))
	errs := make([]error, len(decision.Kinds))

	var g errgroup.Group
	for i, kind := range decision.Kinds {
		g.Go(func() error {
			capability, ok := o.capabilities[kind]
			if !ok {
				errs[i] = &ragErrors.CapabilityError{Capability: string(kind), Err: errors.New("not configured")}
				return nil
			}
			start := time.Now()
			out, err := capability.Run(ctx, req)
			metrics.CaptureExecutionMetrics("capability_"+string(kind), time.Since(start))
			if err != nil {
				errs[i] = &ragErrors.CapabilityError{Capability: string(kind), Err: err}
				return nil
			}
			outputs[i] = out
			return nil
		})
	}
	_ = g.Wait()

	plan := Plan{Decision: decision}
	for i, kind := range decision.Kinds {
		if errs[i] != nil {
			metrics.CountCapabilityFailure(string(kind))
			log.Warn("Capability failed, answering without it", "capability", kind, "error", errs[i])
			plan.Failed = append(plan.Failed, kind)
			continue
		}
		plan.Outputs = append(plan.Outputs, outputs[i])
	}
	if err := ctx.Err(); err != nil {
		return Plan{}, err
	}

	plan.Prompt = llm.Prompt{
		System:   o.systemPrompt,
		History:  req.History,
		Context:  composeContext(decision, plan.Outputs, plan.Failed),
		Question: req.Message,
		Model:    req.Model,
	}
	return plan, nil
}

// UnavailableNote replaces the output of a failed capability in the prompt.
func UnavailableNote(kind Kind) string {
	return fmt.Sprintf("[%s] This part of the answer is unavailable right now.", label(kind))
}

func label(kind Kind) string {
	switch kind {
	case KindRetrieve:
		return "Documentation"
	case KindNews:
		return "News"
	case KindContact:
		return "Contact request"
	}
	return string(kind)
}

func composeContext(decision Decision, outputs []CapabilityOutput, failed []Kind) string {
	byKind := make(map[Kind]CapabilityOutput, len(outputs))
	for _, out := range outputs {
		byKind[out.Kind] = out
	}
	isFailed := make(map[Kind]bool, len(failed))
	for _, k := range failed {
		isFailed[k] = true
	}

	var sections []string
	for _, kind := range decision.Kinds {
		if isFailed[kind] {
			sections = append(sections, UnavailableNote(kind))
			continue
		}
		if out, ok := byKind[kind]; ok && out.Text != "" {
			sections = append(sections, fmt.Sprintf("[%s]\n%s", label(kind), out.Text))
		}
	}
	return strings.Join(sections, "\n\n")
}

func (o *Orchestrator) metadata(plan Plan) *Metadata {
	meta := &Metadata{
		Capabilities: plan.Decision.Kinds,
		Reason:       plan.Decision.Reason,
		Model:        llm.ModelOrDefault(plan.Prompt, o.provider),
		Provider:     o.provider.Name(),
		Unavailable:  plan.Failed,
	}
	for _, out := range plan.Outputs {
		meta.Sources = append(meta.Sources, out.Results...)
		meta.News = append(meta.News, out.News...)
		if out.Contact != nil {
			meta.Contact = out.Contact
		}
	}
	return meta
}

// Answer runs the whole chain and returns the generated text.
func (o *Orchestrator) Answer(ctx context.Context, req Request) (Response, error) {
	plan, err := o.Prepare(ctx, req)
	if err != nil {
		return Response{}, err
	}

	start := time.Now()
	answer, err := o.provider.Generate(ctx, plan.Prompt)
	metrics.CaptureExecutionMetrics("llm_generation", time.Since(start))
	if err != nil {
		return Response{}, err
	}
	return Response{Answer: answer, Metadata: *o.metadata(plan)}, nil
}

// Stream emits a metadata event, the answer chunks and a final done or error event.
// Errors found before generation starts are returned directly. The producer stops and
// closes the channel as soon as ctx is done, which is how a client disconnect is seen.
func (o *Orchestrator) Stream(ctx context.Context, req Request) (<-chan Event, error) {
	plan, err := o.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	tokens, err := o.provider.Stream(ctx, plan.Prompt)
	if err != nil {
		return nil, err
	}

	log := logger_i.FromContext(ctx, "Orchestrator")
	events := make(chan Event)
	go func() {
		defer close(events)
		send := func(e Event) bool {
			select {
			case events <- e:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(Event{Type: EventMetadata, Data: o.metadata(plan)}) {
			return
		}
		for tok := range tokens {
			if tok.Err != nil {
				log.Error("Stream failed", "error", tok.Err)
				send(Event{Type: EventError, Error: PublicMessage(tok.Err)})
				return
			}
			if tok.Text == "" {
				continue
			}
			if !send(Event{Type: EventChunk, Content: tok.Text}) {
				log.Info("Client gone, stream stopped")
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
		send(Event{Type: EventDone})
	}()
	return events, nil
}

// PublicMessage is the text shown to users for a generation error.
func PublicMessage(err error) string {
	if unavailable, ok := ragErrors.AsModelUnavailable(err); ok {
		return unavailable.Hint
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "The answer took too long to generate, please try again."
	}
	return "The answer could not be generated, please try again."
}
