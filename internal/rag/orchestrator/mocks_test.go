package orchestrator

import (
	"context"
	"sync"

	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
	"github.com/akolanti/CampusRAG/internal/rag/llm"
)

type mockProvider struct {
	OnGenerate   func(ctx context.Context, p llm.Prompt) (string, error)
	OnStream     func(ctx context.Context, p llm.Prompt) (<-chan llm.Token, error)
	OnCheckModel func(ctx context.Context, model string) error

	mu      sync.Mutex
	prompts []llm.Prompt
}

func (m *mockProvider) Name() string         { return "mock" }
func (m *mockProvider) DefaultModel() string { return "mock-model" }

func (m *mockProvider) record(p llm.Prompt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, p)
}

func (m *mockProvider) lastPrompt() llm.Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return llm.Prompt{}
	}
	return m.prompts[len(m.prompts)-1]
}

func (m *mockProvider) Generate(ctx context.Context, p llm.Prompt) (string, error) {
	m.record(p)
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, p)
	}
	return "generated answer", nil
}

func (m *mockProvider) Stream(ctx context.Context, p llm.Prompt) (<-chan llm.Token, error) {
	m.record(p)
	if m.OnStream != nil {
		return m.OnStream(ctx, p)
	}
	out := make(chan llm.Token, 2)
	out <- llm.Token{Text: "Hello "}
	out <- llm.Token{Text: "world"}
	close(out)
	return out, nil
}

func (m *mockProvider) CheckModel(ctx context.Context, model string) error {
	if m.OnCheckModel != nil {
		return m.OnCheckModel(ctx, model)
	}
	return nil
}

func (m *mockProvider) Models(ctx context.Context) ([]string, error) {
	return []string{"mock-model"}, nil
}

type mockCapability struct {
	kind  Kind
	OnRun func(ctx context.Context, req Request) (CapabilityOutput, error)
	calls int
	mu    sync.Mutex
}

func (m *mockCapability) Kind() Kind { return m.kind }

func (m *mockCapability) Run(ctx context.Context, req Request) (CapabilityOutput, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.OnRun != nil {
		return m.OnRun(ctx, req)
	}
	return CapabilityOutput{Kind: m.kind, Text: string(m.kind) + " output"}, nil
}

type fixedClassifier struct {
	decision Decision
}

func (f fixedClassifier) Classify(context.Context, string, []commonModels.ConversationTurn) Decision {
	return f.decision
}

type memoryContacts struct {
	OnSave   func(ctx context.Context, c commonModels.Contact) error
	contacts []commonModels.Contact
}

func (m *memoryContacts) SaveContact(ctx context.Context, c commonModels.Contact) error {
	if m.OnSave != nil {
		if err := m.OnSave(ctx, c); err != nil {
			return err
		}
	}
	m.contacts = append(m.contacts, c)
	return nil
}

func (m *memoryContacts) ListContacts(ctx context.Context) ([]commonModels.Contact, error) {
	return m.contacts, nil
}
