package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
	"github.com/akolanti/CampusRAG/internal/rag/llm"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
)

type Kind string

const (
	KindRetrieve Kind = "retrieve"
	KindNews     Kind = "news"
	KindContact  Kind = "contact"
)

// Decision lists the capabilities to run for one message. Composition always follows.
type Decision struct {
	Kinds  []Kind `json:"capabilities"`
	Reason string `json:"reason"`
}

func (d Decision) Has(kind Kind) bool {
	for _, k := range d.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Classifier turns a message into a Decision. It must not touch the index or any store.
type Classifier interface {
	Classify(ctx context.Context, message string, history []commonModels.ConversationTurn) Decision
}

var contactKeywords = []string{
	"contact", "register", "sign up", "signup", "inscription", "inscrire", "email", "e-mail", "mail",
	"phone", "téléphone", "telephone", "call me", "follow-up", "follow up", "rappeler", "recontacter",
	"coordonnées", "coordonnees",
}

var newsKeywords = []string{
	"news", "update", "latest", "recent", "event", "actualité", "actualite", "nouveauté", "nouveaute",
	"événement", "evenement", "dernières", "dernieres",
}

var questionWords = []string{
	"what", "how", "when", "where", "which", "who", "why", "can i", "do you", "is there", "are there",
	"quel", "quelle", "comment", "quand", "où", "pourquoi", "combien", "est-ce", "qui ",
}

// KeywordClassifier routes on English and French keywords.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(_ context.Context, message string, _ []commonModels.ConversationTurn) Decision {
	lower := strings.ToLower(message)
	contact := matchAny(lower, contactKeywords)
	if contact == "" && emailPattern.MatchString(message) {
		contact = "email address"
	}
	news := matchAny(lower, newsKeywords)

	var d Decision
	var reasons []string
	if contact != "" {
		d.Kinds = append(d.Kinds, KindContact)
		reasons = append(reasons, "contact keyword "+contact)
	}
	if news != "" {
		d.Kinds = append(d.Kinds, KindNews)
		reasons = append(reasons, "news keyword "+news)
	}
	if contact == "" || news != "" || looksLikeQuestion(lower) {
		d.Kinds = append([]Kind{KindRetrieve}, d.Kinds...)
		if len(reasons) == 0 {
			reasons = append(reasons, "default to documentation")
		}
	}
	d.Reason = strings.Join(reasons, ", ")
	return d
}

func matchAny(lower string, keywords []string) string {
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return k
		}
	}
	return ""
}

func looksLikeQuestion(lower string) bool {
	if strings.Contains(lower, "?") {
		return true
	}
	for _, w := range questionWords {
		if strings.HasPrefix(lower, w) || strings.Contains(lower, " "+w) {
			return true
		}
	}
	return false
}

const classifierPrompt = "You route messages sent to the assistant of an engineering school. " +
	"Reply with a single JSON object and nothing else: " +
	`{"retrieve": bool, "news": bool, "contact": bool, "reason": string}. ` +
	"retrieve: the answer needs the school documentation. news: the user asks for recent news or events. " +
	"contact: the user wants to be contacted or gives contact details."

type llmDecision struct {
	Retrieve bool   `json:"retrieve"`
	News     bool   `json:"news"`
	Contact  bool   `json:"contact"`
	Reason   string `json:"reason"`
}

// LLMClassifier asks the generation provider for the decision. Any failure, or an answer
// that selects nothing, gives the fallback decision instead.
type LLMClassifier struct {
	provider llm.Provider
	fallback Classifier
}

func NewLLMClassifier(provider llm.Provider, fallback Classifier) *LLMClassifier {
	if fallback == nil {
		fallback = KeywordClassifier{}
	}
	return &LLMClassifier{provider: provider, fallback: fallback}
}

func (c *LLMClassifier) Classify(ctx context.Context, message string, history []commonModels.ConversationTurn) Decision {
	log := logger_i.FromContext(ctx, "Classifier")

	callCtx, cancel := context.WithTimeout(ctx, config.ClassifierTimeout)
	defer cancel()

	raw, err := c.provider.Generate(callCtx, llm.Prompt{System: classifierPrompt, History: history, Question: message})
	if err == nil {
		var d Decision
		d, err = parseDecision(raw)
		if err == nil {
			return d
		}
	}
	log.Warn("LLM routing failed, using keywords", "error", err)
	return c.fallback.Classify(ctx, message, history)
}

func parseDecision(raw string) (Decision, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Decision{}, errors.New("no json object in classifier answer")
	}
	var out llmDecision
	if err := json.Unmarshal([]byte(raw[start:end+1]), &out); err != nil {
		return Decision{}, err
	}

	var d Decision
	if out.Retrieve {
		d.Kinds = append(d.Kinds, KindRetrieve)
	}
	if out.Contact {
		d.Kinds = append(d.Kinds, KindContact)
	}
	if out.News {
		d.Kinds = append(d.Kinds, KindNews)
	}
	if len(d.Kinds) == 0 {
		return Decision{}, errors.New("classifier selected no capability")
	}
	d.Reason = "llm: " + out.Reason
	return d, nil
}
