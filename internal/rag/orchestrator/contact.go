package orchestrator

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
)

var (
	emailPattern    = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern    = regexp.MustCompile(`(?:\+33[\s.\-]?|0)[1-9](?:[\s.\-]?\d{2}){4}|\+\d{1,3}(?:[\s.\-]?\d){7,12}`)
	namePattern     = regexp.MustCompile(`(?i:my name is|i am|i'm|this is|je m'appelle|je suis|moi c'est)\s+(\p{Lu}[\p{L}'\-]*(?:\s+\p{Lu}[\p{L}'\-]*)?)`)
	interestPattern = regexp.MustCompile(`(?i:interested in|interest in|int[ée]ress[ée]e? par|regarding|concernant|au sujet de)\s+([^.,;!?\n]{3,80})`)
)

// ExtractContact pulls whatever contact fields the message carries.
func ExtractContact(message string) commonModels.Contact {
	c := commonModels.Contact{Message: strings.TrimSpace(message)}
	c.Email = emailPattern.FindString(message)
	c.Phone = strings.TrimSpace(phonePattern.FindString(message))
	if m := namePattern.FindStringSubmatch(message); m != nil {
		c.Name = strings.TrimSpace(m[1])
	}
	if m := interestPattern.FindStringSubmatch(message); m != nil {
		c.Interest = strings.TrimSpace(m[1])
	}
	return c
}

// ContactCapability saves contact requests that carry an email or a phone number.
type ContactCapability struct {
	store commonModels.ContactStore
	now   func() time.Time
}

func NewContactCapability(store commonModels.ContactStore) *ContactCapability {
	return &ContactCapability{store: store, now: time.Now}
}

func (c *ContactCapability) Kind() Kind { return KindContact }

func (c *ContactCapability) Run(ctx context.Context, req Request) (CapabilityOutput, error) {
	contact := ExtractContact(req.Message)
	contact.Timestamp = c.now().UTC()

	captured, missing := contactFields(contact)
	var sb strings.Builder
	if contact.Email == "" && contact.Phone == "" {
		sb.WriteString("Contact request received but not saved: ask the user for an email address or a phone number.")
	} else {
		if err := c.store.SaveContact(ctx, contact); err != nil {
			return CapabilityOutput{}, err
		}
		logger_i.FromContext(ctx, "ContactCapability").Info("Contact saved", "fields", len(captured))
		sb.WriteString("Contact information saved, the admissions team will follow up.")
	}
	if len(captured) > 0 {
		sb.WriteString(" Captured: " + strings.Join(captured, ", ") + ".")
	}
	if len(missing) > 0 {
		sb.WriteString(" Missing: " + strings.Join(missing, ", ") + ".")
	}

	return CapabilityOutput{Kind: KindContact, Text: sb.String(), Contact: &contact}, nil
}

func contactFields(c commonModels.Contact) (captured []string, missing []string) {
	fields := []struct {
		name  string
		value string
	}{
		{"name", c.Name}, {"email", c.Email}, {"phone", c.Phone}, {"interest", c.Interest},
	}
	for _, f := range fields {
		if f.value != "" {
			captured = append(captured, f.name+" "+f.value)
		} else {
			missing = append(missing, f.name)
		}
	}
	return captured, missing
}
