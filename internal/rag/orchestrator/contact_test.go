package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractContact(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    commonModels.Contact
	}{
		{
			name:    "english with every field",
			message: "Hi, my name is Jane Doe, please contact me at jane.doe@example.com or +33 6 12 34 56 78, I'm interested in the cybersecurity major.",
			want: commonModels.Contact{
				Name: "Jane Doe", Email: "jane.doe@example.com", Phone: "+33 6 12 34 56 78", Interest: "the cybersecurity major",
			},
		},
		{
			name:    "french",
			message: "Je m'appelle Marie Curie, mon numéro est 06.12.34.56.78, je suis intéressée par le cycle ingénieur",
			want:    commonModels.Contact{Name: "Marie Curie", Phone: "06.12.34.56.78", Interest: "le cycle ingénieur"},
		},
		{
			name:    "nothing to capture",
			message: "call me back please",
			want:    commonModels.Contact{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractContact(tt.message)
			tt.want.Message = tt.message
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContactCapability_SavesWithEmail(t *testing.T) {
	store := &memoryContacts{}
	c := NewContactCapability(store)
	c.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }

	out, err := c.Run(context.Background(), Request{Message: "Please contact me at jane@doe.fr"})
	require.NoError(t, err)

	require.Len(t, store.contacts, 1)
	assert.Equal(t, "jane@doe.fr", store.contacts[0].Email)
	assert.Equal(t, c.now(), store.contacts[0].Timestamp)
	require.NotNil(t, out.Contact)
	assert.Contains(t, out.Text, "saved")
	assert.Contains(t, out.Text, "Missing: name, phone, interest.")
}

func TestContactCapability_AsksForDetails(t *testing.T) {
	store := &memoryContacts{}
	out, err := NewContactCapability(store).Run(context.Background(), Request{Message: "I want to be contacted"})
	require.NoError(t, err)

	assert.Empty(t, store.contacts)
	assert.Contains(t, out.Text, "not saved")
}

func TestContactCapability_StoreFailure(t *testing.T) {
	store := &memoryContacts{OnSave: func(ctx context.Context, c commonModels.Contact) error {
		return errors.New("redis down")
	}}
	_, err := NewContactCapability(store).Run(context.Background(), Request{Message: "jane@doe.fr"})
	assert.Error(t, err)
}
