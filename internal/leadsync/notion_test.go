package leadsync

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-crm/internal/model"
)

// fakeNotion scripts database queries and records page writes.
type fakeNotion struct {
	pages   []notionapi.Page
	created *notionapi.PageCreateRequest
	updated *notionapi.PageUpdateRequest
	updID   string
}

func (f *fakeNotion) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	return &notionapi.DatabaseQueryResponse{Results: f.pages}, nil
}

func (f *fakeNotion) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	f.created = req
	return &notionapi.Page{ID: "page-1"}, nil
}

func (f *fakeNotion) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	f.updID = pageID
	f.updated = req
	return &notionapi.Page{ID: notionapi.ObjectID(pageID)}, nil
}

func testLead() model.Lead {
	return model.Lead{
		ID:          "lead-1",
		Name:        "Acme",
		Company:     "Acme GmbH",
		Email:       "info@acme.de",
		Website:     "https://acme.de",
		Status:      model.LeadStatusNew,
		Temperature: model.TemperatureWarm,
		Source:      "Deep Research",
		Tags:        []string{"restaurant"},
	}
}

func TestNotionTarget_CreatesMissingPage(t *testing.T) {
	nc := &fakeNotion{}
	target := NewNotionTarget(nc, "db-1")

	action, err := target.SyncLead(context.Background(), testLead(), model.City{Name: "Berlin", Country: "Germany"})
	require.NoError(t, err)
	assert.Equal(t, ActionCreated, action)

	require.NotNil(t, nc.created)
	assert.Equal(t, notionapi.DatabaseID("db-1"), nc.created.Parent.DatabaseID)

	title, ok := nc.created.Properties["Name"].(notionapi.TitleProperty)
	require.True(t, ok)
	require.Len(t, title.Title, 1)
	assert.Equal(t, "Acme", title.Title[0].Text.Content)

	email, ok := nc.created.Properties["Email"].(notionapi.EmailProperty)
	require.True(t, ok)
	assert.Equal(t, "info@acme.de", email.Email)

	tags, ok := nc.created.Properties["Tags"].(notionapi.MultiSelectProperty)
	require.True(t, ok)
	require.Len(t, tags.MultiSelect, 1)
	assert.Equal(t, "restaurant", tags.MultiSelect[0].Name)
}

func TestNotionTarget_UpdatesExistingPage(t *testing.T) {
	nc := &fakeNotion{pages: []notionapi.Page{{ID: "page-7"}}}
	target := NewNotionTarget(nc, "db-1")

	action, err := target.SyncLead(context.Background(), testLead(), model.City{Name: "Berlin", Country: "Germany"})
	require.NoError(t, err)
	assert.Equal(t, ActionUpdated, action)
	assert.Nil(t, nc.created)
	assert.Equal(t, "page-7", nc.updID)
	require.NotNil(t, nc.updated)
}

func TestNotionTarget_OmitsEmptyFields(t *testing.T) {
	nc := &fakeNotion{}
	target := NewNotionTarget(nc, "db-1")

	lead := model.Lead{Name: "Bare", Status: model.LeadStatusNew, Temperature: model.TemperatureCold}
	_, err := target.SyncLead(context.Background(), lead, model.City{})
	require.NoError(t, err)

	_, hasEmail := nc.created.Properties["Email"]
	assert.False(t, hasEmail)
	_, hasTags := nc.created.Properties["Tags"]
	assert.False(t, hasTags)
}
