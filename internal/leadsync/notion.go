package leadsync

import (
	"context"

	"github.com/jomei/notionapi"

	"github.com/sells-group/lead-crm/internal/model"
	"github.com/sells-group/lead-crm/pkg/notion"
)

// titleProp is the title property of the lead database.
const titleProp = "Name"

// NotionTarget mirrors leads into a Notion database. Pages are matched by
// lead name.
type NotionTarget struct {
	client notion.Client
	dbID   string
}

// NewNotionTarget creates a Notion sync target for the given database.
func NewNotionTarget(client notion.Client, dbID string) *NotionTarget {
	return &NotionTarget{client: client, dbID: dbID}
}

func (t *NotionTarget) Name() string { return "notion" }

// SyncLead creates or updates the page for one lead.
func (t *NotionTarget) SyncLead(ctx context.Context, lead model.Lead, city model.City) (Action, error) {
	props := leadProperties(lead, city)

	page, err := notion.FindPageByTitle(ctx, t.client, t.dbID, titleProp, lead.Name)
	if err != nil {
		return "", err
	}

	if page == nil {
		_, err := t.client.CreatePage(ctx, &notionapi.PageCreateRequest{
			Parent: notionapi.Parent{
				Type:       notionapi.ParentTypeDatabaseID,
				DatabaseID: notionapi.DatabaseID(t.dbID),
			},
			Properties: props,
		})
		if err != nil {
			return "", err
		}
		return ActionCreated, nil
	}

	_, err = t.client.UpdatePage(ctx, string(page.ID), &notionapi.PageUpdateRequest{
		Properties: props,
	})
	if err != nil {
		return "", err
	}
	return ActionUpdated, nil
}

func leadProperties(lead model.Lead, city model.City) notionapi.Properties {
	props := notionapi.Properties{
		titleProp: notionapi.TitleProperty{
			Title: richText(lead.Name),
		},
		"Status": notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(lead.Status)},
		},
		"Temperature": notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(lead.Temperature)},
		},
	}

	setText := func(name, value string) {
		if value != "" {
			props[name] = notionapi.RichTextProperty{RichText: richText(value)}
		}
	}
	setText("Company", lead.Company)
	setText("Instagram", lead.Instagram)
	setText("Telegram", lead.Telegram)
	setText("Source", lead.Source)
	setText("Notes", lead.Notes)
	setText("City", city.String())

	if lead.Email != "" {
		props["Email"] = notionapi.EmailProperty{Email: lead.Email}
	}
	if lead.Phone != "" {
		props["Phone"] = notionapi.PhoneNumberProperty{PhoneNumber: lead.Phone}
	}
	if lead.Website != "" {
		props["Website"] = notionapi.URLProperty{URL: lead.Website}
	}
	if len(lead.Tags) > 0 {
		opts := make([]notionapi.Option, len(lead.Tags))
		for i, tag := range lead.Tags {
			opts[i] = notionapi.Option{Name: tag}
		}
		props["Tags"] = notionapi.MultiSelectProperty{MultiSelect: opts}
	}
	return props
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{{Text: &notionapi.Text{Content: s}}}
}
