package research

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-crm/internal/model"
	"github.com/sells-group/lead-crm/internal/store"
)

const testSource = "Deep Research"

func TestReconcile_CreatesNewLead(t *testing.T) {
	st := newFakeStore()
	city := st.addCity("Berlin", "Germany")
	rec := NewReconciler(st, testSource)

	lead, err := rec.Reconcile(context.Background(), model.CandidateLead{
		Name:        "Acme",
		Company:     "Acme GmbH",
		Email:       "info@acme.de",
		LeadType:    "Restaurant",
		Temperature: model.TemperatureWarm,
		Tags:        []string{"mitte", "family-run"},
	}, *city)
	require.NoError(t, err)

	assert.Equal(t, "Acme", lead.Name)
	assert.Equal(t, city.ID, lead.CityID)
	assert.Equal(t, testSource, lead.Source)
	assert.Equal(t, model.LeadStatusNew, lead.Status)
	assert.Equal(t, model.TemperatureWarm, lead.Temperature)
	assert.NotEmpty(t, lead.LeadTypeID)

	tags, err := st.ListLeadTags(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Len(t, tags, 2)
}

func TestReconcile_UnknownTemperatureDefaultsCold(t *testing.T) {
	st := newFakeStore()
	city := st.addCity("Berlin", "Germany")
	rec := NewReconciler(st, testSource)

	lead, err := rec.Reconcile(context.Background(), model.CandidateLead{
		Name:        "Acme",
		Temperature: model.Temperature("scorching"),
	}, *city)
	require.NoError(t, err)
	assert.Equal(t, model.TemperatureCold, lead.Temperature)
}

func TestReconcile_FillsBlanksOnly(t *testing.T) {
	st := newFakeStore()
	city := st.addCity("Berlin", "Germany")
	existing := &model.Lead{Name: "Acme", Company: "OldCo", CityID: city.ID}
	require.NoError(t, st.CreateLead(context.Background(), existing))

	rec := NewReconciler(st, testSource)
	lead, err := rec.Reconcile(context.Background(), model.CandidateLead{
		Name:    "Acme",
		Email:   "a@x.com",
		Company: "NewCo",
	}, *city)
	require.NoError(t, err)

	assert.Equal(t, existing.ID, lead.ID)
	assert.Equal(t, "a@x.com", lead.Email, "blank field is filled")
	assert.Equal(t, "OldCo", lead.Company, "non-empty field is preserved")
}

func TestReconcile_MatchesByContactBeforeNameCity(t *testing.T) {
	st := newFakeStore()
	berlin := st.addCity("Berlin", "Germany")
	hamburg := st.addCity("Hamburg", "Germany")

	// Same email, different name and city: the contact match must win.
	existing := &model.Lead{Name: "Acme Berlin", Email: "info@acme.de", CityID: berlin.ID}
	require.NoError(t, st.CreateLead(context.Background(), existing))

	rec := NewReconciler(st, testSource)
	lead, err := rec.Reconcile(context.Background(), model.CandidateLead{
		Name:  "Acme Hamburg",
		Email: "INFO@ACME.DE",
	}, *hamburg)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, lead.ID)
	assert.Equal(t, "Acme Berlin", lead.Name, "name is never overwritten")
}

func TestReconcile_ContactFieldOrderIsDeterministic(t *testing.T) {
	st := newFakeStore()
	city := st.addCity("Berlin", "Germany")

	byEmail := &model.Lead{Name: "Email Lead", Email: "a@x.com", CityID: city.ID}
	byPhone := &model.Lead{Name: "Phone Lead", Phone: "+49123", CityID: city.ID}
	require.NoError(t, st.CreateLead(context.Background(), byEmail))
	require.NoError(t, st.CreateLead(context.Background(), byPhone))

	// Candidate matches both; email is checked first.
	rec := NewReconciler(st, testSource)
	lead, err := rec.Reconcile(context.Background(), model.CandidateLead{
		Name:  "Whoever",
		Email: "a@x.com",
		Phone: "+49123",
	}, *city)
	require.NoError(t, err)
	assert.Equal(t, byEmail.ID, lead.ID)
}

func TestReconcile_MatchesByNameCity(t *testing.T) {
	st := newFakeStore()
	city := st.addCity("Berlin", "Germany")
	existing := &model.Lead{Name: "Acme", CityID: city.ID}
	require.NoError(t, st.CreateLead(context.Background(), existing))

	rec := NewReconciler(st, testSource)
	lead, err := rec.Reconcile(context.Background(), model.CandidateLead{Name: "acme"}, *city)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, lead.ID)
}

func TestReconcile_TagsAreAdditive(t *testing.T) {
	st := newFakeStore()
	ctx := context.Background()
	city := st.addCity("Berlin", "Germany")

	existing := &model.Lead{Name: "Acme", CityID: city.ID}
	require.NoError(t, st.CreateLead(ctx, existing))
	old, err := st.GetOrCreateTag(ctx, "vip")
	require.NoError(t, err)
	require.NoError(t, st.AddLeadTag(ctx, existing.ID, old.ID))

	rec := NewReconciler(st, testSource)
	_, err = rec.Reconcile(ctx, model.CandidateLead{
		Name: "Acme",
		Tags: []string{"restaurant", "VIP"},
	}, *city)
	require.NoError(t, err)

	tags, err := st.ListLeadTags(ctx, existing.ID)
	require.NoError(t, err)
	assert.Len(t, tags, 2, "union of vip and restaurant, case-insensitive")
}

func TestReconcile_NeverReplacesLeadType(t *testing.T) {
	st := newFakeStore()
	ctx := context.Background()
	city := st.addCity("Berlin", "Germany")

	lt, err := st.GetOrCreateLeadType(ctx, "Cafe")
	require.NoError(t, err)
	existing := &model.Lead{Name: "Acme", CityID: city.ID, LeadTypeID: lt.ID}
	require.NoError(t, st.CreateLead(ctx, existing))

	rec := NewReconciler(st, testSource)
	lead, err := rec.Reconcile(ctx, model.CandidateLead{
		Name:     "Acme",
		LeadType: "Restaurant",
	}, *city)
	require.NoError(t, err)
	assert.Equal(t, lt.ID, lead.LeadTypeID)
}

func TestReconcile_AssignsLeadTypeWhenMissing(t *testing.T) {
	st := newFakeStore()
	ctx := context.Background()
	city := st.addCity("Berlin", "Germany")

	existing := &model.Lead{Name: "Acme", CityID: city.ID}
	require.NoError(t, st.CreateLead(ctx, existing))

	rec := NewReconciler(st, testSource)
	lead, err := rec.Reconcile(ctx, model.CandidateLead{
		Name:     "Acme",
		LeadType: "Restaurant",
	}, *city)
	require.NoError(t, err)
	assert.NotEmpty(t, lead.LeadTypeID)
}

func TestReconcile_Idempotent(t *testing.T) {
	st := newFakeStore()
	ctx := context.Background()
	city := st.addCity("Berlin", "Germany")
	rec := NewReconciler(st, testSource)

	cand := model.CandidateLead{
		Name:  "Acme",
		Email: "info@acme.de",
		Tags:  []string{"restaurant"},
	}

	first, err := rec.Reconcile(ctx, cand, *city)
	require.NoError(t, err)
	second, err := rec.Reconcile(ctx, cand, *city)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	leads, err := st.ListLeads(ctx, store.LeadFilter{})
	require.NoError(t, err)
	assert.Len(t, leads, 1)

	tags, err := st.ListLeadTags(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, tags, 1)
}

func TestReconcile_NormalizesWhitespace(t *testing.T) {
	st := newFakeStore()
	city := st.addCity("Berlin", "Germany")
	rec := NewReconciler(st, testSource)

	lead, err := rec.Reconcile(context.Background(), model.CandidateLead{
		Name:  "  Acme  ",
		Email: " info@acme.de ",
	}, *city)
	require.NoError(t, err)
	assert.Equal(t, "Acme", lead.Name)
	assert.Equal(t, "info@acme.de", lead.Email)
}

func TestReconcile_RejectsEmptyName(t *testing.T) {
	st := newFakeStore()
	city := st.addCity("Berlin", "Germany")
	rec := NewReconciler(st, testSource)

	_, err := rec.Reconcile(context.Background(), model.CandidateLead{Name: "   "}, *city)
	require.Error(t, err)
}
