package storage

import (
	"context"
	"testing"
	"time"

	"brandcast-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func testBrand() models.BrandIdentity {
	return models.BrandIdentity{
		Name:               "Glow Coffee",
		OneLineDescription: "Small-batch roastery",
		Tone:               models.StringList{"warm", "playful"},
		AudienceSummary:    "City commuters who care about origin",
		HeroItems:          models.StringList{"Ethiopia Single Origin"},
		ValueProp:          "Fresh roasts delivered weekly",
		PrimaryColorHex:    "#FF7A00",
	}
}

func TestBrandProfileUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetBrandProfile(ctx, "acct-1")
	assert.ErrorIs(t, err, ErrNotFound)

	profile := &models.BrandProfile{AccountID: "acct-1", Brand: testBrand()}
	require.NoError(t, store.SaveBrandProfile(ctx, profile))

	got, err := store.GetBrandProfile(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "Glow Coffee", got.Brand.Name)
	assert.Equal(t, models.StringList{"warm", "playful"}, got.Brand.Tone)

	// Re-save replaces the identity wholesale.
	updated := testBrand()
	updated.Name = "Glow Coffee Co"
	updated.WordsToAvoid = models.StringList{"cheap"}
	require.NoError(t, store.SaveBrandProfile(ctx, &models.BrandProfile{AccountID: "acct-1", Brand: updated}))

	got, err = store.GetBrandProfile(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "Glow Coffee Co", got.Brand.Name)
	assert.Equal(t, models.StringList{"cheap"}, got.Brand.WordsToAvoid)
}

func TestRequestRoundtripAndListOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := &models.ContentRequest{
		ID:        "req-old",
		AccountID: "acct-1",
		Brief:     models.ContentBrief{Goal: "promote sale", SocialPlatform: models.PlatformInstagram},
		Status:    models.RequestStatusQueued,
		CreatedAt: time.Now().Add(-time.Hour),
	}
	newer := &models.ContentRequest{
		ID:        "req-new",
		AccountID: "acct-1",
		Brief:     models.ContentBrief{Goal: "announce launch", SocialPlatform: models.PlatformTikTok},
		Status:    models.RequestStatusQueued,
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.SaveRequest(ctx, older))
	require.NoError(t, store.SaveRequest(ctx, newer))

	got, err := store.GetRequest(ctx, "req-old")
	require.NoError(t, err)
	assert.Equal(t, "promote sale", got.Brief.Goal)

	list, err := store.ListRequests(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "req-new", list[0].ID)
	assert.Equal(t, "req-old", list[1].ID)

	_, err = store.GetRequest(ctx, "req-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRequestStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	req := &models.ContentRequest{
		ID:        "req-1",
		AccountID: "acct-1",
		Brief:     models.ContentBrief{Goal: "promote", SocialPlatform: models.PlatformTwitter},
		Status:    models.RequestStatusQueued,
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.SaveRequest(ctx, req))

	require.NoError(t, store.UpdateRequestStatus(ctx, "req-1", models.RequestStatusProcessing, ""))
	got, err := store.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusProcessing, got.Status)
	assert.Empty(t, got.ErrorMessage)

	require.NoError(t, store.UpdateRequestStatus(ctx, "req-1", models.RequestStatusFailed, "provider exploded"))
	got, err = store.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusFailed, got.Status)
	assert.Equal(t, "provider exploded", got.ErrorMessage)

	err = store.UpdateRequestStatus(ctx, "req-missing", models.RequestStatusCompleted, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDraftsRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	drafts, err := store.GetDrafts(ctx, "req-1")
	require.NoError(t, err)
	assert.Empty(t, drafts)

	url := "https://cdn.example.com/img.png"
	provider := "openai"
	cost := 0.04
	require.NoError(t, store.SaveDrafts(ctx, []models.ContentDraft{
		{ID: "d-1", RequestID: "req-1", Caption: "hello", ImagePrompt: "a cup of coffee"},
		{ID: "d-2", RequestID: "req-1", Caption: "world", ImagePrompt: "beans on a table",
			ImageURL: &url, ImageProvider: &provider, ImageCost: &cost},
	}))

	drafts, err = store.GetDrafts(ctx, "req-1")
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, "hello", drafts[0].Caption)
	require.NotNil(t, drafts[1].ImageURL)
	assert.Equal(t, url, *drafts[1].ImageURL)
	assert.Nil(t, drafts[0].ImageURL)
}

func TestSaveDraftsRejectsMixedRequestBatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.SaveDrafts(ctx, []models.ContentDraft{
		{ID: "d-1", RequestID: "req-1", Caption: "hello"},
		{ID: "d-2", RequestID: "req-2", Caption: "world"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mixes requests")

	// Nothing was written under either request.
	drafts, err := store.GetDrafts(ctx, "req-1")
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestDeleteRequestCascadesDrafts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	req := &models.ContentRequest{
		ID:        "req-1",
		AccountID: "acct-1",
		Brief:     models.ContentBrief{Goal: "promote", SocialPlatform: models.PlatformInstagram},
		Status:    models.RequestStatusCompleted,
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.SaveRequest(ctx, req))
	require.NoError(t, store.SaveDrafts(ctx, []models.ContentDraft{
		{ID: "d-1", RequestID: "req-1", Caption: "hello"},
	}))

	require.NoError(t, store.DeleteRequest(ctx, "req-1"))

	_, err := store.GetRequest(ctx, "req-1")
	assert.ErrorIs(t, err, ErrNotFound)
	drafts, err := store.GetDrafts(ctx, "req-1")
	require.NoError(t, err)
	assert.Empty(t, drafts)

	err = store.DeleteRequest(ctx, "req-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
