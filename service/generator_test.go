package service

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"brandcast-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGenBrand() models.BrandIdentity {
	return models.BrandIdentity{
		Name:               "Glow Coffee",
		OneLineDescription: "Small-batch roastery",
		Tone:               models.StringList{"warm", "playful"},
		AudienceSummary:    "City commuters",
		HeroItems:          models.StringList{"Ethiopia Single Origin"},
		ValueProp:          "Fresh roasts delivered weekly",
		PrimaryColorHex:    "#FF7A00",
		ImageStyleNote:     "warm film grain",
	}
}

func testGenBrief() models.ContentBrief {
	return models.ContentBrief{
		Goal:           "Promote the spring sale",
		Theme:          "spring renewal",
		CallToAction:   "Order today",
		SocialPlatform: models.PlatformInstagram,
	}
}

func TestBuildPromptIncludesBrandAndBrief(t *testing.T) {
	prompt := BuildPrompt(testGenBrand(), testGenBrief())

	assert.Contains(t, prompt, "Glow Coffee")
	assert.Contains(t, prompt, "warm, playful")
	assert.Contains(t, prompt, "Promote the spring sale")
	assert.Contains(t, prompt, "Order today")
	assert.Contains(t, prompt, "hashtags")
	// Platform hint for instagram, not the generic one.
	assert.Contains(t, prompt, "stories-friendly")
}

func TestBuildPromptUnknownPlatformGetsGenericHint(t *testing.T) {
	brief := testGenBrief()
	brief.SocialPlatform = "myspace"
	prompt := BuildPrompt(testGenBrand(), brief)
	assert.Contains(t, prompt, "Standard social media best practices")
}

func TestParseResponseStrictJSON(t *testing.T) {
	raw := `[
		{"caption": "First post", "imagePrompt": "a red cup", "hashtags": ["coffee"]},
		{"text": "Second post", "image_prompt": "a blue cup"},
		{"caption": "Third post"}
	]`
	drafts := parseResponse(raw, testGenBrief())

	require.Len(t, drafts, 3)
	assert.Equal(t, "First post", drafts[0].Caption)
	assert.Equal(t, "a red cup", drafts[0].ImagePrompt)
	assert.Equal(t, models.StringList{"coffee"}, drafts[0].Hashtags)
	// Synonym keys are accepted.
	assert.Equal(t, "Second post", drafts[1].Caption)
	assert.Equal(t, "a blue cup", drafts[1].ImagePrompt)
	// Missing image prompt is synthesized from the platform.
	assert.Contains(t, drafts[2].ImagePrompt, "instagram")
}

func TestParseResponseFencedJSON(t *testing.T) {
	raw := "```json\n[{\"caption\": \"Fenced\", \"imagePrompt\": \"a cup\"}]\n```"
	drafts := parseResponse(raw, testGenBrief())
	require.Len(t, drafts, 1)
	assert.Equal(t, "Fenced", drafts[0].Caption)
}

func TestParseResponseCapsAtThree(t *testing.T) {
	raw := `[{"caption":"a","imagePrompt":"p"},{"caption":"b","imagePrompt":"p"},
		{"caption":"c","imagePrompt":"p"},{"caption":"d","imagePrompt":"p"}]`
	drafts := parseResponse(raw, testGenBrief())
	assert.Len(t, drafts, 3)
}

func TestParseResponseDelimitedWithLabels(t *testing.T) {
	raw := "Caption: Morning brew magic\nImage Prompt: sunrise over a pour-over\n---\nCaption: Beans with a story\nImage Prompt: burlap sack of green beans"
	drafts := parseResponse(raw, testGenBrief())

	require.Len(t, drafts, 2)
	assert.Equal(t, "Morning brew magic", drafts[0].Caption)
	assert.Equal(t, "sunrise over a pour-over", drafts[0].ImagePrompt)
	assert.Equal(t, "Beans with a story", drafts[1].Caption)
}

func TestParseResponseNumberedSections(t *testing.T) {
	raw := "Here are your posts:\n1. Caption: First one\nImage Prompt: a cup\n2. Caption: Second one\nImage Prompt: a saucer"
	drafts := parseResponse(raw, testGenBrief())

	require.True(t, len(drafts) >= 2 && len(drafts) <= 3)
	found := false
	for _, d := range drafts {
		if d.Caption == "Second one" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestParseResponseUnlabeledSectionSynthesizesPrompt(t *testing.T) {
	raw := "Just a plain caption line\nwith a second line of detail"
	drafts := parseResponse(raw, testGenBrief())

	require.Len(t, drafts, 1)
	assert.Contains(t, drafts[0].Caption, "Just a plain caption line")
	assert.Contains(t, drafts[0].ImagePrompt, "instagram")
	assert.Contains(t, drafts[0].ImagePrompt, "complements")
}

func TestParseResponseAlwaysYieldsDrafts(t *testing.T) {
	for _, raw := range []string{
		"",
		"   \n  ",
		`{"not":"an array"}`,
		strings.Repeat("x", 600),
	} {
		drafts := parseResponse(raw, testGenBrief())
		assert.GreaterOrEqual(t, len(drafts), 1, "input %q", raw)
		assert.LessOrEqual(t, len(drafts), 3, "input %q", raw)
	}
}

func TestParseResponseWhitespaceFallbackDraft(t *testing.T) {
	raw := "   \n" // whitespace only: falls through both parse tiers
	drafts := parseResponse(raw, testGenBrief())
	require.Len(t, drafts, 1)
	assert.Contains(t, drafts[0].ImagePrompt, "Promote the spring sale")
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 10))
	assert.Equal(t, "ab", truncateRunes("abcd", 2))
	// Never cuts through a multi-byte rune.
	s := strings.Repeat("é", 60) // 2 bytes each
	got := truncateRunes(s, 101)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 100, len(got))
}

func TestParseResponsePreviewKeepsValidUTF8(t *testing.T) {
	// An unlabeled section whose 100th byte lands inside a rune.
	raw := strings.Repeat("é", 120)
	drafts := parseResponse(raw, testGenBrief())

	require.Len(t, drafts, 1)
	assert.True(t, utf8.ValidString(drafts[0].ImagePrompt))
	assert.True(t, utf8.ValidString(drafts[0].Caption))
}

func TestGenerateContentWithoutTextClientUsesMocks(t *testing.T) {
	gen := &Generator{}
	drafts, err := gen.GenerateContent(context.Background(), testGenBrand(), testGenBrief())

	require.NoError(t, err)
	require.Len(t, drafts, 3)
	// Instagram mock drafts carry brand/theme hashtags.
	assert.Contains(t, drafts[0].Caption, "#GlowCoffee")
	assert.Contains(t, drafts[0].Caption, "#springrenewal")
	assert.Contains(t, drafts[0].Caption, "Order today")
	// Image prompts carry the style note and hero item.
	assert.Contains(t, drafts[0].ImagePrompt, "warm film grain")
	assert.Contains(t, drafts[0].ImagePrompt, "Ethiopia Single Origin")
	assert.Contains(t, drafts[0].ImagePrompt, "#FF7A00")
	// Every draft has an id and no image fields yet.
	for _, d := range drafts {
		assert.NotEmpty(t, d.ID)
		assert.Nil(t, d.ImageURL)
		assert.Nil(t, d.ImageProvider)
		assert.Nil(t, d.ImageCost)
	}
}

func TestMockDraftsTikTokEmoji(t *testing.T) {
	brief := testGenBrief()
	brief.SocialPlatform = models.PlatformTikTok
	drafts := mockDrafts(testGenBrand(), brief)

	require.Len(t, drafts, 3)
	for _, d := range drafts {
		assert.True(t, strings.HasPrefix(d.Caption, "✨ "))
		assert.NotContains(t, d.Caption, "#GlowCoffee")
	}
}

func TestEnrichWithImagesSetsFieldsTogether(t *testing.T) {
	ok := &fakeProvider{name: "openai", available: true, cost: 0.04}
	gen := &Generator{Images: NewImageService("openai", nil, ok)}

	drafts := gen.EnrichWithImages(context.Background(), []models.ContentDraft{
		{ID: "d-1", Caption: "hello", ImagePrompt: "a cup"},
	})

	require.Len(t, drafts, 1)
	require.NotNil(t, drafts[0].ImageURL)
	require.NotNil(t, drafts[0].ImageProvider)
	require.NotNil(t, drafts[0].ImageCost)
	assert.Equal(t, "openai", *drafts[0].ImageProvider)
	assert.Equal(t, 0.04, *drafts[0].ImageCost)
}

func TestEnrichWithImagesDegradesToTextOnly(t *testing.T) {
	down := &fakeProvider{name: "openai", available: false}
	gen := &Generator{Images: NewImageService("openai", nil, down)}

	drafts := gen.EnrichWithImages(context.Background(), []models.ContentDraft{
		{ID: "d-1", Caption: "hello", ImagePrompt: "a cup"},
	})

	require.Len(t, drafts, 1)
	assert.Nil(t, drafts[0].ImageURL)
	assert.Nil(t, drafts[0].ImageProvider)
	assert.Nil(t, drafts[0].ImageCost)
}
