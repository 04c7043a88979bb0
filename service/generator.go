package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"brandcast-server/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const maxDraftsPerRequest = 3

var platformHints = map[string]string{
	models.PlatformInstagram:     "Use relevant hashtags, engaging visuals, stories-friendly format",
	models.PlatformTwitter:       "Keep under 280 characters, use trending hashtags sparingly",
	models.PlatformTikTok:        "Fun, engaging, trend-aware content with strong hook",
	models.PlatformFacebook:      "Conversational tone, community-focused, longer form OK",
	models.PlatformLinkedIn:      "Professional tone, industry insights, networking focus",
	models.PlatformYouTubeShorts: "Attention-grabbing, vertical video optimized",
}

// Generator turns a brand identity plus a content brief into 1-3 drafts.
// A nil Text client or any provider error degrades to deterministic mock
// drafts; a nil Images service or per-draft image failure degrades that
// draft to text-only. The caller therefore always gets usable drafts.
type Generator struct {
	Text    *TextClient
	Images  *ImageService
	Uploads *Uploader // optional re-hosting of generated images

	ImageSize    string
	ImageQuality string
}

// GenerateContent returns between 1 and 3 drafts. The error return is
// diagnostic only (the original provider failure when mock fallback was
// used); drafts are valid either way.
func (g *Generator) GenerateContent(ctx context.Context, brand models.BrandIdentity, brief models.ContentBrief) ([]models.ContentDraft, error) {
	log.Printf("[generate] brand=%s platform=%s goal=%q", brand.Name, brief.SocialPlatform, brief.Goal)

	var drafts []models.ContentDraft
	var diagErr error

	if g.Text == nil {
		log.Printf("[generate] no text provider configured, using mock drafts")
		drafts = mockDrafts(brand, brief)
	} else {
		prompt := BuildPrompt(brand, brief)
		raw, err := g.Text.Complete(ctx, prompt)
		if err != nil {
			log.Printf("[generate] text provider failed, using mock drafts: %v", err)
			drafts = mockDrafts(brand, brief)
			diagErr = err
		} else {
			drafts = parseResponse(raw, brief)
		}
	}

	if g.Images != nil {
		drafts = g.EnrichWithImages(ctx, drafts)
	}
	return drafts, diagErr
}

// BuildPrompt embeds the brand identity and the brief into one instruction
// block, with a platform-specific style hint.
func BuildPrompt(brand models.BrandIdentity, brief models.ContentBrief) string {
	hint, ok := platformHints[brief.SocialPlatform]
	if !ok {
		hint = "Standard social media best practices"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a professional social media content creator. Generate 3 distinct social media posts for %s on %s.\n\n",
		brand.Name, brief.SocialPlatform)

	fmt.Fprintf(&b, "BRAND IDENTITY:\n")
	fmt.Fprintf(&b, "- Name: %s\n", brand.Name)
	fmt.Fprintf(&b, "- Description: %s\n", brand.OneLineDescription)
	fmt.Fprintf(&b, "- Brand Tone: %s\n", orDefault(strings.Join(brand.Tone, ", "), "neutral"))
	fmt.Fprintf(&b, "- Target Audience: %s\n", brand.AudienceSummary)
	fmt.Fprintf(&b, "- Value Proposition: %s\n", brand.ValueProp)
	fmt.Fprintf(&b, "- Key Products/Services: %s\n", orDefault(strings.Join(brand.HeroItems, ", "), "General services"))
	fmt.Fprintf(&b, "- Words to Use: %s\n", orDefault(strings.Join(brand.WordsWeLove, ", "), "N/A"))
	fmt.Fprintf(&b, "- Words to Avoid: %s\n\n", orDefault(strings.Join(brand.WordsToAvoid, ", "), "N/A"))

	fmt.Fprintf(&b, "CONTENT BRIEF:\n")
	fmt.Fprintf(&b, "- Primary Goal: %s\n", brief.Goal)
	fmt.Fprintf(&b, "- Theme/Topic: %s\n", orDefault(brief.Theme, "Brand promotion"))
	fmt.Fprintf(&b, "- Call to Action: %s\n", orDefault(brief.CallToAction, "Engage with our brand"))
	fmt.Fprintf(&b, "- Constraints: %s\n\n", orDefault(strings.Join(brief.Constraints, ", "), "None"))

	fmt.Fprintf(&b, "PLATFORM GUIDELINES (%s):\n%s\n\n", brief.SocialPlatform, hint)

	fmt.Fprintf(&b, "INSTRUCTIONS:\n")
	fmt.Fprintf(&b, "1. Create 3 different approaches: Educational, Story-driven, and Direct promotional\n")
	fmt.Fprintf(&b, "2. Each post must keep the brand tone and target the specified audience\n")
	fmt.Fprintf(&b, "3. Include platform-appropriate formatting and elements\n\n")

	fmt.Fprintf(&b, "FORMAT YOUR RESPONSE AS JSON:\n")
	fmt.Fprintf(&b, `[{"caption": "...", "imagePrompt": "...", "hashtags": ["tag1", "tag2"]}, ...]`)
	return b.String()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// truncateRunes caps s at n bytes without splitting a multi-byte rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

var (
	sectionSplitRe = regexp.MustCompile(`\n\s*---\s*\n|\n\s*\d+\.\s*`)
	captionRe      = regexp.MustCompile(`(?is)(?:caption|text)\s*:\s*(.+?)(?:\n\s*(?:image prompt|image|prompt)\s*:|$)`)
	imagePromptRe  = regexp.MustCompile(`(?is)(?:image prompt|image|prompt)\s*:\s*(.+)$`)
)

type parsedDraft struct {
	Caption     string   `json:"caption"`
	Text        string   `json:"text"`
	ImagePrompt string   `json:"imagePrompt"`
	ImageSnake  string   `json:"image_prompt"`
	Hashtags    []string `json:"hashtags"`
}

// parseResponse turns the raw model output into drafts using a three-tier
// strategy: strict JSON, then delimiter-split text with labeled fields,
// then a single truncated fallback draft. Output is capped at 3.
func parseResponse(raw string, brief models.ContentBrief) []models.ContentDraft {
	if drafts := parseJSONResponse(raw, brief); len(drafts) > 0 {
		return capDrafts(drafts)
	}
	if drafts := parseDelimitedResponse(raw, brief); len(drafts) > 0 {
		return capDrafts(drafts)
	}

	log.Printf("[generate] unparseable response, synthesizing fallback draft")
	caption := raw
	if len(caption) > 500 {
		caption = truncateRunes(caption, 500) + "..."
	}
	return []models.ContentDraft{newDraft(
		caption,
		fmt.Sprintf("Professional image for %s post about %s", brief.SocialPlatform, brief.Goal),
		nil,
	)}
}

func parseJSONResponse(raw string, brief models.ContentBrief) []models.ContentDraft {
	trimmed := strings.TrimSpace(raw)
	// Models love fencing their JSON.
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")

	var items []parsedDraft
	if err := json.Unmarshal([]byte(strings.TrimSpace(trimmed)), &items); err != nil || len(items) == 0 {
		return nil
	}

	var drafts []models.ContentDraft
	for _, item := range items {
		caption := item.Caption
		if caption == "" {
			caption = item.Text
		}
		imagePrompt := item.ImagePrompt
		if imagePrompt == "" {
			imagePrompt = item.ImageSnake
		}
		if imagePrompt == "" {
			imagePrompt = fmt.Sprintf("Professional image for %s post", brief.SocialPlatform)
		}
		if caption == "" {
			continue
		}
		drafts = append(drafts, newDraft(caption, imagePrompt, item.Hashtags))
	}
	return drafts
}

func parseDelimitedResponse(raw string, brief models.ContentBrief) []models.ContentDraft {
	var sections []string
	for _, s := range sectionSplitRe.Split(raw, -1) {
		if strings.TrimSpace(s) != "" {
			sections = append(sections, strings.TrimSpace(s))
		}
	}

	var drafts []models.ContentDraft
	for i := 0; i < len(sections) && i < maxDraftsPerRequest; i++ {
		section := sections[i]

		var caption, imagePrompt string
		captionMatch := captionRe.FindStringSubmatch(section)
		imageMatch := imagePromptRe.FindStringSubmatch(section)
		if captionMatch != nil && imageMatch != nil {
			caption = strings.TrimSpace(captionMatch[1])
			imagePrompt = strings.TrimSpace(imageMatch[1])
		} else {
			// No labels: first half of the lines is the caption, the
			// image prompt is synthesized.
			var lines []string
			for _, l := range strings.Split(section, "\n") {
				if strings.TrimSpace(l) != "" {
					lines = append(lines, l)
				}
			}
			half := (len(lines) + 1) / 2
			caption = strings.TrimSpace(strings.Join(lines[:half], "\n"))
			preview := truncateRunes(caption, 100)
			imagePrompt = fmt.Sprintf("Professional %s image that complements: %s...", brief.SocialPlatform, preview)
		}

		if caption != "" {
			drafts = append(drafts, newDraft(caption, imagePrompt, nil))
		}
	}
	return drafts
}

func capDrafts(drafts []models.ContentDraft) []models.ContentDraft {
	if len(drafts) > maxDraftsPerRequest {
		return drafts[:maxDraftsPerRequest]
	}
	return drafts
}

func newDraft(caption, imagePrompt string, hashtags []string) models.ContentDraft {
	return models.ContentDraft{
		ID:          uuid.NewString(),
		Caption:     caption,
		ImagePrompt: imagePrompt,
		Hashtags:    hashtags,
		CreatedAt:   time.Now(),
	}
}

// mockDrafts synthesizes three on-brand drafts from static templates, one
// per angle, so the pipeline produces output even with no text provider.
func mockDrafts(brand models.BrandIdentity, brief models.ContentBrief) []models.ContentDraft {
	hashtags := ""
	if brief.SocialPlatform == models.PlatformInstagram {
		theme := brief.Theme
		if theme == "" {
			theme = "content"
		}
		hashtags = fmt.Sprintf("\n\n#%s #%s",
			strings.ReplaceAll(brand.Name, " ", ""),
			strings.ReplaceAll(theme, " ", ""))
	}
	emoji := ""
	if brief.SocialPlatform == models.PlatformTikTok {
		emoji = "✨ "
	}
	cta := ""
	if brief.CallToAction != "" {
		cta = "\n\n" + brief.CallToAction
	}

	captions := []string{
		fmt.Sprintf("%sDid you know? %s is easier than you think! %s%s%s",
			emoji, strings.ToLower(brief.Goal), brand.OneLineDescription, cta, hashtags),
		fmt.Sprintf("%sHere's what happened when we %s... The results? Amazing! %s%s%s",
			emoji, strings.ToLower(brief.Goal), brand.ValueProp, cta, hashtags),
		fmt.Sprintf("%s%s! %s%s%s",
			emoji, brief.Goal, brand.ValueProp, cta, hashtags),
	}
	angles := []string{
		"showing helpful information or before/after comparison",
		"featuring people or customers in a relatable situation",
		"with clear call-to-action text overlay",
	}

	style := orDefault(brand.ImageStyleNote, "professional, clean")
	theme := orDefault(brief.Theme, "modern")

	drafts := make([]models.ContentDraft, 0, len(captions))
	for i, caption := range captions {
		prompt := fmt.Sprintf("A %s image for %s, %s theme, %s color scheme, %s",
			style, brand.Name, theme, brand.PrimaryColorHex, angles[i])
		if len(brand.HeroItems) > 0 {
			prompt += fmt.Sprintf(", highlighting %s", brand.HeroItems[0])
		}
		drafts = append(drafts, newDraft(caption, prompt, nil))
	}
	return drafts
}

// EnrichWithImages attaches a generated image to each draft. A failure
// only degrades that one draft to text-only; the image fields stay nil.
func (g *Generator) EnrichWithImages(ctx context.Context, drafts []models.ContentDraft) []models.ContentDraft {
	for i := range drafts {
		result, err := g.Images.Generate(ctx, ImageRequest{
			Prompt:  drafts[i].ImagePrompt,
			Size:    g.ImageSize,
			Quality: g.ImageQuality,
			N:       1,
		})
		if err != nil {
			log.Printf("[generate] image enrichment failed for draft %s, keeping text-only: %v", drafts[i].ID, err)
			continue
		}
		if len(result.Images) == 0 {
			continue
		}

		url := result.Images[0].URL
		if g.Uploads != nil {
			object := fmt.Sprintf("drafts/%s/image.png", drafts[i].ID)
			hosted, err := g.Uploads.UploadImage(ctx, url, object)
			if err != nil {
				log.Printf("[generate] image upload failed, keeping provider url: %v", err)
			} else {
				url = hosted
			}
		}

		provider := result.Provider
		cost := result.Cost
		drafts[i].ImageURL = &url
		drafts[i].ImageProvider = &provider
		drafts[i].ImageCost = &cost
	}
	return drafts
}
