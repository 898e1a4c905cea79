package generator

import (
	"fmt"
	"strings"
)

// Publication is the masthead name used in every preamble.
const Publication = "Dad's Workout Health Magazine"

const (
	columnMaxTokens    = 4000
	wildcardMaxTokens  = 2000
	editorialMaxTokens = 4000
	topicMaxTokens     = 100
	angleMaxTokens     = 150

	wildcardMinWords = 600
	wildcardMaxWords = 800
)

// Prompt 表示发送给 LLM 的一次请求。
type Prompt struct {
	System    string
	User      string
	MaxTokens int
	// Model overrides the client's default model when set.
	Model string
}

// BuildColumnPrompt builds the request for a main column written as profile p.
func BuildColumnPrompt(p Profile, in ColumnInput) Prompt {
	var sb strings.Builder
	sb.WriteString("Write your column on the following topic:\n\n")
	sb.WriteString(fmt.Sprintf("**Topic:** %s\n\n", in.Topic))
	sb.WriteString(fmt.Sprintf("**Angle/Focus:** %s\n\n", in.Angle))
	sb.WriteString(fmt.Sprintf("**Target Length:** %d-%d words", p.MinWords, p.MaxWords))
	if len(in.Related) > 0 {
		sb.WriteString(fmt.Sprintf("\n\n**Related Topics to Consider:** %s", strings.Join(in.Related, ", ")))
	}
	if len(in.Avoid) > 0 {
		sb.WriteString(fmt.Sprintf("\n\n**Topics to Avoid (recently covered):** %s", strings.Join(in.Avoid, ", ")))
	}
	sb.WriteString("\n\n")
	sb.WriteString(formatInstructions("Your article title", "A 1-2 sentence hook/excerpt for previews", "Your full article content here"))

	return Prompt{
		System:    profilePreamble(p),
		User:      sb.String(),
		MaxTokens: columnMaxTokens,
	}
}

func profilePreamble(p Profile) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You are %s, %s (%s), writing for %q.\n\n", p.Name, p.Title, p.Credentials, Publication))
	sb.WriteString("BACKGROUND:\n")
	sb.WriteString(p.Background)
	sb.WriteString("\n\nEXPERTISE:\n")
	writeBullets(&sb, p.Expertise)
	sb.WriteString("\nWRITING VOICE:\n")
	sb.WriteString(fmt.Sprintf("- %s\n", p.Style))
	writeBullets(&sb, p.Voice)
	sb.WriteString("\nWRITING STYLE:\n")
	writeBullets(&sb, p.Structure)
	sb.WriteString(fmt.Sprintf("- Target length: %d-%d words\n", p.MinWords, p.MaxWords))
	if p.SampleOpening != "" {
		sb.WriteString(fmt.Sprintf("\nSAMPLE OPENING: %q\n", p.SampleOpening))
	}
	sb.WriteString("\nRemember: You're writing for busy dads who are trying to stay fit while juggling family, work, and life.")
	return sb.String()
}

// BuildWildcardPrompt builds the request for the guest column of persona p.
func BuildWildcardPrompt(p Persona, topic, angle string) Prompt {
	var sys strings.Builder
	sys.WriteString(fmt.Sprintf("You are %s, a guest columnist for %q.\n\n", p.Name, Publication))
	sys.WriteString(fmt.Sprintf("BIO: %s\n\n", p.Bio))
	sys.WriteString("YOUR BACKGROUND:\nYou're not a fitness professional, but you have a unique perspective on health and wellness that comes from your life experience. Your column brings unexpected wisdom and comic relief to the magazine.\n\n")
	sys.WriteString("WRITING VOICE:\n")
	sys.WriteString(fmt.Sprintf("- %s\n", p.Style))
	sys.WriteString("- Bring humor and a fresh perspective\n")
	sys.WriteString("- Your advice should actually be useful, despite the comedic framing\n")
	sys.WriteString("- You can playfully contradict the \"official\" expert advice\n\n")
	sys.WriteString("EXPERTISE AREAS:\n")
	writeBullets(&sys, p.Expertise)
	sys.WriteString(fmt.Sprintf("\nSAMPLE OPENING: %q\n\n", p.SampleOpening))
	sys.WriteString(fmt.Sprintf("TARGET LENGTH: %d-%d words", wildcardMinWords, wildcardMaxWords))

	var user strings.Builder
	user.WriteString("Write your guest column on the following topic:\n\n")
	user.WriteString(fmt.Sprintf("**Topic:** %s\n\n", topic))
	user.WriteString(fmt.Sprintf("**Angle/Focus:** %s\n\n", angle))
	user.WriteString(formatInstructions(
		"Your article title - can be funny/quirky",
		"A 1-2 sentence hook for previews",
		fmt.Sprintf("Your full article content here - %d-%d words", wildcardMinWords, wildcardMaxWords),
	))

	return Prompt{System: sys.String(), User: user.String(), MaxTokens: wildcardMaxTokens}
}

func formatInstructions(title, excerpt, content string) string {
	return fmt.Sprintf("Provide your article in the following format:\n\n%s [%s]\n\n%s [%s]\n\n%s\n[%s]\n\nBegin writing now.",
		markerTitle, title, markerExcerpt, excerpt, markerContent, content)
}

const editorSystem = `You are the Editor-in-Chief for "Dad's Workout Health Magazine," a weekly fitness and wellness digest for active fathers ages 35-60.

YOUR ROLE:
You receive content from multiple expert writers and create the supporting editorial content that ties each issue together.

BRAND VOICE:
- Supportive and encouraging, never preachy or condescending
- Expert-backed but accessible to fitness newcomers
- Celebrates progress over perfection

YOUR OUTPUTS:
1. Editor's Letter (200-300 words)
2. Quick Wins (3 tips, 50-75 words each)
3. Gear Corner (150-200 words): one honest product recommendation with pros/cons
4. Reader Q&A (2 questions, 100-150 words each)
5. Challenge Update (100-150 words)

FORMAT: Always output valid JSON matching the specified structure.`

const editorSchema = `{
  "issueTitle": "A catchy title for this week's issue (5-8 words)",
  "editorsLetter": "Your 200-300 word editor's letter here",
  "quickWins": [
    {"title": "Short tip title", "content": "50-75 word actionable tip", "category": "workout|nutrition|mindset|recovery|lifestyle"}
  ],
  "gearCorner": {
    "productName": "Product name",
    "description": "150-200 word honest review",
    "price": "$XX-$XX range",
    "pros": ["pro 1", "pro 2", "pro 3"],
    "cons": ["con 1", "con 2"]
  },
  "readerQA": [
    {"question": "Reader's question here?", "answer": "100-150 word expert answer", "answeringExpert": "Expert name who would answer this"}
  ],
  "challengeUpdate": "100-150 word challenge update with encouragement and week-specific tips"
}`

// BuildEditorialPrompt builds the single editor request for the week.
func BuildEditorialPrompt(in EditorialInput) Prompt {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Create the editorial content for Issue #%d (Week %d).\n\n", in.Sequence, in.CycleIndex))
	sb.WriteString("THIS WEEK'S MAIN COLUMNS:\n")
	for _, a := range in.Main {
		sb.WriteString(fmt.Sprintf("- %q by %s (%s): %s...\n", a.Title, a.AuthorName, a.AuthorTitle, summary(a)))
	}
	sb.WriteString("\nWILDCARD GUEST COLUMN:\n")
	sb.WriteString(fmt.Sprintf("- %q by %s: %s...\n\n", in.Wildcard.Title, in.Wildcard.AuthorName, summary(in.Wildcard)))
	sb.WriteString("MONTHLY CHALLENGE:\n")
	sb.WriteString(fmt.Sprintf("- Challenge: %s\n", in.Program.Title))
	sb.WriteString(fmt.Sprintf("- Current Week: %d\n", in.Program.Week))
	sb.WriteString(fmt.Sprintf("- This Week's Milestone: %s\n\n", in.Program.Milestone))
	sb.WriteString("Generate the editorial content in the following JSON format, with exactly 3 quickWins and 2 readerQA entries:\n")
	sb.WriteString(editorSchema)
	sb.WriteString("\n\nOutput ONLY valid JSON, no markdown code blocks or additional text.")

	return Prompt{System: editorSystem, User: sb.String(), MaxTokens: editorialMaxTokens}
}

func summary(a Article) string {
	if a.Excerpt != "" {
		return a.Excerpt
	}
	r := []rune(a.Body)
	if len(r) > 200 {
		r = r[:200]
	}
	return string(r)
}

// BuildTopicPrompt asks for one fresh topic inside p's expertise that is not
// one of avoid.
func BuildTopicPrompt(p Profile, avoid []string) Prompt {
	var sb strings.Builder
	fmt.Fprintf(&sb, `Generate ONE specific, actionable topic for a %s to write about for busy dads trying to stay fit.

The topic should be:
- Specific and focused (not broad like "fitness" but specific like "morning stretches for desk workers")
- Within these areas: %s
- Relevant to dads aged 35-60
- Practical and immediately useful

Output ONLY the topic name, nothing else.`, p.Title, strings.Join(p.Areas, ", "))
	if len(avoid) > 0 {
		sb.WriteString("\n\nThese topics were covered recently or are already taken this week. Do NOT suggest any of them:\n")
		for _, t := range avoid {
			sb.WriteString("- " + t + "\n")
		}
	}
	return Prompt{User: sb.String(), MaxTokens: topicMaxTokens}
}

// BuildAnglePrompt asks for a 1-2 sentence angle for p on topic.
func BuildAnglePrompt(p Profile, topic string) Prompt {
	user := fmt.Sprintf(`Generate a unique, specific angle for %s (%s) to cover the topic %q for busy dads.

The angle should:
- Be fresh and interesting
- Match the expert's specialty
- Have a clear point of view
- Be achievable in %d-%d words

Output ONLY the angle in 1-2 sentences, nothing else.`, p.Name, p.Title, topic, p.MinWords, p.MaxWords)
	return Prompt{User: user, MaxTokens: angleMaxTokens}
}

func writeBullets(sb *strings.Builder, items []string) {
	for _, it := range items {
		sb.WriteString("- ")
		sb.WriteString(it)
		sb.WriteString("\n")
	}
}
