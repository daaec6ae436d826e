package analyzer

import (
	"fmt"
	"strings"

	"github.com/ibeckermayer/hnpulse/internal/types"
)

const perspectiveSystemPrompt = `You are an expert social media analyst with deep understanding of community discussions.

First, read through the content and comments step by step:

1. Content analysis:
   - Extract main topic and key points
   - Identify the core argument or information

2. Comment analysis:
   - Examine each comment carefully
   - Group similar viewpoints together
   - Note the sentiment and strength of each opinion

3. Consolidation:
   - Merge highly similar viewpoints (>70% overlap)
   - Keep only the most representative viewpoint from each group
   - Limit to maximum 5 distinct viewpoints
   - Calculate approximate support percentage for each

4. Final synthesis:
   - Determine overall community sentiment
   - Find the key areas of agreement/disagreement
   - Identify most impactful perspectives

Output the final result as a single JSON object in this exact format:
{
    "title": "concise but descriptive title",
    "summary": "comprehensive summary in one paragraph",
    "sentiment": "overall sentiment (positive/mixed/negative)",
    "viewpoints": [
        {
            "statement": "viewpoint detail",
            "support_percentage": 40
        }
    ]
}`

const summarySystemPrompt = "You summarize articles for a news digest. Reply with the summary only, no preamble."

const noContent = "[No content available]"

// buildPerspectivePrompt renders the story and its comments. The comment list
// is cut at the last whole comment that fits in maxChars; maxChars <= 0
// disables the limit.
func buildPerspectivePrompt(title, content string, comments []types.Comment, maxChars int) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Title: %s\n", title)
	if strings.TrimSpace(content) == "" {
		content = noContent
	}
	fmt.Fprintf(&sb, "Content: %s\n", truncate(content, maxChars/2))
	sb.WriteString("Comments:\n")

	for _, c := range comments {
		line := fmt.Sprintf("- %s: %s\n", c.Author, c.Content)
		if maxChars > 0 && sb.Len()+len(line) > maxChars {
			break
		}
		sb.WriteString(line)
	}

	return sb.String()
}

func buildSummaryPrompt(title, content string, maxChars int) string {
	return fmt.Sprintf("Title: %s\nContent: %s\n\nPlease provide a concise one-paragraph summary of the above content.",
		title, truncate(content, maxChars))
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func utf8RuneStart(b byte) bool { return b&0xC0 != 0x80 }
