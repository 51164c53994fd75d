package drafting

import (
	"fmt"
	"strings"
)

const promptTemplate = `You are an Instagram engagement expert. Generate a thoughtful, authentic comment for this Instagram post.

Post by: %s
Caption: %s

%s

Requirements:
- Be genuine and add value
- 2-3 sentences maximum
- One emoji at the end is OK
- Don't be generic ("Love this!" etc.)
- Reference specific content from the post
- Sound like a real person, not a bot

Generate ONLY the comment text, nothing else.`

// BuildPrompt renders the engagement prompt for req.
func BuildPrompt(req Request) string {
	handle := strings.TrimSpace(req.Handle)
	if handle == "" {
		handle = "Unknown"
	}
	guidelines := ""
	if g := strings.TrimSpace(req.Guidelines); g != "" {
		guidelines = "Voice Guidelines: " + g
	}
	return fmt.Sprintf(promptTemplate, handle, strings.TrimSpace(req.Caption), guidelines)
}
