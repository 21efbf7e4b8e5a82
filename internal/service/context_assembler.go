package service

import (
	"fmt"
	"strings"

	"github.com/formbricks/popchoice/internal/models"
)

// NoMatchesContext is sent to the recommender in place of movie descriptions when the search found nothing.
const NoMatchesContext = "No matches found."

// SystemPrompt sets the recommender persona.
const SystemPrompt = "You are a friendly movie expert who recommends films and briefly explains why."

// AssembleContext joins the matched descriptions with newlines, keeping store order.
func AssembleContext(matches []models.Match) string {
	if len(matches) == 0 {
		return NoMatchesContext
	}

	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = m.Content
	}

	return strings.Join(parts, "\n")
}

// BuildMessages returns the system and user messages for one recommendation.
func BuildMessages(movieContext, query string) []models.ChatMessage {
	return []models.ChatMessage{
		{Role: models.RoleSystem, Content: SystemPrompt},
		{Role: models.RoleUser, Content: fmt.Sprintf("Context: %s \n\nUser preferences: %s", movieContext, query)},
	}
}
