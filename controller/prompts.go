package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PromptSuggestion is one entry on the welcome screen.
type PromptSuggestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
}

var promptSuggestions = []PromptSuggestion{
	{Title: "Explain RLS", Description: "How does row-level security work in Supabase?", Prompt: "Explain Supabase row-level security"},
	{Title: "Postgres Indexing", Description: "What are the best practices for indexing in PostgreSQL?", Prompt: "What are the best practices for indexing in PostgreSQL?"},
	{Title: "Supabase Auth", Description: "Compare JWT and session-based auth in Supabase.", Prompt: "Compare JWT and session-based auth in Supabase"},
	{Title: "Realtime Example", Description: "Show a simple example of using Supabase Realtime.", Prompt: "Show a simple example of using Supabase Realtime"},
}

// GetPrompts handles GET /prompts
func GetPrompts(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, promptSuggestions)
}
