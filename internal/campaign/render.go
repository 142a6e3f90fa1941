package campaign

import (
	"strings"

	"CampaignPulse/internal/models"
)

// Render substitutes customer placeholders into a message template.
// Unknown placeholders pass through untouched; empty fields render as
// "N/A" rather than leaving holes in the message.
func Render(template string, c *models.Customer) string {
	pairs := map[string]string{
		"{first_name}":        c.FirstName,
		"{last_name}":         c.LastName,
		"{location}":          c.Location,
		"{preferred_product}": c.PreferredProduct,
	}

	out := template
	for placeholder, value := range pairs {
		if value == "" {
			value = "N/A"
		}
		out = strings.ReplaceAll(out, placeholder, value)
	}
	return out
}
