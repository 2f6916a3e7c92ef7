package usecase

import (
	"html/template"
	"strings"
)

const (
	InsightsTitle = "Nutrition Insights"
	MealPlanTitle = "Your Meal Plan"
)

// FormatResponse wraps a completion in the response box. The completion is
// trusted and inserted verbatim.
func FormatResponse(title, completion string) template.HTML {
	var b strings.Builder
	b.WriteString("<div class='response-box'><strong>")
	b.WriteString(template.HTMLEscapeString(title))
	b.WriteString(":</strong><br><br>")
	b.WriteString(completion)
	b.WriteString("</div>")
	return template.HTML(b.String())
}
