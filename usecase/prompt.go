package usecase

// PromptTemplate selects how a query becomes a prompt.
type PromptTemplate int

const (
	TemplateVerbatim PromptTemplate = iota
	TemplateMealPlan
	TemplateAdvanced
)

const (
	MealPlanPrefix = "Create a detailed week-long meal plan for someone with the following dietary preferences: "
	MealPlanSuffix = ". For each day include breakfast, lunch, dinner and a snack with a short recipe, " +
		"and finish with a grocery list covering the whole week."

	AdvancedPrompt = "Provide a detailed breakdown of the latest nutrition science trends and meal planning strategies."
)

// BuildPrompt embeds q into the template. The text is not escaped.
func BuildPrompt(t PromptTemplate, q string) string {
	switch t {
	case TemplateMealPlan:
		return MealPlanPrefix + q + MealPlanSuffix
	case TemplateAdvanced:
		return AdvancedPrompt
	default:
		return q
	}
}
