// internal/models/agent.go
package models

// Personality selects the tone of a business assistant.
type Personality string

const (
	PersonalityProfessional Personality = "professional"
	PersonalityFriendly     Personality = "friendly"
	PersonalityCasual       Personality = "casual"
)

// Plan distinguishes metered agents from unmetered tiers. Unlimited is a
// distinct state, not a sentinel allowance value.
type Plan string

const (
	PlanMetered   Plan = "metered"
	PlanUnlimited Plan = "unlimited"
)

const (
	MinResponseLength = 50
	MaxResponseLength = 1000
)

// AgentConfig is the per-business assistant configuration. Created on first
// activation, mutated by the owning business, deleted only with the business.
type AgentConfig struct {
	BusinessID             string        `json:"businessId" db:"business_id"`
	Active                 bool          `json:"active" db:"active"`
	Personality            Personality   `json:"personality" db:"personality"`
	WelcomeMessage         string        `json:"welcomeMessage" db:"welcome_message"`
	MaxResponseLength      int           `json:"maxResponseLength" db:"max_response_length"`
	Plan                   Plan          `json:"plan" db:"plan"`
	MonthlyLimit           int           `json:"monthlyLimit" db:"monthly_limit"`
	IncludePlatformContext bool          `json:"includePlatformContext" db:"include_platform_context"`
	KnowledgeBase          KnowledgeBase `json:"knowledgeBase" db:"knowledge_base"`
}

// ClampResponseLength bounds the configured response length to [50,1000].
func (c *AgentConfig) ClampResponseLength() int {
	if c.MaxResponseLength < MinResponseLength {
		return MinResponseLength
	}
	if c.MaxResponseLength > MaxResponseLength {
		return MaxResponseLength
	}
	return c.MaxResponseLength
}

// KnowledgeBase holds the facts an agent may answer from.
type KnowledgeBase struct {
	BusinessInfo string   `json:"businessInfo"`
	MenuData     MenuData `json:"menuData"`
	FAQData      []FAQ    `json:"faqData"`
	Policies     Policies `json:"policies"`
}

type MenuData struct {
	Categories []MenuCategory `json:"categories"`
}

type MenuCategory struct {
	Name  string     `json:"name"`
	Items []MenuItem `json:"items"`
}

type MenuItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
}

type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Policies struct {
	ReturnPolicy       string `json:"returnPolicy"`
	CancellationPolicy string `json:"cancellationPolicy"`
	PrivacyPolicy      string `json:"privacyPolicy"`
}
