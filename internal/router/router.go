package router

import (
	"sort"
	"strings"
)

const (
	APIOpenAI    = "openai-completions"
	APIAnthropic = "anthropic-messages"
)

// Route says where calls for a model go: which provider, which wire API,
// which environment variable holds the key and which base endpoint to use.
type Route struct {
	Provider  string `yaml:"provider" json:"provider"`
	API       string `yaml:"api" json:"api"`
	APIKeyEnv string `yaml:"api_key_env" json:"apiKeyEnv"`
	BaseURL   string `yaml:"base_url" json:"baseUrl"`
}

type prefixRoute struct {
	prefix string
	route  Route
}

// ProviderRouter is a static model id -> Route lookup. Patterns ending in "*"
// match by prefix; the longest matching prefix wins over shorter ones and an
// exact id wins over any prefix. Unmatched models use the fallback.
type ProviderRouter struct {
	exact    map[string]Route
	prefixes []prefixRoute
	fallback Route
}

func NewProviderRouter(routes map[string]Route, fallback Route) *ProviderRouter {
	r := &ProviderRouter{
		exact:    make(map[string]Route),
		fallback: normalizeRoute(fallback),
	}
	for pattern, route := range routes {
		route = normalizeRoute(route)
		if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
			r.prefixes = append(r.prefixes, prefixRoute{prefix: prefix, route: route})
			continue
		}
		r.exact[pattern] = route
	}
	sort.Slice(r.prefixes, func(i, j int) bool {
		if len(r.prefixes[i].prefix) != len(r.prefixes[j].prefix) {
			return len(r.prefixes[i].prefix) > len(r.prefixes[j].prefix)
		}
		return r.prefixes[i].prefix < r.prefixes[j].prefix
	})
	return r
}

// NewDefaultProviderRouter routes the common hosted model families.
func NewDefaultProviderRouter() *ProviderRouter {
	return NewProviderRouter(DefaultRoutes(), DefaultFallback())
}

func DefaultRoutes() map[string]Route {
	openai := Route{Provider: "openai", API: APIOpenAI, APIKeyEnv: "OPENAI_API_KEY", BaseURL: "https://api.openai.com/v1/"}
	return map[string]Route{
		"gpt-*":      openai,
		"o1*":        openai,
		"o3*":        openai,
		"o4-*":       openai,
		"claude-*":   {Provider: "anthropic", API: APIAnthropic, APIKeyEnv: "ANTHROPIC_API_KEY", BaseURL: "https://api.anthropic.com/"},
		"gemini-*":   {Provider: "google", API: APIOpenAI, APIKeyEnv: "GEMINI_API_KEY", BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai/"},
		"deepseek-*": {Provider: "deepseek", API: APIOpenAI, APIKeyEnv: "DEEPSEEK_API_KEY", BaseURL: "https://api.deepseek.com/v1/"},
		"mistral-*":  {Provider: "mistral", API: APIOpenAI, APIKeyEnv: "MISTRAL_API_KEY", BaseURL: "https://api.mistral.ai/v1/"},
		"llama-*":    {Provider: "groq", API: APIOpenAI, APIKeyEnv: "GROQ_API_KEY", BaseURL: "https://api.groq.com/openai/v1/"},
	}
}

func DefaultFallback() Route {
	return Route{Provider: "openai", API: APIOpenAI, APIKeyEnv: "OPENAI_API_KEY", BaseURL: "https://api.openai.com/v1/"}
}

// Resolve returns the route for model.
func (r *ProviderRouter) Resolve(model string) Route {
	if route, ok := r.exact[model]; ok {
		return route
	}
	for _, p := range r.prefixes {
		if strings.HasPrefix(model, p.prefix) {
			return p.route
		}
	}
	return r.fallback
}

func normalizeRoute(route Route) Route {
	if route.API == "" {
		route.API = APIOpenAI
	}
	return route
}
