package llm

// GroqModelGPTOSS120B is the one model currently served through Groq rather
// than OpenRouter. Routing is by exact model identifier.
const GroqModelGPTOSS120B = "openai/gpt-oss-120b"

// route binds a model predicate to the provider that serves it.
type route struct {
	match    func(model string) bool
	provider Provider
}

// Registry is a static routing table from model identifier to provider.
// Routes are consulted in registration order; the fallback provider serves
// anything no route claims. Adding a provider is a Register call at startup,
// callers of Select never change.
type Registry struct {
	routes   []route
	fallback Provider
}

// NewRegistry creates a registry with the given fallback provider.
func NewRegistry(fallback Provider) *Registry {
	return &Registry{fallback: fallback}
}

// Register adds a route. Later registrations do not shadow earlier ones.
func (r *Registry) Register(match func(model string) bool, p Provider) {
	r.routes = append(r.routes, route{match: match, provider: p})
}

// Select returns the provider responsible for the given model identifier.
func (r *Registry) Select(model string) Provider {
	for _, rt := range r.routes {
		if rt.match(model) {
			return rt.provider
		}
	}
	return r.fallback
}

// MatchExact returns a predicate matching exactly one model identifier.
func MatchExact(model string) func(string) bool {
	return func(candidate string) bool { return candidate == model }
}
