package tools

import (
	"fmt"
	"sort"

	"github.com/jaimegago/toolrouter/internal/llm"
)

// Registry manages available tools.
// It is populated once at start-up and only read afterwards, so a single
// registry is shared by concurrent conversations without locking.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates a new tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry; a tool with the same name is replaced
func (r *Registry) Register(tool Tool) {
	r.tools[tool.Name()] = tool
}

// Get retrieves a tool by exact name
func (r *Registry) Get(name string) (Tool, error) {
	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return tool, nil
}

// Len returns the number of registered tools
func (r *Registry) Len() int {
	return len(r.tools)
}

// GetAll returns all registered tools ordered by name
func (r *Registry) GetAll() []Tool {
	tools := make([]Tool, 0, len(r.tools))
	for _, name := range r.Names() {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// Names returns the sorted tool names
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ToDefinitions converts all registered tools to LLM tool definitions.
// The order is stable so that identical conversations produce identical requests.
func (r *Registry) ToDefinitions() []llm.ToolDefinition {
	definitions := make([]llm.ToolDefinition, 0, len(r.tools))
	for _, tool := range r.GetAll() {
		definitions = append(definitions, llm.ToolDefinition{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
		})
	}
	return definitions
}

// Wrap replaces every registered tool with wrap(tool). Used during start-up
// to layer instrumentation over the concrete tools.
func (r *Registry) Wrap(wrap func(Tool) Tool) {
	for name, tool := range r.tools {
		r.tools[name] = wrap(tool)
	}
}
