package domain

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// SyncThresholdBlock makes an invocation wait unconditionally for the
// callable to finish; the caller never observes a pending job.
const SyncThresholdBlock = -1 * time.Second

// ExecPolicy is the per-tool execution configuration, immutable once
// registered.
//
// SyncThreshold semantics: negative blocks until completion, zero returns
// pending immediately, positive waits up to that duration before falling
// back to pending.
type ExecPolicy struct {
	SyncThreshold time.Duration
	// JobTimeout is advisory metadata; the engine does not enforce it.
	JobTimeout time.Duration
	Cancelable bool
	// Notify controls whether jobs of this tool fire a desktop
	// notification on completion. A notify_on_completion request key
	// overrides it per invocation.
	Notify        bool
	NotifyTitle   string
	NotifyMessage string
}

// Parameter declares one input of a tool. The declared schema is the single
// source of truth for boundary validation and agent-facing documentation;
// the engine itself does not enforce it.
type Parameter struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"` // string, integer, number, boolean, array, object
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Enum        []string `json:"enum,omitempty"`
}

// ToolFunc runs a tool. It receives the id of the job tracking this run and
// the request parameters with notification-control keys already stripped.
type ToolFunc func(ctx context.Context, jobID JobID, params map[string]any) (map[string]any, error)

// Tool binds a name to its callable, parameter schema and execution policy.
type Tool struct {
	Name        string
	Description string
	Parameters  []Parameter
	Policy      ExecPolicy
	Run         ToolFunc
}

// ToolRegistry manages the available tools. Registration normally happens
// once during process start; lookups are safe for concurrent use.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]*Tool),
	}
}

// Register adds a tool to the registry. Registering a name twice overwrites
// the previous entry. It fails only on a malformed schema: empty tool name,
// missing callable, duplicate parameter names or a parameter without a
// description.
func (r *ToolRegistry) Register(tool *Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if tool.Run == nil {
		return fmt.Errorf("tool %s has no callable", tool.Name)
	}
	seen := make(map[string]struct{}, len(tool.Parameters))
	for _, p := range tool.Parameters {
		if p.Name == "" {
			return fmt.Errorf("tool %s: parameter with empty name", tool.Name)
		}
		if p.Description == "" {
			return fmt.Errorf("tool %s: parameter %s missing description", tool.Name, p.Name)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("tool %s: duplicate parameter %s", tool.Name, p.Name)
		}
		seen[p.Name] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name] = tool
	return nil
}

// Lookup returns the tool registered under name.
func (r *ToolRegistry) Lookup(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all registered tools sorted by name.
func (r *ToolRegistry) List() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make([]*Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}
