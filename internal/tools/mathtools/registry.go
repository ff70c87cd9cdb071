package mathtools

import (
	"github.com/jaimegago/toolrouter/internal/remote"
	"github.com/jaimegago/toolrouter/internal/tools"
)

// NewDefaultRegistry returns a registry holding add, multiply and divide.
// multiply runs through m.
func NewDefaultRegistry(m remote.Multiplier) *tools.Registry {
	registry := tools.NewRegistry()
	registry.Register(NewAddTool())
	registry.Register(NewMultiplyTool(m))
	registry.Register(NewDivideTool())
	return registry
}
