package core

// VNode is a virtual node produced by a render function. Component
// placeholders carry ComponentOptions; once patched they also point at the
// child instance.
type VNode struct {
	Tag       string
	Data      *VNodeData
	Children  []*VNode
	Text      string
	IsComment bool
	Key       any
	// Context is the instance whose render produced the node.
	Context *Instance

	ComponentOptions  *ComponentOptions
	ComponentInstance *Instance
}

// VNodeData holds the call-site attributes of a node.
type VNodeData struct {
	Attrs map[string]any
	Props map[string]any
	On    map[string]Listener
	// Slot names the slot the node is passed into.
	Slot           string
	InlineTemplate *InlineTemplate
}

// InlineTemplate is a precompiled render function supplied at the call site.
type InlineTemplate struct {
	Render          RenderFunc
	StaticRenderFns []RenderFunc
}

// ComponentOptions is the component-call metadata attached to a
// placeholder node.
type ComponentOptions struct {
	Ctor      *Type
	PropsData map[string]any
	Listeners map[string]Listener
	Tag       string
	Children  []*VNode
}

// IsComponent reports whether v is a component placeholder.
func (v *VNode) IsComponent() bool {
	return v != nil && v.ComponentOptions != nil
}

// TextVNode returns a text node.
func TextVNode(text string) *VNode {
	return &VNode{Text: text}
}

func emptyVNode() *VNode {
	return &VNode{IsComment: true}
}

func (v *VNode) isWhitespace() bool {
	if v.IsComment {
		return true
	}
	if v.Tag != "" || v.ComponentOptions != nil {
		return false
	}
	for _, r := range v.Text {
		if r != ' ' && r != '\n' && r != '\t' && r != '\r' {
			return false
		}
	}
	return true
}
