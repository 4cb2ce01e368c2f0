package evaluator

// Context carries the data object an expression evaluates against, plus the
// ancestor chain and document root needed by the parent/root scopes.
//
// Ancestors[0] is the immediate parent of Data, Ancestors[1] its grandparent,
// and so on; the chain never includes Data itself. A context is immutable:
// Descend and WithData return new contexts sharing the ancestor slice.
type Context struct {
	Data      Object
	Root      Object
	Ancestors []Object
}

// NewContext creates a root-level context: the data object is its own root
// and there are no ancestors.
func NewContext(data Object) *Context {
	return &Context{Data: data, Root: data}
}

// Descend returns a context for a child object, with the current data object
// pushed as the nearest ancestor. The document checker calls this while
// walking into nested objects and array elements.
func (c *Context) Descend(child Object) *Context {
	ancestors := make([]Object, 0, len(c.Ancestors)+1)
	ancestors = append(ancestors, c.Data)
	ancestors = append(ancestors, c.Ancestors...)
	return &Context{Data: child, Root: c.Root, Ancestors: ancestors}
}

// WithData returns a context with a different current object but the same
// ancestors and root. Collection predicates bind each element this way:
// parent inside anyMatch still means the parent of the collection's owner,
// not the collection itself.
func (c *Context) WithData(data Object) *Context {
	return &Context{Data: data, Root: c.Root, Ancestors: c.Ancestors}
}

// Parent returns the ancestor at the given level (1 = immediate parent).
// The boolean is false when the chain is shorter than the requested level.
func (c *Context) Parent(level int) (Object, bool) {
	if level < 1 || level > len(c.Ancestors) {
		return nil, false
	}
	return c.Ancestors[level-1], true
}
