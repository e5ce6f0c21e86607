package middleware

// Chain composes decorators so that the first one given is the outermost.
func Chain[H any](mws ...func(H) H) func(H) H {
	return func(h H) H {
		for i := len(mws) - 1; i >= 0; i-- {
			h = mws[i](h)
		}
		return h
	}
}
