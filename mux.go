package uniqw

import "context"

// HandlerFunc is the function signature for processing a task.
// payload is the data the task was enqueued with.
type HandlerFunc func(ctx context.Context, payload []byte) error

// Middleware is a function that wraps a HandlerFunc to provide cross-cutting concerns.
type Middleware func(HandlerFunc) HandlerFunc

// Mux routes tasks to their respective handlers based on job name.
type Mux struct {
	handlers    map[string]HandlerFunc
	encoder     Encoder
	middlewares []Middleware
}

// NewMux creates a new Task Mux.
func NewMux() *Mux {
	return &Mux{
		handlers: make(map[string]HandlerFunc),
		encoder:  &JSONEncoder{},
	}
}

// Handle registers a handler for a job name. Registering a name twice replaces the handler.
func (m *Mux) Handle(jobName string, fn HandlerFunc) {
	m.handlers[jobName] = fn
}

// Use adds middleware(s) to the mux. Middlewares are executed in the order they are added.
func (m *Mux) Use(mw Middleware) {
	m.middlewares = append(m.middlewares, mw)
}

// lookup returns the wrapped handler for jobName.
func (m *Mux) lookup(jobName string) (HandlerFunc, bool) {
	h, ok := m.handlers[jobName]
	if !ok {
		return nil, false
	}
	return m.wrapHandler(h), true
}

func (m *Mux) wrapHandler(h HandlerFunc) HandlerFunc {
	for i := len(m.middlewares) - 1; i >= 0; i-- {
		h = m.middlewares[i](h)
	}
	return h
}
