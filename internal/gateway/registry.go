package gateway

import (
	"fmt"

	"github.com/mercavio/checkout/internal/model"
)

// Registry resolves providers by name for the process/webhook endpoints and
// by method for the checkout flow. Registration order is the routing
// preference.
type Registry struct {
	order   []string
	clients map[string]Client
}

func NewRegistry(clients ...Client) *Registry {
	r := &Registry{
		clients: make(map[string]Client, len(clients)),
	}
	for _, c := range clients {
		r.order = append(r.order, c.Name())
		r.clients[c.Name()] = c
	}
	return r
}

func (r *Registry) Get(name string) (Client, error) {
	c, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return c, nil
}

// ForMethod returns the first registered provider that takes the method.
func (r *Registry) ForMethod(method model.PaymentMethod) (Client, error) {
	for _, name := range r.order {
		if c := r.clients[name]; c.Supports(method) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w for method %q", ErrUnsupportedMethod, method)
}
