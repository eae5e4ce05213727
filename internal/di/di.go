// Package di provides a minimal string-token service container used to wire
// bounded-context modules together.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry is the read side of the container.
type ServiceRegistry interface {
	// Get returns the service registered under name, constructing it on
	// first use when a factory was registered. Panics on unknown names:
	// resolution failures are wiring bugs, not runtime conditions.
	Get(name string) any
}

// Container is the write side: modules register services and factories here.
type Container interface {
	ServiceRegistry
	Register(name string, service any)
	RegisterFactory(name string, factory func(ServiceRegistry) any)
}

type container struct {
	mu        sync.Mutex
	services  map[string]any
	factories map[string]func(ServiceRegistry) any
}

// NewContainer creates an empty Container.
func NewContainer() Container {
	return &container{
		services:  make(map[string]any),
		factories: make(map[string]func(ServiceRegistry) any),
	}
}

func (c *container) Register(name string, service any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[name] = service
}

func (c *container) RegisterFactory(name string, factory func(ServiceRegistry) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[name] = factory
}

func (c *container) Get(name string) any {
	c.mu.Lock()
	if svc, ok := c.services[name]; ok {
		c.mu.Unlock()
		return svc
	}
	factory, ok := c.factories[name]
	c.mu.Unlock()

	if !ok {
		panic(fmt.Sprintf("di: no service registered for token %q", name))
	}

	// Factories may resolve other services, so construct outside the lock.
	svc := factory(c)

	c.mu.Lock()
	c.services[name] = svc
	c.mu.Unlock()

	return svc
}

// Token is a typed service key. The type parameter pins the service type
// at the registration site so Get never needs a caller-side assertion.
type Token[T any] struct {
	name string
}

// NewToken creates a typed token under the given name.
func NewToken[T any](name string) Token[T] {
	return Token[T]{name: name}
}

func (t Token[T]) String() string {
	return t.name
}

// RegisterToken registers a typed factory under a token.
func RegisterToken[T any](c Container, token Token[T], factory func(ServiceRegistry) T) {
	c.RegisterFactory(token.name, func(sr ServiceRegistry) any {
		return factory(sr)
	})
}

// GetToken returns the service registered under token, asserting its type.
func GetToken[T any](sr ServiceRegistry, token Token[T]) T {
	svc, ok := sr.Get(token.name).(T)
	if !ok {
		panic(fmt.Sprintf("di: service %q has unexpected type %T", token.name, sr.Get(token.name)))
	}
	return svc
}
