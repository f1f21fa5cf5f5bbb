package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Common test errors
var (
	ErrTest            = errors.New("test error")
	ErrConstructor     = errors.New("constructor error")
	ErrDisposal        = errors.New("disposal error")
	ErrAlreadyDisposed = errors.New("already disposed")
)

// IInterface1 is the service interface most resolution tests register against.
type IInterface1 interface {
	ID() string
}

// Class1 implements IInterface1
type Class1 struct {
	id string
}

func NewClass1() *Class1 {
	return &Class1{id: uuid.NewString()}
}

func (c *Class1) ID() string {
	return c.id
}

// Class1Alt is a second implementation of IInterface1
type Class1Alt struct {
	id string
}

func NewClass1Alt() *Class1Alt {
	return &Class1Alt{id: "alt-" + uuid.NewString()}
}

func (c *Class1Alt) ID() string {
	return c.id
}

// VerySimpleClass has only its synthesized parameterless constructor.
type VerySimpleClass struct {
	Value int
}

// SimpleClassWithDefaultCtor has an explicit parameterless constructor.
type SimpleClassWithDefaultCtor struct {
	Value string
}

func NewSimpleClassWithDefaultCtor() *SimpleClassWithDefaultCtor {
	return &SimpleClassWithDefaultCtor{Value: "default"}
}

// ClassWithDependency takes one IInterface1.
type ClassWithDependency struct {
	Dep IInterface1
}

func NewClassWithDependency(dep IInterface1) *ClassWithDependency {
	return &ClassWithDependency{Dep: dep}
}

// ClassWithTwoDependencies takes an IInterface1 and a *VerySimpleClass.
type ClassWithTwoDependencies struct {
	Dep    IInterface1
	Simple *VerySimpleClass
}

func NewClassWithTwoDependencies(dep IInterface1, simple *VerySimpleClass) *ClassWithTwoDependencies {
	return &ClassWithTwoDependencies{Dep: dep, Simple: simple}
}

// CircularServiceA and CircularServiceB depend on each other.
type CircularServiceA struct {
	B *CircularServiceB
}

type CircularServiceB struct {
	A *CircularServiceA
}

func NewCircularServiceA(b *CircularServiceB) *CircularServiceA {
	return &CircularServiceA{B: b}
}

func NewCircularServiceB(a *CircularServiceA) *CircularServiceB {
	return &CircularServiceB{A: a}
}

// SelfDependent depends on itself.
type SelfDependent struct {
	Self *SelfDependent
}

func NewSelfDependent(self *SelfDependent) *SelfDependent {
	return &SelfDependent{Self: self}
}

// IGenericService is a generic service interface.
type IGenericService[T any] interface {
	Value() T
}

// GenericService implements IGenericService.
type GenericService[T any] struct {
	value T
}

func NewGenericService[T any]() *GenericService[T] {
	return &GenericService[T]{}
}

func (g *GenericService[T]) Value() T {
	return g.value
}

// BadGeneric is generic but does not implement IGenericService.
type BadGeneric[T any] struct {
	V T
}

// Color is a named string type usable as an enum dictionary key.
type Color string

const (
	Red   Color = "Red"
	Green Color = "Green"
	Blue  Color = "Blue"
)

// Counter counts constructor invocations.
type Counter struct {
	n atomic.Int64
}

func (c *Counter) Inc() int64 {
	return c.n.Add(1)
}

func (c *Counter) Count() int64 {
	return c.n.Load()
}

// CountedService records how many times it has been constructed.
type CountedService struct {
	Seq int64
}

// NewCountedServiceFactory returns a constructor that bumps counter on each call.
func NewCountedServiceFactory(counter *Counter) func() *CountedService {
	return func() *CountedService {
		return &CountedService{Seq: counter.Inc()}
	}
}

// FailingService always fails to construct.
type FailingService struct{}

func NewFailingService() (*FailingService, error) {
	return nil, ErrConstructor
}

// PanickingService panics in its constructor.
type PanickingService struct{}

func NewPanickingService() *PanickingService {
	panic("boom")
}

// TestDisposable implements io.Closer and records its disposal.
type TestDisposable struct {
	ID           string
	disposed     bool
	disposeError error
	order        *DisposalLog
	mu           sync.Mutex
}

func NewTestDisposable() *TestDisposable {
	return &TestDisposable{ID: uuid.NewString()}
}

func NewTestDisposableWithError(err error) *TestDisposable {
	return &TestDisposable{ID: uuid.NewString(), disposeError: err}
}

// NewLoggedDisposable returns a disposable that appends its ID to log when closed.
func NewLoggedDisposable(id string, log *DisposalLog) *TestDisposable {
	return &TestDisposable{ID: id, order: log}
}

func (s *TestDisposable) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return ErrAlreadyDisposed
	}

	s.disposed = true
	if s.order != nil {
		s.order.Append(s.ID)
	}
	return s.disposeError
}

func (s *TestDisposable) IsDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// TestContextDisposable closes with a context.
type TestContextDisposable struct {
	ID       string
	disposed bool
	ctx      context.Context
	mu       sync.Mutex
}

func NewTestContextDisposable() *TestContextDisposable {
	return &TestContextDisposable{ID: uuid.NewString()}
}

func (s *TestContextDisposable) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return ErrAlreadyDisposed
	}

	s.ctx = ctx
	s.disposed = true
	return ctx.Err()
}

func (s *TestContextDisposable) IsDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

func (s *TestContextDisposable) WasDisposedWithContext() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx != nil
}

// TestQuietCloser closes without returning an error.
type TestQuietCloser struct {
	closed atomic.Bool
}

func (c *TestQuietCloser) Close() {
	c.closed.Store(true)
}

func (c *TestQuietCloser) IsClosed() bool {
	return c.closed.Load()
}

// DisposalLog records disposal order.
type DisposalLog struct {
	mu  sync.Mutex
	ids []string
}

func (l *DisposalLog) Append(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids = append(l.ids, id)
}

func (l *DisposalLog) IDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ids...)
}

// CloserFunc is a helper type to wrap a function as an io.Closer.
type CloserFunc func() error

func (f CloserFunc) Close() error {
	return f()
}

// Named returns a deterministic id for named fixtures.
func Named(prefix string, i int) string {
	return fmt.Sprintf("%s-%d", prefix, i)
}
