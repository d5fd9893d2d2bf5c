// Package drivertest provides an in-memory driver.Driver for tests.
//
// The backend keeps a ledger of every object it creates and releases, checks the
// ordering rules a real GPU API enforces (allocator reuse while in flight, swap chain
// resize with outstanding buffers, recording on a closed list) and records each
// violation instead of failing silently. Fence signals complete asynchronously and in
// submission order, and can be held to observe blocking waits.
package drivertest

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/driver"
)

// Kind classifies the objects the ledger counts.
type Kind string

const (
	KindFactory          Kind = "factory"
	KindAdapter          Kind = "adapter"
	KindDevice           Kind = "device"
	KindQueue            Kind = "queue"
	KindSwapChain        Kind = "swapchain"
	KindDescriptorHeap   Kind = "heap"
	KindCommandAllocator Kind = "allocator"
	KindCommandList      Kind = "list"
	KindFence            Kind = "fence"
	KindRootSignature    Kind = "rootsig"
	KindPipelineState    Kind = "pso"
	KindResource         Kind = "resource"
	KindOverlayDevice    Kind = "overlay"
	KindWrappedTarget    Kind = "wrapped"
)

// AdapterSpec describes an adapter the fake factory enumerates.
type AdapterSpec struct {
	Name     string
	Software bool
	Levels   []driver.FeatureLevel
}

// Draw is one executed draw call.
type Draw struct {
	IndexCount    uint32
	InstanceCount uint32
	Constants     []byte
	BackBuffer    int
}

// Counters is a snapshot of the ledger totals.
type Counters struct {
	Created  int
	Released int
}

// Option configures a Driver.
type Option func(*Driver)

// WithAdapters replaces the enumerated adapters.
func WithAdapters(specs ...AdapterSpec) Option {
	return func(d *Driver) {
		d.adapters = specs
	}
}

// WithSoftwareAdapter replaces the software adapter. Pass nil for a platform without one.
func WithSoftwareAdapter(spec *AdapterSpec) Option {
	return func(d *Driver) {
		d.software = spec
	}
}

// WithSurfaceSize sets the native surface size swap chains default to.
func WithSurfaceSize(width, height uint32) Option {
	return func(d *Driver) {
		d.surfaceWidth = width
		d.surfaceHeight = height
	}
}

// Driver is the fake backend. Its methods are safe for concurrent use.
type Driver struct {
	mu sync.Mutex

	adapters      []AdapterSpec
	software      *AdapterSpec
	surfaceWidth  uint32
	surfaceHeight uint32

	nextID     uint64
	created    map[Kind]int
	released   map[Kind]int
	releaseLog []string
	violations []string
	failNext   map[Kind]error

	presentErr    error
	presents      int
	syncIntervals []int
	resizeCalls   int
	draws         []Draw
	overlayPixels int
	overlayFlush  int

	held   bool
	queues []*queue
}

var _ driver.Driver = &Driver{}

// New creates a fake backend with one hardware adapter supporting 12_0 and 12_1,
// a software adapter supporting 12_0, and a 1280x720 surface.
func New(options ...Option) *Driver {
	d := &Driver{
		adapters: []AdapterSpec{
			{Name: "Fake GPU", Levels: []driver.FeatureLevel{driver.FeatureLevel120, driver.FeatureLevel121}},
		},
		software:      &AdapterSpec{Name: "Fake WARP", Software: true, Levels: []driver.FeatureLevel{driver.FeatureLevel120}},
		surfaceWidth:  1280,
		surfaceHeight: 720,
		created:       make(map[Kind]int),
		released:      make(map[Kind]int),
		failNext:      make(map[Kind]error),
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

func (d *Driver) Name() string {
	return "drivertest"
}

func (d *Driver) CreateFactory() (driver.Factory, error) {
	if err := d.takeFailure(KindFactory); err != nil {
		return nil, err
	}
	f := &factory{}
	d.track(&f.base, KindFactory, "factory")
	return f, nil
}

// FailNext makes the next creation of kind fail with err.
func (d *Driver) FailNext(kind Kind, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failNext[kind] = err
}

// FailNextPresent makes the next Present return err, typically driver.ErrDeviceRemoved.
func (d *Driver) FailNextPresent(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.presentErr = err
}

// HoldSignals keeps queued fence signals pending until ReleaseSignals.
func (d *Driver) HoldSignals() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.held = true
}

// ReleaseSignals completes every held fence signal in submission order.
func (d *Driver) ReleaseSignals() {
	d.mu.Lock()
	d.held = false
	queues := append([]*queue(nil), d.queues...)
	d.mu.Unlock()
	for _, q := range queues {
		go q.drain()
	}
}

// Created returns how many objects of kind were created.
func (d *Driver) Created(kind Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created[kind]
}

// Released returns how many objects of kind were released.
func (d *Driver) Released(kind Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.released[kind]
}

// Live returns how many objects of kind are created and not yet released.
func (d *Driver) Live(kind Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created[kind] - d.released[kind]
}

// Totals returns the ledger totals across every kind.
func (d *Driver) Totals() Counters {
	d.mu.Lock()
	defer d.mu.Unlock()
	var c Counters
	for _, n := range d.created {
		c.Created += n
	}
	for _, n := range d.released {
		c.Released += n
	}
	return c
}

// ReleaseLog returns the labels of released objects in release order.
func (d *Driver) ReleaseLog() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.releaseLog...)
}

// Violations returns every API ordering rule broken so far.
func (d *Driver) Violations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.violations...)
}

// Presents returns the number of successful presents.
func (d *Driver) Presents() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presents
}

// SyncIntervals returns the sync interval of every successful present.
func (d *Driver) SyncIntervals() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.syncIntervals...)
}

// ResizeCalls returns the number of successful swap chain ResizeBuffers calls.
func (d *Driver) ResizeCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resizeCalls
}

// Draws returns every executed draw call.
func (d *Driver) Draws() []Draw {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Draw(nil), d.draws...)
}

// OverlayFlushes returns the number of overlay flushes.
func (d *Driver) OverlayFlushes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.overlayFlush
}

// OverlayPixelWrites returns the number of overlay pixel uploads.
func (d *Driver) OverlayPixelWrites() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.overlayPixels
}

func (d *Driver) track(b *base, kind Kind, label string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	b.d = d
	b.id = d.nextID
	b.kind = kind
	b.label = label
	d.created[kind]++
}

func (d *Driver) takeFailure(kind Kind) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err, ok := d.failNext[kind]; ok {
		delete(d.failNext, kind)
		return err
	}
	return nil
}

func (d *Driver) violate(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.violations = append(d.violations, fmt.Sprintf(format, args...))
}

func (d *Driver) isHeld() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.held
}

// base is embedded by every fake object.
type base struct {
	d        *Driver
	id       uint64
	kind     Kind
	label    string
	released bool
}

// ID returns the unique creation stamp of the object.
func (b *base) ID() uint64 {
	return b.id
}

// Label returns the ledger label of the object.
func (b *base) Label() string {
	return b.label
}

// IsReleased reports whether Release was called.
func (b *base) IsReleased() bool {
	b.d.mu.Lock()
	defer b.d.mu.Unlock()
	return b.released
}

func (b *base) Release() {
	b.d.mu.Lock()
	defer b.d.mu.Unlock()
	if b.released {
		b.d.violations = append(b.d.violations, fmt.Sprintf("double release of %s", b.label))
		return
	}
	b.released = true
	b.d.released[b.kind]++
	b.d.releaseLog = append(b.d.releaseLog, b.label)
}

func (b *base) checkLive(op string) bool {
	if b.IsReleased() {
		b.d.violate("%s on released %s", op, b.label)
		return false
	}
	return true
}

// Stamped is implemented by every fake object.
type Stamped interface {
	ID() uint64
	Label() string
	IsReleased() bool
}
