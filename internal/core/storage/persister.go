package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/planar/internal/core/events/bus"
	"github.com/zeusync/planar/internal/core/models"
	"github.com/zeusync/planar/internal/core/observability/log"
	"github.com/zeusync/planar/internal/core/storage/interfaces"
)

// EventPersistFailed is published on TopicStorage of the persister's bus when
// a write fails. The event data is a PersistFailure.
const (
	TopicStorage       = "storage"
	EventPersistFailed = "pose.persist_failed"
)

const (
	DefaultDebounce     = 180 * time.Millisecond
	DefaultWriteTimeout = 5 * time.Second
)

type PersistFailure struct {
	Body models.BodyID
	Pose models.Pose
	Err  error
}

type pendingBody struct {
	// write serialises store writes for one body.
	write sync.Mutex

	// guarded by Persister.mu
	timer *time.Timer
	pose  models.Pose
	seq   uint64
	dirty bool

	// guarded by write
	writtenSeq  uint64
	fingerprint uint64
}

// Persister writes committed poses to a store without ever blocking the
// caller. Frequent commits of one body are coalesced: only the latest pose
// within the debounce window is written, writes never go backwards in time,
// and a pose identical to the last one written is skipped.
type Persister struct {
	store    interfaces.PoseStore
	debounce time.Duration
	timeout  time.Duration
	logger   log.Log
	events   bus.EventBus

	mu     sync.Mutex
	bodies map[models.BodyID]*pendingBody
	closed bool
	wg     sync.WaitGroup
}

type PersisterOption func(*Persister)

func WithDebounce(d time.Duration) PersisterOption {
	return func(p *Persister) { p.debounce = d }
}

func WithWriteTimeout(d time.Duration) PersisterOption {
	return func(p *Persister) { p.timeout = d }
}

func WithLogger(l log.Log) PersisterOption {
	return func(p *Persister) { p.logger = l }
}

// WithEvents makes the persister publish EventPersistFailed on b under
// TopicStorage.
func WithEvents(b bus.EventBus) PersisterOption {
	return func(p *Persister) { p.events = b }
}

func NewPersister(store interfaces.PoseStore, opts ...PersisterOption) *Persister {
	p := &Persister{
		store:    store,
		debounce: DefaultDebounce,
		timeout:  DefaultWriteTimeout,
		logger:   log.Nop(),
		bodies:   make(map[models.BodyID]*pendingBody),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.timeout <= 0 {
		p.timeout = DefaultWriteTimeout
	}
	p.logger = p.logger.With(log.String("component", "persister"))
	return p
}

// Schedule queues pose for id and writes it once no newer pose arrived for
// the debounce window.
func (p *Persister) Schedule(id models.BodyID, pose models.Pose) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPersisterClosed
	}
	b := p.bodyLocked(id)
	b.seq++
	b.pose = pose
	b.dirty = true
	if b.timer == nil {
		b.timer = time.AfterFunc(p.debounce, func() { p.fire(id) })
	} else {
		b.timer.Reset(p.debounce)
	}
	return nil
}

// SaveNow writes pose in the background right away, superseding anything
// scheduled for id.
func (p *Persister) SaveNow(id models.BodyID, pose models.Pose) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPersisterClosed
	}
	b := p.bodyLocked(id)
	b.seq++
	seq := b.seq
	b.dirty = false
	if b.timer != nil {
		b.timer.Stop()
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		_ = p.write(id, b, pose, seq)
	}()
	return nil
}

// Flush synchronously writes every pending pose.
func (p *Persister) Flush(ctx context.Context) error {
	type job struct {
		id   models.BodyID
		body *pendingBody
		pose models.Pose
		seq  uint64
	}

	p.mu.Lock()
	jobs := make([]job, 0, len(p.bodies))
	for id, b := range p.bodies {
		if !b.dirty {
			continue
		}
		if b.timer != nil {
			b.timer.Stop()
		}
		b.dirty = false
		jobs = append(jobs, job{id: id, body: b, pose: b.pose, seq: b.seq})
	}
	p.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return p.write(j.id, j.body, j.pose, j.seq)
		})
	}
	return g.Wait()
}

// Close flushes pending poses and waits for background writes.
func (p *Persister) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	err := p.Flush(ctx)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

func (p *Persister) bodyLocked(id models.BodyID) *pendingBody {
	b, ok := p.bodies[id]
	if !ok {
		b = &pendingBody{}
		p.bodies[id] = b
	}
	return b
}

func (p *Persister) fire(id models.BodyID) {
	p.mu.Lock()
	b := p.bodies[id]
	if p.closed || b == nil || !b.dirty {
		p.mu.Unlock()
		return
	}
	pose, seq := b.pose, b.seq
	b.dirty = false
	p.wg.Add(1)
	p.mu.Unlock()

	defer p.wg.Done()
	_ = p.write(id, b, pose, seq)
}

func (p *Persister) write(id models.BodyID, b *pendingBody, pose models.Pose, seq uint64) error {
	b.write.Lock()
	defer b.write.Unlock()

	if seq <= b.writtenSeq {
		return nil
	}
	fp := Fingerprint(pose)
	if b.writtenSeq > 0 && fp == b.fingerprint {
		b.writtenSeq = seq
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.store.Set(ctx, id, pose); err != nil {
		err = fmt.Errorf("persist pose %s: %w", id, err)
		p.logger.Warn("pose not persisted", log.String("body", id.String()), log.Error(err))
		if p.events != nil {
			_ = p.events.PublishToTopic(TopicStorage, bus.NewEvent(EventPersistFailed, "persister", PersistFailure{Body: id, Pose: pose, Err: err}, nil))
		}
		return err
	}
	b.writtenSeq = seq
	b.fingerprint = fp
	p.logger.Debug("pose persisted", log.String("body", id.String()))
	return nil
}

// Fingerprint hashes a pose so unchanged poses are not written twice.
func Fingerprint(pose models.Pose) uint64 {
	var buf [8 * 7]byte
	for i, v := range pose.Position {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	for i, v := range pose.Quaternion {
		binary.LittleEndian.PutUint64(buf[(3+i)*8:], math.Float64bits(v))
	}
	d := xxhash.New()
	_, _ = d.Write(buf[:])
	_, _ = d.WriteString(pose.Name)
	return d.Sum64()
}
