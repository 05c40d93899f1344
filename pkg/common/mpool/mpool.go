// Copyright 2024 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package mpool implements the accounted allocator behind big arrays.
// Every allocation is tracked by address so that the pool can report its
// current size, high-water mark and detect frees of unknown or already
// released memory.
package mpool

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"

	"github.com/matrixorigin/moblock/pkg/common/malloc"
	"github.com/matrixorigin/moblock/pkg/common/moerr"
	"github.com/matrixorigin/moblock/pkg/logutil"
)

const (
	// NoFatalOnDoubleFree logs a double free instead of panicking.
	NoFatalOnDoubleFree = 1 << iota
	// DetailRecording records alloc/free bytes per calling function.
	DetailRecording
)

// MPoolStats holds the counters of one pool, or of all pools for the
// global stats.
type MPoolStats struct {
	NumAlloc      atomic.Int64
	NumFree       atomic.Int64
	NumAllocBytes atomic.Int64
	NumFreeBytes  atomic.Int64
	NumCurrBytes  atomic.Int64
	HighWaterMark atomic.Int64
}

func (s *MPoolStats) recordAlloc(sz int64) int64 {
	s.NumAlloc.Add(1)
	s.NumAllocBytes.Add(sz)
	curr := s.NumCurrBytes.Add(sz)
	for {
		hwm := s.HighWaterMark.Load()
		if curr <= hwm || s.HighWaterMark.CompareAndSwap(hwm, curr) {
			break
		}
	}
	return curr
}

func (s *MPoolStats) recordFree(sz int64) int64 {
	s.NumFree.Add(1)
	s.NumFreeBytes.Add(sz)
	return s.NumCurrBytes.Add(-sz)
}

func (s *MPoolStats) Report(tab string) string {
	if s.HighWaterMark.Load() == 0 {
		// empty, reduce noise
		return ""
	}
	var ret string
	ret += fmt.Sprintf("%s allocations : %d\n", tab, s.NumAlloc.Load())
	ret += fmt.Sprintf("%s frees : %d\n", tab, s.NumFree.Load())
	ret += fmt.Sprintf("%s alloc bytes : %d\n", tab, s.NumAllocBytes.Load())
	ret += fmt.Sprintf("%s free bytes : %d\n", tab, s.NumFreeBytes.Load())
	ret += fmt.Sprintf("%s current bytes : %d\n", tab, s.NumCurrBytes.Load())
	ret += fmt.Sprintf("%s high water mark : %d\n", tab, s.HighWaterMark.Load())
	return ret
}

func (s *MPoolStats) ReportJson() string {
	if s.HighWaterMark.Load() == 0 {
		return ""
	}
	return fmt.Sprintf(`{"alloc": %d, "free": %d, "allocBytes": %d, "freeBytes": %d, "currBytes": %d, "highWaterMark": %d}`,
		s.NumAlloc.Load(),
		s.NumFree.Load(),
		s.NumAllocBytes.Load(),
		s.NumFreeBytes.Load(),
		s.NumCurrBytes.Load(),
		s.HighWaterMark.Load())
}

type mpoolDetails struct {
	mu    sync.Mutex
	alloc map[string]int64
	free  map[string]int64
}

func newMpoolDetails() *mpoolDetails {
	return &mpoolDetails{
		alloc: make(map[string]int64),
		free:  make(map[string]int64),
	}
}

func (d *mpoolDetails) record(m map[string]int64, sz int64) {
	fn := "unknown"
	if pc, _, _, ok := runtime.Caller(2); ok {
		if f := runtime.FuncForPC(pc); f != nil {
			fn = f.Name()
		}
	}
	d.mu.Lock()
	m[fn] += sz
	d.mu.Unlock()
}

func (d *mpoolDetails) reportJson() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	keys := make([]string, 0, len(d.alloc))
	for k := range d.alloc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf(`{"caller": %q, "alloc": %d, "free": %d}`, k, d.alloc[k], d.free[k]))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

type allocation struct {
	size        int64
	deallocator malloc.Deallocator
}

// MPool is an accounted allocator. It is safe for concurrent use.
type MPool struct {
	id        int64
	tag       string
	cap       int64
	flags     int
	allocator malloc.Allocator
	available atomic.Bool

	mu          sync.Mutex
	allocations map[unsafe.Pointer]allocation

	stats   MPoolStats
	details atomic.Pointer[mpoolDetails]
}

type Option func(*MPool)

// WithAllocator sets the allocator the pool draws memory from.
func WithAllocator(allocator malloc.Allocator) Option {
	return func(mp *MPool) {
		mp.allocator = allocator
	}
}

var (
	nextPool    atomic.Int64
	globalPools sync.Map // id -> *MPool
	globalStats MPoolStats
)

// NewMPool creates and registers a pool. A cap of 0 means unlimited.
func NewMPool(tag string, cap int64, flag int, opts ...Option) (*MPool, error) {
	if cap < 0 {
		return nil, moerr.NewInvalidArgNoCtx("mpool cap", cap)
	}
	mp := &MPool{
		id:          nextPool.Add(1),
		tag:         tag,
		cap:         cap,
		flags:       flag,
		allocator:   malloc.GetDefaultAllocator(),
		allocations: make(map[unsafe.Pointer]allocation),
	}
	for _, opt := range opts {
		opt(mp)
	}
	if flag&DetailRecording != 0 {
		mp.details.Store(newMpoolDetails())
	}
	mp.available.Store(true)
	globalPools.Store(mp.id, mp)
	logutil.Debug("mpool created",
		zap.String("tag", tag),
		zap.Int64("id", mp.id),
		zap.Int64("cap", cap))
	return mp, nil
}

// MustNew creates an unlimited pool and panics on error.
func MustNew(tag string) *MPool {
	mp, err := NewMPool(tag, 0, 0)
	if err != nil {
		panic(err)
	}
	return mp
}

// MustNewZero creates an unlimited pool for tests and short-lived tools.
func MustNewZero() *MPool {
	return MustNew("zero")
}

// DeleteMPool unregisters mp. Memory still held by mp is reported as leaked.
func DeleteMPool(mp *MPool) {
	if mp == nil || !mp.available.CompareAndSwap(true, false) {
		return
	}
	globalPools.Delete(mp.id)
	if curr := mp.CurrNB(); curr != 0 {
		logutil.Warn("mpool deleted with memory in use",
			zap.String("tag", mp.tag),
			zap.Int64("id", mp.id),
			zap.Int64("bytes", curr))
	}
}

func (mp *MPool) Tag() string {
	return mp.tag
}

func (mp *MPool) Cap() int64 {
	return mp.cap
}

func (mp *MPool) CurrNB() int64 {
	return mp.stats.NumCurrBytes.Load()
}

func (mp *MPool) Stats() *MPoolStats {
	return &mp.stats
}

func (mp *MPool) EnableDetailRecording() {
	mp.details.CompareAndSwap(nil, newMpoolDetails())
}

func (mp *MPool) DisableDetailRecording() {
	mp.details.Store(nil)
}

// Alloc returns sz zeroed bytes.
func (mp *MPool) Alloc(sz int) ([]byte, error) {
	return mp.alloc(sz, malloc.NoHints)
}

func (mp *MPool) alloc(sz int, hints malloc.Hints) ([]byte, error) {
	if sz < 0 {
		return nil, moerr.NewInvalidArgNoCtx("mpool alloc size", sz)
	}
	if sz == 0 {
		return nil, nil
	}
	if !mp.available.Load() {
		return nil, moerr.NewInternalErrorNoCtx("mpool %s already deleted", mp.tag)
	}
	sz64 := int64(sz)
	if mp.cap > 0 {
		if curr := mp.CurrNB(); curr+sz64 > mp.cap {
			logutil.Debug("mpool cap reached",
				zap.String("tag", mp.tag),
				zap.Int64("want", sz64),
				zap.Int64("curr", curr),
				zap.Int64("cap", mp.cap))
			return nil, moerr.NewResourceExhausted(context.TODO(), mp.tag, sz64, curr, mp.cap)
		}
	}
	bs, dec, err := mp.allocator.Allocate(uint64(sz), hints)
	if err != nil {
		return nil, err
	}
	mp.mu.Lock()
	mp.allocations[unsafe.Pointer(unsafe.SliceData(bs))] = allocation{size: sz64, deallocator: dec}
	mp.mu.Unlock()

	mp.stats.recordAlloc(sz64)
	globalStats.recordAlloc(sz64)
	if d := mp.details.Load(); d != nil {
		d.record(d.alloc, sz64)
	}
	return bs, nil
}

// Realloc grows old to sz bytes, keeping its content and zeroing the rest.
// old must come from mp, it is freed when new memory is handed out.
func (mp *MPool) Realloc(old []byte, sz int) ([]byte, error) {
	if sz <= cap(old) {
		ret := old[:sz]
		if sz > len(old) {
			clear(ret[len(old):])
		}
		return ret, nil
	}
	ret, err := mp.alloc(sz, malloc.NoClear)
	if err != nil {
		return nil, err
	}
	n := copy(ret, old)
	clear(ret[n:])
	mp.Free(old)
	return ret, nil
}

// Free returns bs to the pool. Freeing memory not owned by mp, or freeing
// twice, panics unless the pool was created with NoFatalOnDoubleFree.
func (mp *MPool) Free(bs []byte) {
	if cap(bs) == 0 {
		return
	}
	ptr := unsafe.Pointer(unsafe.SliceData(bs))
	mp.mu.Lock()
	a, ok := mp.allocations[ptr]
	if ok {
		delete(mp.allocations, ptr)
	}
	mp.mu.Unlock()

	if !ok {
		if mp.flags&NoFatalOnDoubleFree != 0 {
			logutil.Error("mpool double free",
				zap.String("tag", mp.tag),
				zap.Int64("id", mp.id),
				zap.Int("cap", cap(bs)))
			return
		}
		panic(moerr.NewInternalErrorNoCtx("mpool %s: double free or free of foreign memory", mp.tag))
	}

	a.deallocator.Deallocate(malloc.NoHints)
	mp.stats.recordFree(a.size)
	globalStats.recordFree(a.size)
	if d := mp.details.Load(); d != nil {
		d.record(d.free, a.size)
	}
}

func (mp *MPool) Report() string {
	ret := fmt.Sprintf("    mpool stats: %s\n", mp.tag)
	ret += mp.stats.Report("        ")
	return ret
}

func (mp *MPool) ReportJson() string {
	ss := mp.stats.ReportJson()
	if ss == "" {
		return fmt.Sprintf(`{"id": %d, "tag": %q}`, mp.id, mp.tag)
	}
	ret := fmt.Sprintf(`{"id": %d, "tag": %q, "stats": %s`, mp.id, mp.tag, ss)
	if d := mp.details.Load(); d != nil {
		ret += fmt.Sprintf(`, "details": %s`, d.reportJson())
	}
	return ret + "}"
}

func GlobalStats() *MPoolStats {
	return &globalStats
}

// ReportMemUsage returns a json report. An empty tag reports the global
// stats and every registered pool, "global" only the global stats, any
// other tag the pools carrying it.
func ReportMemUsage(tag string) string {
	var ids []int64
	pools := make(map[int64]*MPool)
	globalPools.Range(func(k, v any) bool {
		mp := v.(*MPool)
		if tag == "" || mp.tag == tag {
			ids = append(ids, k.(int64))
			pools[k.(int64)] = mp
		}
		return true
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	gstat := globalStats.ReportJson()
	if gstat == "" {
		gstat = "{}"
	}
	if tag == "global" {
		return fmt.Sprintf(`{"global": %s}`, gstat)
	}

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, pools[id].ReportJson())
	}
	if tag == "" {
		return fmt.Sprintf(`{"global": %s, "pools": [%s]}`, gstat, strings.Join(parts, ", "))
	}
	return fmt.Sprintf(`{"pools": [%s]}`, strings.Join(parts, ", "))
}
