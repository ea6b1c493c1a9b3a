package core

import (
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var ErrCountOutOfRange = errors.New("work-item count exceeds field capacity")

// FieldKernel fills a compute-owned field with FieldValue, one work-item per
// element.
type FieldKernel struct {
	// Workers bounds the host fan-out; 0 means GOMAXPROCS.
	Workers int
}

// Run writes elements [0, count) for frame through the token's mapping.
// Device mappings record a dispatch; host mappings are written before Run
// returns. Prior contents are never read.
func (k FieldKernel) Run(owned ComputeOwned, count uint32, frame uint64) error {
	m := owned.Mapping()
	if m == nil {
		return ErrStaleOwnership
	}
	if count > owned.Field().Capacity() {
		return errors.Wrapf(ErrCountOutOfRange, "count %d, capacity %d", count, owned.Field().Capacity())
	}
	switch m := m.(type) {
	case DeviceMapping:
		return m.Dispatch(count, frame)
	case HostMapping:
		return k.runHost(m.Bytes(), count, frame)
	default:
		return errors.Errorf("field kernel: unsupported mapping %T", m)
	}
}

func (k FieldKernel) workers() int {
	if k.Workers > 0 {
		return k.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// runHost splits [0, count) into one contiguous chunk per worker. Chunks
// cover every index exactly once; no two workers touch the same element.
func (k FieldKernel) runHost(dst []byte, count uint32, frame uint64) error {
	if uint64(len(dst)) < uint64(count)*FieldStride {
		return errors.Errorf("field kernel: mapping holds %d bytes, need %d", len(dst), uint64(count)*FieldStride)
	}
	if count == 0 {
		return nil
	}
	workers := uint32(k.workers())
	if workers > count {
		workers = count
	}
	chunk := WorkgroupsFor(count, workers)

	var g errgroup.Group
	for start := uint32(0); start < count; start += chunk {
		end := min(start+chunk, count)
		g.Go(func() error {
			for i := start; i < end; i++ {
				PutFieldElement(dst, i, FieldValue(i, frame))
			}
			return nil
		})
	}
	return g.Wait()
}
