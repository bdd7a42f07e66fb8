package atomicint

import "sync/atomic"

// Int64 is an int64 read and written atomically, used for the
// Controller's running flag.
type Int64 struct {
	v int64
}

func (v *Int64) Load() int64 {
	return atomic.LoadInt64(&v.v)
}

func (v *Int64) Store(i int64) {
	atomic.StoreInt64(&v.v, i)
}
