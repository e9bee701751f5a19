package model

import "sync/atomic"

// Pin/Unpin track how many TraverseNodes currently hold this resource
// in their `resources` pin list (spec §3/§5): "A resource pinned by at
// least one TraverseNode or in-flight task is exempt" from eviction.
func (r *Resource) Pin()   { atomic.AddInt32(&r.refCount, 1) }
func (r *Resource) Unpin() { atomic.AddInt32(&r.refCount, -1) }

func (r *Resource) Pinned() bool { return atomic.LoadInt32(&r.refCount) > 0 }

func (r *Resource) InFlight() bool { return r.State() == Downloading }
