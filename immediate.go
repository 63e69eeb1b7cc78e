package indirectx

import (
	"go.uber.org/zap"
)

// startImmediate starts, each in its own goroutine, the construction of the
// immediate singletons registered under the node of inst.
func (h *Host) startImmediate(inst *Instance) {
	for _, n := range inst.node.nodes {
		if !n.immediate {
			continue
		}
		n := n
		go func() {
			defer func() {
				// The best we can do here is log: nobody is waiting for this
				// construction. The slot stays empty, so the next resolve
				// retries and reports the failure to its caller.
				if r := recover(); r != nil {
					h.logger.Error("panic resolving immediate singleton",
						zap.String("node", n.path),
						zap.Any("panic", r))
				}
			}()
			lock, err := n.GetInstance(h.lifetime, inst)
			if err != nil {
				h.logger.Warn("immediate construction failed",
					zap.String("node", n.path),
					zap.Stringer("parent", inst.id),
					zap.Error(err))
				return
			}
			lock.Release()
		}()
	}
}
