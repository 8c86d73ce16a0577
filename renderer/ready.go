package renderer

// latch fires onReady once every registered load has completed, or onFail
// on the first failure. It starts with one hold that arm releases, so
// loads registered before arming cannot fire it early.
type latch struct {
	pending int
	done    bool
	onReady func()
	onFail  func(error)
}

func newLatch(onReady func(), onFail func(error)) *latch {
	return &latch{pending: 1, onReady: onReady, onFail: onFail}
}

func (l *latch) Add(n int) {
	if !l.done {
		l.pending += n
	}
}

func (l *latch) Done(err error) {
	if l.done {
		return
	}
	if err != nil {
		l.done = true
		l.onFail(err)
		return
	}
	l.pending--
	if l.pending == 0 {
		l.done = true
		l.onReady()
	}
}

func (l *latch) arm() { l.Done(nil) }
