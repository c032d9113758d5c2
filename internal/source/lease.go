package source

// Chunk is a borrowed view into memory owned by the Producer that returned it.
// Handle is opaque to the provider and identifies the memory to reclaim.
type Chunk struct {
	Data   []byte
	Handle any
}

// lease tracks the single chunk a provider may hold on behalf of its producer.
type lease struct {
	owner Producer
	chunk Chunk
	held  bool
	stats *Stats
}

func (l *lease) outstanding() bool {
	return l.held
}

// hold records c as the outstanding chunk. Holding a second chunk without a
// release in between is a lifetime violation: it panics in debug builds and
// is repaired by releasing the older chunk otherwise.
func (l *lease) hold(c Chunk) {
	if l.held {
		l.stats.Violations++
		LifetimeViolation("provider held a second chunk")
		l.release()
	}
	l.chunk = c
	l.held = true
}

// release hands the outstanding chunk back to its owner, if there is one.
func (l *lease) release() {
	if !l.held {
		return
	}
	c := l.chunk
	l.chunk = Chunk{}
	l.held = false
	l.stats.Releases++

	defer func() {
		if r := recover(); r != nil {
			log.Warningf("release panicked: %v", r)
		}
	}()
	l.owner.Release(c)
}

// LifetimeViolation reports a chunk requested while another is still lent.
// It panics with ErrBufferLifetime in builds tagged sitterfeed_debug and
// logs otherwise; the caller then force-releases the older chunk.
func LifetimeViolation(detail string) {
	if debugAssertions {
		log.Criticalf("%s: %s", ErrBufferLifetime, detail)
		panic(ErrBufferLifetime)
	}
	log.Errorf("%s: %s; forcing release", ErrBufferLifetime, detail)
}
