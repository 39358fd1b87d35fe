package trackid

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Header is the request header the archive backend echoes back as the
// envelope track_id.
const Header = "X-Request-ID"

var (
	globalOnce sync.Once
	global     *generator
)

// generator hands out ULIDs from a monotonic source. Requests issued inside
// the same millisecond still sort in issue order.
type generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func (g *generator) newAt(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(t), g.entropy).String()
}

func initGlobal() {
	global = &generator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// New returns a fresh track id for an outgoing request.
func New() string {
	globalOnce.Do(initGlobal)
	return global.newAt(time.Now().UTC())
}
