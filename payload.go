package ping

import (
	"math/rand"
	"sync"
	"time"

	"github.com/digineo/go-multiping/internal"
)

var (
	log = internal.Logger

	// SetLogger allows updating the Logger. For details, see
	// "github.com/digineo/go-logwrap".Instance.SetLogger.
	SetLogger = log.SetLogger

	// SA1019: rand.Seed has been deprecated, provide package-local RNG
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
	rngMu sync.Mutex
)

// randomized is the number of leading payload bytes touched by Randomize.
const randomized = 32

// Payload represents additional data appended to outgoing ICMP Echo
// Requests.
type Payload []byte

// Resize will assign a new payload of the given size to p.
func (p *Payload) Resize(size uint16) {
	buf := make([]byte, size)
	fill(buf)
	*p = Payload(buf)
}

// Randomize overwrites the first 32 bytes of p with random data.
func (p Payload) Randomize() {
	if len(p) > randomized {
		p = p[:randomized]
	}
	fill(p)
}

func fill(buf []byte) {
	rngMu.Lock()
	defer rngMu.Unlock()
	if _, err := rng.Read(buf); err != nil {
		log.Errorf("error filling payload: %v", err)
	}
}
