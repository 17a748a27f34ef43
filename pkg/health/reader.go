package health

import (
	"runtime"
	"time"

	"github.com/openda-project/openda-go/pkg/opc"
)

// Supported health tags.
const (
	TagMemFree = "@MEM_FREE"
	TagMemUsed = "@MEM_USED"
	TagSane    = "@SANE"
	TagTasks   = "@TASKS"
	TagUptime  = "@UPTIME"
)

// Reader computes health tag values from the Go runtime. It implements
// opc.HealthReader.
type Reader struct {
	start time.Time
	now   func() time.Time

	// readMemStats is swappable for tests.
	readMemStats func(*runtime.MemStats)
	numGoroutine func() int
}

// NewReader creates a Reader whose uptime clock starts now.
func NewReader() *Reader {
	return &Reader{
		start:        time.Now(),
		now:          time.Now,
		readMemStats: runtime.ReadMemStats,
		numGoroutine: runtime.NumGoroutine,
	}
}

// Read returns one reading per health tag. Unknown @-tags yield an error
// quality reading rather than failing the whole call, matching how
// invalid ordinary tags are reported.
func (r *Reader) Read(tags []string) ([]opc.Reading, error) {
	var m runtime.MemStats
	r.readMemStats(&m)

	now := r.now()
	stamp := now.Format(time.RFC3339Nano)

	readings := make([]opc.Reading, 0, len(tags))
	for _, tag := range tags {
		reading := opc.Reading{Tag: tag, Quality: "Good", Timestamp: stamp}
		switch tag {
		case TagMemFree:
			reading.Value = m.HeapSys - m.HeapAlloc
		case TagMemUsed:
			reading.Value = m.HeapAlloc
		case TagSane:
			reading.Value = 1
		case TagTasks:
			reading.Value = r.numGoroutine()
		case TagUptime:
			reading.Value = int64(now.Sub(r.start) / time.Second)
		default:
			reading.Quality = opc.QualityError
			reading.Timestamp = ""
		}
		readings = append(readings, reading)
	}
	return readings, nil
}

var _ opc.HealthReader = (*Reader)(nil)
