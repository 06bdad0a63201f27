package mullion

// The memory watchdog compares the process's resident size against what
// the runtime can account for: Go heap plus every window's cache and
// drawable bytes. A growing unexplained gap means leaked or hoarded
// resources, answered with a full cache purge; a resident size past the
// hard ceiling ends the process before the host OOM killer picks a victim
// at random.

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ExitCodeMemoryCeiling is the process exit code when resident memory
// crosses the watchdog's hard limit.
const ExitCodeMemoryCeiling = 3

// WatchdogConfig tunes the memory watchdog. Zero values are replaced by
// DefaultWatchdogConfig values during validation.
type WatchdogConfig struct {
	// Disabled turns the watchdog off entirely.
	Disabled bool `toml:"disabled"`

	// PollInterval is how often resident memory is sampled (default: 2s).
	PollInterval time.Duration `toml:"poll_interval"`

	// SoftLimitMB is the tolerated gap between resident and accounted
	// memory before the watchdog purges every cache (default: 200).
	SoftLimitMB int64 `toml:"soft_limit_mb"`

	// HardLimitMB is the resident ceiling; crossing it exits the process
	// with ExitCodeMemoryCeiling (default: 8192).
	HardLimitMB int64 `toml:"hard_limit_mb"`
}

// DefaultWatchdogConfig returns sensible defaults.
func DefaultWatchdogConfig() WatchdogConfig {
	return WatchdogConfig{
		PollInterval: 2 * time.Second,
		SoftLimitMB:  200,
		HardLimitMB:  8192,
	}
}

func (c *WatchdogConfig) validate() error {
	def := DefaultWatchdogConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.SoftLimitMB <= 0 {
		c.SoftLimitMB = def.SoftLimitMB
	}
	if c.HardLimitMB <= 0 {
		c.HardLimitMB = def.HardLimitMB
	}
	if c.HardLimitMB <= c.SoftLimitMB {
		return fmt.Errorf("watchdog hard_limit_mb %d must exceed soft_limit_mb %d", c.HardLimitMB, c.SoftLimitMB)
	}
	return nil
}

// MemoryWatchdog runs on the compositor's scheduling loop; tick is called
// every loop pass and self-gates to the poll cadence. It never owns a
// goroutine.
type MemoryWatchdog struct {
	cfg   WatchdogConfig
	usage func() int64 // accounted bytes beyond the Go heap
	purge func()
	log   zerolog.Logger

	resident func() int64 // swapped in tests
	exit     func(int)    // swapped in tests

	lastPoll time.Time
	purgedAt int64 // resident bytes after the last purge
	purges   atomic.Uint64
}

func newMemoryWatchdog(cfg WatchdogConfig, usage func() int64, purge func(), log zerolog.Logger) *MemoryWatchdog {
	return &MemoryWatchdog{
		cfg:      cfg,
		usage:    usage,
		purge:    purge,
		log:      log,
		resident: residentBytes,
		exit:     os.Exit,
	}
}

// Purges counts soft-limit purges since start. Safe from any goroutine.
func (wd *MemoryWatchdog) Purges() uint64 { return wd.purges.Load() }

// tick samples memory at the poll cadence and reacts to limit crossings.
// The soft limit trips only when resident has grown since the last purge,
// so a stable-but-large process is not purged every poll.
func (wd *MemoryWatchdog) tick(now time.Time) {
	if wd.cfg.Disabled {
		return
	}
	if now.Sub(wd.lastPoll) < wd.cfg.PollInterval {
		return
	}
	wd.lastPoll = now

	res := wd.resident()
	if res > wd.cfg.HardLimitMB<<20 {
		wd.log.Error().
			Int64("resident_mb", res>>20).
			Int64("hard_limit_mb", wd.cfg.HardLimitMB).
			Msg("resident memory over hard ceiling, exiting")
		wd.exit(ExitCodeMemoryCeiling)
		return
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	accounted := int64(ms.HeapAlloc) + wd.usage()
	gap := res - accounted
	if gap <= wd.cfg.SoftLimitMB<<20 || res <= wd.purgedAt {
		return
	}

	wd.purge()
	runtime.GC()
	debug.FreeOSMemory()
	wd.purgedAt = wd.resident()
	wd.purges.Add(1)
	wd.log.Info().
		Int64("resident_mb", res>>20).
		Int64("accounted_mb", accounted>>20).
		Int64("after_mb", wd.purgedAt>>20).
		Msg("unaccounted memory over soft limit, caches purged")
}

// residentBytes reads the process resident set from /proc/self/statm,
// falling back to the Go runtime's own OS reservation where procfs is
// unavailable.
func residentBytes() int64 {
	if data, err := os.ReadFile("/proc/self/statm"); err == nil {
		fields := strings.Fields(string(data))
		if len(fields) >= 2 {
			if pages, err := strconv.ParseInt(fields[1], 10, 64); err == nil {
				return pages * int64(os.Getpagesize())
			}
		}
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return int64(ms.Sys)
}
