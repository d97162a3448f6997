package core

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// SystemStatus は /api/status 向けの集約ステータス。
type SystemStatus struct {
	Database struct {
		Reachable bool `json:"reachable"`
	} `json:"database"`
	Redis struct {
		Reachable bool `json:"reachable"`
	} `json:"redis"`
	Memory struct {
		UsedBytes  uint64 `json:"used_bytes"`
		TotalBytes uint64 `json:"total_bytes"`
	} `json:"memory"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// CollectSystemStatus pings the shared handles best-effort; a nil handle or a
// failed ping simply reports unreachable.
func CollectSystemStatus(ctx context.Context, db *pgxpool.Pool, rdb *redis.Client, startedAt time.Time) SystemStatus {
	var st SystemStatus

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if db != nil {
		st.Database.Reachable = db.Ping(pingCtx) == nil
	}
	if rdb != nil {
		st.Redis.Reachable = rdb.Ping(pingCtx).Err() == nil
	}

	// Memory (best-effort from /proc/meminfo)
	used, total := readMemInfo()
	st.Memory.UsedBytes = used
	st.Memory.TotalBytes = total

	if !startedAt.IsZero() {
		st.UptimeSeconds = int64(time.Since(startedAt).Seconds())
	}

	return st
}

// readMemInfo returns used and total bytes using /proc/meminfo.
// If unavailable, returns zeros.
func readMemInfo() (used, total uint64) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0
	}
	defer f.Close()
	var memTotal, memAvailable uint64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "MemTotal:") {
			memTotal = parseKiBLine(line)
		} else if strings.HasPrefix(line, "MemAvailable:") {
			memAvailable = parseKiBLine(line)
		}
	}
	if memTotal > 0 {
		total = memTotal
		if memAvailable <= memTotal {
			used = memTotal - memAvailable
		}
		// convert KiB -> bytes
		used *= 1024
		total *= 1024
	}
	return used, total
}

func parseKiBLine(line string) uint64 {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	v, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return v
}
