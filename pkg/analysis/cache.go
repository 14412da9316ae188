package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vanderheijden86/graph3d/pkg/model"
)

// Cache holds the last analysis result keyed by graph hash.
// Thread-safe for concurrent access.
type Cache struct {
	mu         sync.RWMutex
	dataHash   string
	stats      *GraphStats
	computedAt time.Time
	ttl        time.Duration
}

// DefaultCacheTTL is the default time-to-live for cached results.
const DefaultCacheTTL = 5 * time.Minute

var globalCache = &Cache{
	ttl: DefaultCacheTTL,
}

// GetGlobalCache returns the process-wide cache.
func GetGlobalCache() *Cache {
	return globalCache
}

// NewCache creates a cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl: ttl,
	}
}

// Get returns cached stats when the graph hash matches and the TTL has not
// expired.
func (c *Cache) Get(g model.Graph) (*GraphStats, bool) {
	// Hash outside the lock
	return c.getByHash(ComputeDataHash(g))
}

// getByHash is Get with a pre-computed hash.
func (c *Cache) getByHash(hash string) (*GraphStats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.stats == nil {
		return nil, false
	}
	if hash == c.dataHash && time.Since(c.computedAt) < c.ttl {
		return c.stats, true
	}
	return nil, false
}

// Set stores stats for g.
func (c *Cache) Set(g model.Graph, stats *GraphStats) {
	c.setByHash(ComputeDataHash(g), stats)
}

// setByHash stores stats under a pre-computed hash.
func (c *Cache) setByHash(hash string, stats *GraphStats) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dataHash = hash
	c.stats = stats
	c.computedAt = time.Now()
}

// Invalidate clears the cache.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dataHash = ""
	c.stats = nil
	c.computedAt = time.Time{}
}

// Hash returns the cached graph hash, or "" when empty.
func (c *Cache) Hash() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dataHash
}

// Analyze returns the cached stats for g or computes and stores them with
// the size-scaled config.
func (c *Cache) Analyze(g model.Graph) GraphStats {
	hash := ComputeDataHash(g)
	if stats, ok := c.getByHash(hash); ok {
		return *stats
	}

	an := NewAnalyzer(g.Nodes, g.Edges)
	cfg := ApplyEnvOverrides(ConfigForSize(len(g.Nodes), len(g.Edges)))
	an.SetConfig(&cfg)
	stats := an.Analyze()
	c.setByHash(hash, &stats)
	return stats
}

// ComputeDataHash returns a deterministic hash of the graph. Nodes and edges
// are hashed in sorted order so input order does not matter.
func ComputeDataHash(g model.Graph) string {
	if len(g.Nodes) == 0 && len(g.Edges) == 0 {
		return "empty"
	}

	nodes := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		var b strings.Builder
		b.WriteString(n.ID)
		b.WriteByte(0)
		b.WriteString(n.Name)
		b.WriteByte(0)
		b.WriteString(string(n.Type))
		b.WriteByte(0)
		if n.CurrentValue != nil {
			b.WriteString(strconv.FormatFloat(*n.CurrentValue, 'g', -1, 64))
		}
		b.WriteByte(0)
		tags := append([]string(nil), n.Tags...)
		sort.Strings(tags)
		b.WriteString(strings.Join(tags, "\x01"))
		nodes = append(nodes, b.String())
	}
	sort.Strings(nodes)

	edges := make([]string, 0, len(g.Edges))
	for _, e := range g.Edges {
		var b strings.Builder
		b.WriteString(e.From)
		b.WriteByte(0)
		b.WriteString(e.To)
		b.WriteByte(0)
		b.WriteString(strconv.FormatFloat(e.Weight, 'g', -1, 64))
		b.WriteByte(0)
		b.WriteString(e.Type)
		b.WriteByte(0)
		if e.DayOfMonth != nil {
			b.WriteString(strconv.Itoa(*e.DayOfMonth))
		}
		edges = append(edges, b.String())
	}
	sort.Strings(edges)

	h := sha256.New()
	for _, s := range nodes {
		h.Write([]byte(s))
		h.Write([]byte{'\n'})
	}
	h.Write([]byte{'|'})
	for _, s := range edges {
		h.Write([]byte(s))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
