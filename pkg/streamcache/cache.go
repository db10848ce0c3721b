// Package streamcache implements the bounded local cache of decrypted
// media streams used by a streaming front end (a service worker or a
// filesystem mount's read cache): it holds a bounded number of encrypted
// file bodies, evicting oldest first; keys are cleared when a stream
// unregisters. The desktop filesystem mount embeds the same cache to
// avoid re-fetching and re-decrypting the same CTR body on successive
// ranged reads from a media player's seek bar.
//
// Internally it is a mutex-guarded map of entries with an LRU sweep
// sorted by last-access time; eviction only ever clears data rather than
// blocking callers.
package streamcache

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/cipherbox-vault/core/pkg/crypto"
	"github.com/cipherbox-vault/core/pkg/vaultmeta"
)

// DefaultMaxStreams is the number of concurrently cached encrypted file
// bodies.
const DefaultMaxStreams = 5

// entry holds one registered stream's encrypted body and the unwrapped
// key material needed to serve ranged decrypts without re-unwrapping the
// ECIES envelope on every read.
type entry struct {
	cid           string
	encryptedBody []byte
	fileKey       []byte
	iv            []byte
	mode          vaultmeta.EncryptionMode
	lastAccess    time.Time
}

// Cache is a bounded, LRU-evicting cache of registered media streams,
// keyed by the CID of the encrypted file body.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*entry
	maxStreams int
}

// New returns an empty Cache bounded to maxStreams concurrently registered
// streams. maxStreams <= 0 falls back to DefaultMaxStreams.
func New(maxStreams int) *Cache {
	if maxStreams <= 0 {
		maxStreams = DefaultMaxStreams
	}
	return &Cache{
		entries:    make(map[string]*entry),
		maxStreams: maxStreams,
	}
}

// Register caches encryptedBody under cid along with the key material
// needed to decrypt it, evicting the least-recently-used stream first if
// the cache is at capacity. fileKey and iv are copied; callers remain
// responsible for zeroizing their own originals.
func (c *Cache) Register(cid string, encryptedBody, fileKey, iv []byte, mode vaultmeta.EncryptionMode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[cid]; ok {
		crypto.Zeroize(existing.fileKey)
	}

	keyCopy := make([]byte, len(fileKey))
	copy(keyCopy, fileKey)
	ivCopy := make([]byte, len(iv))
	copy(ivCopy, iv)

	c.entries[cid] = &entry{
		cid:           cid,
		encryptedBody: encryptedBody,
		fileKey:       keyCopy,
		iv:            ivCopy,
		mode:          mode,
		lastAccess:    time.Now(),
	}

	c.evictLRULocked()
}

// evictLRULocked removes least-recently-used entries until the cache is at
// or below maxStreams. Caller must hold c.mu.
func (c *Cache) evictLRULocked() {
	if len(c.entries) <= c.maxStreams {
		return
	}

	ordered := make([]*entry, 0, len(c.entries))
	for _, e := range c.entries {
		ordered = append(ordered, e)
	}
	slices.SortFunc(ordered, func(a, b *entry) int {
		return cmp.Compare(a.lastAccess.UnixNano(), b.lastAccess.UnixNano())
	})

	for _, e := range ordered {
		if len(c.entries) <= c.maxStreams {
			break
		}
		crypto.Zeroize(e.fileKey)
		delete(c.entries, e.cid)
	}
}

// DecryptRange decrypts [offset, offset+length) of the cached body for
// cid, touching its LRU position. The second return value is false if cid
// is not currently registered.
func (c *Cache) DecryptRange(cid string, offset, length int) ([]byte, bool, error) {
	c.mu.Lock()
	e, ok := c.entries[cid]
	if !ok {
		c.mu.Unlock()
		return nil, false, nil
	}
	e.lastAccess = time.Now()
	body, key, iv, mode := e.encryptedBody, e.fileKey, e.iv, e.mode
	c.mu.Unlock()

	if mode == vaultmeta.EncryptionModeCTR {
		plaintext, err := crypto.DecryptCTRRange(key, iv, body, offset, length)
		return plaintext, true, err
	}
	plaintext, err := crypto.DecryptGCM(key, iv, body)
	if err != nil {
		return nil, true, err
	}
	if offset+length > len(plaintext) {
		length = len(plaintext) - offset
	}
	return plaintext[offset : offset+length], true, nil
}

// Contains reports whether cid is currently registered, without affecting
// its LRU position.
func (c *Cache) Contains(cid string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[cid]
	return ok
}

// Len returns the number of currently registered streams.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Unregister removes cid's stream, zeroizing its cached key material. A
// stream unregisters when the player stops or the tab closes; calling
// Unregister on an unregistered cid is a no-op.
func (c *Cache) Unregister(cid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[cid]
	if !ok {
		return
	}
	crypto.Zeroize(e.fileKey)
	delete(c.entries, cid)
}

// Close unregisters every cached stream, zeroizing all cached key
// material. Safe to call on an already-empty cache.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for cid, e := range c.entries {
		crypto.Zeroize(e.fileKey)
		delete(c.entries, cid)
	}
}
