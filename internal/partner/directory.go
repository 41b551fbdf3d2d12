package partner

import (
	"context"
	"errors"
)

// ErrDirectoryUnavailable is returned when no directory was configured.
var ErrDirectoryUnavailable = errors.New("partner directory not configured")

// Directory looks partners up. Implementations must be query-only.
type Directory interface {
	// LookupCode returns the record for a normalized code.
	LookupCode(ctx context.Context, code string) (Record, bool, error)
	// CodeForUser returns the partner code owned by a user, if any.
	CodeForUser(ctx context.Context, userID string) (string, bool, error)
}

type codeEntry struct {
	rec   Record
	found bool
}

type userEntry struct {
	code  string
	found bool
}

// RequestCache memoises directory lookups for the lifetime of one request.
// It is not safe for concurrent use and must not outlive the request.
type RequestCache struct {
	dir   Directory
	codes map[string]codeEntry
	users map[string]userEntry
}

// NewRequestCache wraps dir with a request-scoped memo.
func NewRequestCache(dir Directory) *RequestCache {
	return &RequestCache{
		dir:   dir,
		codes: make(map[string]codeEntry),
		users: make(map[string]userEntry),
	}
}

// LookupCode implements Directory.
func (c *RequestCache) LookupCode(ctx context.Context, code string) (Record, bool, error) {
	if c == nil || c.dir == nil {
		return Record{}, false, ErrDirectoryUnavailable
	}
	if e, ok := c.codes[code]; ok {
		return e.rec, e.found, nil
	}
	rec, found, err := c.dir.LookupCode(ctx, code)
	if err != nil {
		return Record{}, false, err
	}
	c.codes[code] = codeEntry{rec: rec, found: found}
	return rec, found, nil
}

// CodeForUser implements Directory.
func (c *RequestCache) CodeForUser(ctx context.Context, userID string) (string, bool, error) {
	if c == nil || c.dir == nil {
		return "", false, ErrDirectoryUnavailable
	}
	if e, ok := c.users[userID]; ok {
		return e.code, e.found, nil
	}
	code, found, err := c.dir.CodeForUser(ctx, userID)
	if err != nil {
		return "", false, err
	}
	c.users[userID] = userEntry{code: code, found: found}
	return code, found, nil
}

// StaticDirectory is an in-memory Directory keyed by normalized code.
type StaticDirectory map[string]Record

// LookupCode implements Directory.
func (d StaticDirectory) LookupCode(_ context.Context, code string) (Record, bool, error) {
	rec, ok := d[NormalizeCode(code)]
	return rec, ok, nil
}

// CodeForUser implements Directory.
func (d StaticDirectory) CodeForUser(_ context.Context, userID string) (string, bool, error) {
	for code, rec := range d {
		if rec.UserID == userID {
			return code, true, nil
		}
	}
	return "", false, nil
}
