// Package collector holds the drafts a user is editing, one Collector per
// browser session, until they are exported or the session expires.
package collector

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/listenupapp/memopack/internal/blobstore"
	"github.com/listenupapp/memopack/internal/domain"
	"github.com/listenupapp/memopack/internal/errors"
	"github.com/listenupapp/memopack/internal/id"
)

// Blobs stores attachment bytes outside the draft list.
type Blobs interface {
	Put(key, data []byte) error
	Get(key []byte) ([]byte, error)
	DropPrefix(prefix []byte) error
}

// Collector is an ordered list of drafts indexed by stable IDs.
// All methods are safe for concurrent use.
type Collector struct {
	mu         sync.Mutex
	sessionID  string
	drafts     []domain.Draft
	blobs      Blobs
	now        func() time.Time
	lastActive time.Time

	// version counts edits; gen numbers SetFiles calls.
	version     uint64
	gen         uint64
	generations map[string]uint64
}

// New creates a collector holding a single empty draft. When blobs is nil
// attachment bytes are kept in the draft itself.
func New(sessionID string, blobs Blobs, now func() time.Time) (*Collector, error) {
	if now == nil {
		now = time.Now
	}
	c := &Collector{
		sessionID:   sessionID,
		blobs:       blobs,
		now:         now,
		lastActive:  now(),
		generations: make(map[string]uint64),
	}
	if _, err := c.AddDraft(); err != nil {
		return nil, err
	}
	return c, nil
}

// ID returns the session the collector belongs to.
func (c *Collector) ID() string {
	return c.sessionID
}

// LastActive returns the time of the last read or write.
func (c *Collector) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

// Touch marks the collector as active.
func (c *Collector) Touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActive = c.now()
}

// AddDraft appends an empty draft and returns it.
func (c *Collector) AddDraft() (domain.Draft, error) {
	draftID, err := id.Generate("draft")
	if err != nil {
		return domain.Draft{}, errors.Wrap(err, errors.CodeInternal, "generate draft id")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	d := domain.Draft{ID: draftID}
	c.drafts = append(c.drafts, d)
	c.touched()
	return d, nil
}

// RemoveDraft deletes a draft and its attachments. The order of the
// remaining drafts is unchanged.
func (c *Collector) RemoveDraft(draftID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, err := c.indexOf(draftID)
	if err != nil {
		return err
	}
	if err := c.dropFiles(draftID); err != nil {
		return err
	}
	delete(c.generations, draftID)
	c.drafts = slices.Delete(c.drafts, i, i+1)
	c.touched()
	return nil
}

// SetText replaces the free text of a draft.
func (c *Collector) SetText(draftID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, err := c.indexOf(draftID)
	if err != nil {
		return err
	}
	c.drafts[i].Text = text
	c.touched()
	return nil
}

// SetFiles replaces the attachments of a draft. Files are read once and
// their bytes moved into the blob store. An empty list clears the draft's
// attachments. On error the draft keeps its previous attachments.
func (c *Collector) SetFiles(draftID string, files []domain.File) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, err := c.indexOf(draftID)
	if err != nil {
		return err
	}

	c.gen++
	gen := c.gen
	stored, err := c.storeFiles(draftID, gen, files)
	if err != nil {
		c.dropGeneration(draftID, gen)
		return err
	}

	prev, hadPrev := c.generations[draftID]
	c.drafts[i].Files = stored
	if len(stored) > 0 && c.blobs != nil {
		c.generations[draftID] = gen
	} else {
		delete(c.generations, draftID)
	}
	if hadPrev {
		c.dropGeneration(draftID, prev)
	}
	c.touched()
	return nil
}

// storeFiles reads files into generation gen of a draft.
func (c *Collector) storeFiles(draftID string, gen uint64, files []domain.File) ([]domain.File, error) {
	stored := make([]domain.File, 0, len(files))
	for n, f := range files {
		data, err := readAll(f)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeInternal, "read attachment %q", f.Name())
		}
		if c.blobs == nil {
			stored = append(stored, domain.NewBytesFile(f.Name(), data))
			continue
		}
		key := blobstore.Key(c.sessionID, draftID, gen, n)
		if err := c.blobs.Put(key, data); err != nil {
			return nil, errors.Wrapf(err, errors.CodeInternal, "store attachment %q", f.Name())
		}
		stored = append(stored, &blobFile{name: f.Name(), key: key, size: len(data), blobs: c.blobs})
	}
	return stored, nil
}

// Draft returns a copy of one draft.
func (c *Collector) Draft(draftID string) (domain.Draft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, err := c.indexOf(draftID)
	if err != nil {
		return domain.Draft{}, err
	}
	return cloneDraft(c.drafts[i]), nil
}

// Drafts returns an ordered copy of the draft list. Attachments are read
// from the blob store when opened, so a later SetFiles can invalidate them.
func (c *Collector) Drafts() []domain.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.Draft, len(c.drafts))
	for i, d := range c.drafts {
		out[i] = cloneDraft(d)
	}
	return out
}

// Snapshot returns an ordered copy of every draft with its attachment bytes
// loaded, so later edits to the collector do not change it.
func (c *Collector) Snapshot() []domain.Draft {
	drafts, _ := c.SnapshotVersion()
	return drafts
}

// SnapshotVersion is Snapshot plus the edit version it was taken at, for
// use with ResetIfUnchanged.
func (c *Collector) SnapshotVersion() ([]domain.Draft, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.Draft, len(c.drafts))
	for i, d := range c.drafts {
		out[i] = cloneDraft(d)
		for j, f := range out[i].Files {
			out[i].Files[j] = freeze(f)
		}
	}
	c.lastActive = c.now()
	return out, c.version
}

// Len returns the number of drafts.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.drafts)
}

// Reset discards every draft and attachment and starts over with one
// empty draft.
func (c *Collector) Reset() ([]domain.Draft, error) {
	draftID, err := id.Generate("draft")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate draft id")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.dropAll(); err != nil {
		return nil, err
	}
	c.drafts = []domain.Draft{{ID: draftID}}
	c.touched()
	return []domain.Draft{{ID: draftID}}, nil
}

// ResetIfUnchanged resets the collector only if nothing was edited since
// the snapshot taken at version. It reports whether the reset happened.
func (c *Collector) ResetIfUnchanged(version uint64) (bool, error) {
	draftID, err := id.Generate("draft")
	if err != nil {
		return false, errors.Wrap(err, errors.CodeInternal, "generate draft id")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.version != version {
		return false, nil
	}
	if err := c.dropAll(); err != nil {
		return false, err
	}
	c.drafts = []domain.Draft{{ID: draftID}}
	c.touched()
	return true, nil
}

// Close releases every attachment held for the session.
func (c *Collector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.drafts = nil
	c.version++
	return c.dropAll()
}

// touched records an edit. Callers hold mu.
func (c *Collector) touched() {
	c.version++
	c.lastActive = c.now()
}

func (c *Collector) indexOf(draftID string) (int, error) {
	i := slices.IndexFunc(c.drafts, func(d domain.Draft) bool { return d.ID == draftID })
	if i < 0 {
		return -1, errors.NotFoundf("draft %s not found", draftID)
	}
	return i, nil
}

// dropGeneration releases one upload generation. A failure only leaves
// unreferenced blobs behind until the session ends.
func (c *Collector) dropGeneration(draftID string, gen uint64) {
	if c.blobs == nil {
		return
	}
	_ = c.blobs.DropPrefix(blobstore.GenerationPrefix(c.sessionID, draftID, gen))
}

func (c *Collector) dropFiles(draftID string) error {
	if c.blobs == nil {
		return nil
	}
	if err := c.blobs.DropPrefix(blobstore.DraftPrefix(c.sessionID, draftID)); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "release attachments")
	}
	return nil
}

func (c *Collector) dropAll() error {
	if c.blobs == nil {
		return nil
	}
	if err := c.blobs.DropPrefix(blobstore.SessionPrefix(c.sessionID)); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "release attachments")
	}
	clear(c.generations)
	return nil
}

func cloneDraft(d domain.Draft) domain.Draft {
	d.Files = slices.Clone(d.Files)
	return d
}

func readAll(f domain.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// blobFile is an attachment whose bytes live in the blob store.
type blobFile struct {
	name  string
	key   []byte
	size  int
	blobs Blobs
}

func (f *blobFile) Name() string { return f.name }

// Size returns the attachment size in bytes.
func (f *blobFile) Size() int { return f.size }

func (f *blobFile) Open() (io.ReadCloser, error) {
	data, err := f.load()
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *blobFile) load() ([]byte, error) {
	data, err := f.blobs.Get(f.key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", f.name, err)
	}
	return data, nil
}

// freeze copies a stored attachment into memory. A blob that cannot be
// loaded yields a file whose Open returns the error.
func freeze(f domain.File) domain.File {
	bf, ok := f.(*blobFile)
	if !ok {
		return f
	}
	data, err := bf.load()
	if err != nil {
		return &brokenFile{name: bf.name, err: err}
	}
	return domain.NewBytesFile(bf.name, data)
}

// brokenFile is an attachment whose bytes could not be loaded.
type brokenFile struct {
	name string
	err  error
}

func (f *brokenFile) Name() string { return f.name }

func (f *brokenFile) Open() (io.ReadCloser, error) { return nil, f.err }
