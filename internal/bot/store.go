package bot

import (
	"encoding/json"
	"errors"
	"os"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/OneTus27/site/internal/metrics"
)

// RecipientStore is the set of chat ids authorized to receive notifications,
// persisted as a JSON array in a flat file. The full set is rewritten on
// every mutation; there is no append log.
//
// Persistence failures are logged and swallowed: losing the file costs a
// re-authorization, never an error surfaced to a message-sending caller.
type RecipientStore struct {
	mu   sync.Mutex
	path string
	ids  map[int64]struct{}
	log  *zerolog.Logger
}

func NewRecipientStore(path string, logger *zerolog.Logger) *RecipientStore {
	s := &RecipientStore{
		path: path,
		ids:  make(map[int64]struct{}),
		log:  logger,
	}
	s.load()
	metrics.SetRecipients(len(s.ids))
	return s
}

func (s *RecipientStore) load() {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Error().Err(err).Str("path", s.path).Msg("failed to read recipients file; starting with an empty set")
		}
		return
	}
	var ids []int64
	if err := json.Unmarshal(b, &ids); err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("failed to parse recipients file; starting with an empty set")
		return
	}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
}

// Add inserts id into the set and rewrites the backing file. Inserting an
// already-present id is a no-op apart from the rewrite.
func (s *RecipientStore) Add(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids[id] = struct{}{}
	s.persistLocked()
	metrics.SetRecipients(len(s.ids))
}

// Clear empties the set and removes the backing file. Used by password
// rotation only.
func (s *RecipientStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids = make(map[int64]struct{})
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Error().Err(err).Str("path", s.path).Msg("failed to remove recipients file")
	}
	metrics.SetRecipients(0)
}

// Snapshot returns the current recipients in stable order.
func (s *RecipientStore) Snapshot() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *RecipientStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

func (s *RecipientStore) persistLocked() {
	ids := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	b, err := json.Marshal(ids)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to encode recipients")
		return
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("failed to write recipients file")
	}
}
