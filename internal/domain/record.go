package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// QuestionType enumerates the four listening-comprehension question formats.
type QuestionType int

const (
	// TypePictureChoice questions ask the listener to pick one of several
	// printed illustrations.
	TypePictureChoice QuestionType = 1
	// TypeDialogueResponse questions test comprehension of a spoken dialogue.
	TypeDialogueResponse QuestionType = 2
	// TypeSceneChoice questions refer to an on-screen scene.
	TypeSceneChoice QuestionType = 3
	// TypeQuickResponse questions ask for the appropriate reply to a short
	// utterance.
	TypeQuickResponse QuestionType = 4
)

// MissingField is the sentinel stored in a mandatory text field the
// transcript did not provide. Keeping an explicit marker instead of an empty
// string prevents downstream embedding from encoding absence as content.
const MissingField = "[Not provided in transcript]"

// Valid reports whether t is one of the four known question formats.
func (t QuestionType) Valid() bool { return t >= TypePictureChoice && t <= TypeQuickResponse }

// TextOnly reports whether the format can be represented without visual
// aids. Types 1 and 3 depend on accompanying imagery, so only text-only
// questions are retained for retrieval.
func (t QuestionType) TextOnly() bool {
	return t == TypeDialogueResponse || t == TypeQuickResponse
}

// QuestionRecord is one extracted comprehension question. Records are
// immutable after extraction; the merger produces new collections instead of
// mutating them.
type QuestionRecord struct {
	ID           int          `json:"id"`
	QuestionType QuestionType `json:"question_type"`
	Introduction string       `json:"introduction"`
	Conversation string       `json:"conversation"`
	Question     string       `json:"question"`
}

// CanonicalKey returns the whitespace-normalized, lowercased concatenation
// of the record's content fields, used to detect duplicates across runs.
func (r QuestionRecord) CanonicalKey() string {
	parts := []string{
		strconv.Itoa(int(r.QuestionType)),
		normalize(r.Introduction),
		normalize(r.Conversation),
		normalize(r.Question),
	}
	return strings.Join(parts, "\x1f")
}

// ContentHash returns a stable identifier derived from the canonical key.
// The value is a deterministic UUID, so it can serve directly as a vector
// store point id.
func (r QuestionRecord) ContentHash() string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(r.CanonicalKey())).String()
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// RunCollection is the set of records produced by one extraction pass over
// one transcript. Read-only once created.
type RunCollection struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	Records   []QuestionRecord `json:"questions"`
}

// MergedCorpus is the deduplicated union of the run collections selected for
// indexing. Only the most recent snapshot exists; each merge recomputes it
// from the raw runs.
type MergedCorpus struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	Runs      []string         `json:"runs,omitempty"`
	Records   []QuestionRecord `json:"questions"`
}

// AsCollection re-wraps the corpus as a single run collection so a merged
// snapshot can participate in a later merge.
func (m MergedCorpus) AsCollection() RunCollection {
	return RunCollection{ID: m.ID, CreatedAt: m.CreatedAt, Records: m.Records}
}

// IndexEntry is one (vector, text, metadata) triple held by a vector store.
// Text is the embedded searchable text; Record carries the full question and
// CollectionID the identity of the corpus it was indexed from.
type IndexEntry struct {
	ID           string
	Vector       []float64
	Text         string
	Record       QuestionRecord
	CollectionID string
}

// SearchResult is a store hit with its cosine distance (0 means identical).
type SearchResult struct {
	Entry    IndexEntry
	Distance float64
}

// RankedRecord is a retrieval result unwrapped for UI/CLI consumers.
type RankedRecord struct {
	Record   QuestionRecord
	Distance float64
}

// SearchFilter restricts search hits by record metadata. A nil filter or an
// empty type list matches everything.
type SearchFilter struct {
	QuestionTypes []QuestionType
}

// Match reports whether the record passes the filter.
func (f *SearchFilter) Match(r QuestionRecord) bool {
	if f == nil || len(f.QuestionTypes) == 0 {
		return true
	}
	for _, t := range f.QuestionTypes {
		if r.QuestionType == t {
			return true
		}
	}
	return false
}
