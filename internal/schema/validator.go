package schema

import (
	"fmt"
	"strings"

	"choukai/internal/domain"
)

// Candidate is a record as decoded from a generation backend response,
// before validation.
type Candidate struct {
	ID           int    `json:"id"`
	QuestionType int    `json:"question_type"`
	Introduction string `json:"introduction"`
	Conversation string `json:"conversation"`
	Question     string `json:"question"`
}

// Validate checks a candidate against the extraction contract and returns
// the typed record. The missing-data sentinel counts as valid content; only
// genuinely absent fields and out-of-range question types are violations.
// Validate is a pure check with no side effects.
func Validate(c Candidate) (domain.QuestionRecord, error) {
	qt := domain.QuestionType(c.QuestionType)
	if !qt.Valid() {
		return domain.QuestionRecord{}, &domain.SchemaError{
			Field:  "question_type",
			Reason: fmt.Sprintf("value %d outside 1-4", c.QuestionType),
		}
	}
	for _, f := range []struct {
		name  string
		value string
	}{
		{"introduction", c.Introduction},
		{"conversation", c.Conversation},
		{"question", c.Question},
	} {
		if strings.TrimSpace(f.value) == "" {
			return domain.QuestionRecord{}, &domain.SchemaError{Field: f.name, Reason: "missing"}
		}
	}
	return domain.QuestionRecord{
		ID:           c.ID,
		QuestionType: qt,
		Introduction: c.Introduction,
		Conversation: c.Conversation,
		Question:     c.Question,
	}, nil
}
