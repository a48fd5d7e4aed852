package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"choukai/internal/domain"
	"choukai/internal/schema"
)

const defaultTimeout = 2 * time.Minute

// correctiveInstruction is appended to the prompt when the first reply did
// not parse, reiterating the required response shape.
const correctiveInstruction = `Your previous reply was not valid JSON. Respond again with only a JSON object of the form ` +
	`{"questions":[{"id":1,"question_type":2,"introduction":"...","conversation":"...","question":"..."}]} ` +
	`and no surrounding prose.`

// response is the machine-parseable shape requested from the backend.
type response struct {
	Questions []schema.Candidate `json:"questions"`
}

// Extractor turns a transcript plus an instruction template into a validated
// run collection via a text-generation backend.
type Extractor struct {
	gen     domain.TextGenerator
	log     *slog.Logger
	timeout time.Duration
}

// New creates an extractor around the given backend. A zero timeout selects
// the default; a nil logger selects slog.Default.
func New(gen domain.TextGenerator, logger *slog.Logger, timeout time.Duration) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Extractor{gen: gen, log: logger, timeout: timeout}
}

// Extract sends the transcript and instructions to the backend and parses
// the reply into a run collection. On a parse failure it retries once with a
// corrective follow-up; a second failure surfaces ErrExtractionFailed rather
// than an empty collection. Records of visual-aid question types and records
// failing validation are dropped (the latter logged); ids are reassigned
// sequentially from 1 in order of appearance.
func (e *Extractor) Extract(ctx context.Context, transcript, instructions string) (domain.RunCollection, error) {
	prompt := instructions + "\n\nTranscript:\n" + transcript

	raw, err := e.generate(ctx, prompt)
	if err != nil {
		return domain.RunCollection{}, err
	}
	resp, perr := decodeResponse(raw)
	if perr != nil {
		e.log.Warn("extraction reply unparseable, retrying with corrective instruction",
			"backend", e.gen.Name(), "error", perr)
		raw, err = e.generate(ctx, prompt+"\n\n"+correctiveInstruction)
		if err != nil {
			return domain.RunCollection{}, err
		}
		resp, perr = decodeResponse(raw)
		if perr != nil {
			return domain.RunCollection{}, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, perr)
		}
	}

	run := domain.RunCollection{ID: uuid.NewString(), CreatedAt: time.Now().UTC()}
	next := 1
	for _, cand := range resp.Questions {
		rec, verr := schema.Validate(cand)
		if verr != nil {
			e.log.Warn("dropping invalid record", "run", run.ID, "error", verr)
			continue
		}
		if !rec.QuestionType.TextOnly() {
			e.log.Debug("dropping visual-aid question", "run", run.ID,
				"question_type", int(rec.QuestionType))
			continue
		}
		rec.ID = next
		next++
		run.Records = append(run.Records, rec)
	}
	return run, nil
}

func (e *Extractor) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.gen.Generate(ctx, prompt)
}

// decodeResponse parses a backend reply, tolerating a Markdown code fence
// around the JSON body.
func decodeResponse(raw string) (response, error) {
	var resp response
	if err := json.Unmarshal([]byte(stripFence(raw)), &resp); err != nil {
		return response{}, err
	}
	if resp.Questions == nil {
		return response{}, errors.New(`missing "questions" array`)
	}
	return resp, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
