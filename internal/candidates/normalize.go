package candidates

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/hirelytics/internal/ai"
)

const DefaultConcurrency = 4

// Report counts what normalization kept and which candidates it skipped.
type Report struct {
	Initial  int
	Dropped  int
	Left     int
	Failures []*ExtractionError
}

// Skipped lists the names of dropped candidates in selection order.
func (r Report) Skipped() []string {
	out := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		name := f.Name
		if strings.TrimSpace(name) == "" {
			name = f.CandidateID
		}
		out = append(out, name)
	}
	return out
}

// Normalizer converts candidates into the flat text records sent to providers.
type Normalizer struct {
	Extractor   Extractor
	Concurrency int
	Logger      *zap.Logger
}

// Normalize extracts every resume concurrently. Results keep the input order.
// Candidates whose extraction fails are reported and left out; a candidate
// without resume bytes gets empty resume text. Only context cancellation
// aborts the whole call.
func (n Normalizer) Normalize(ctx context.Context, cands []Candidate) ([]ai.Candidate, Report, error) {
	logger := n.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := n.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	texts := make([]string, len(cands))
	failures := make([]*ExtractionError, len(cands))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, c := range cands {
		if len(c.Resume) == 0 {
			continue
		}
		g.Go(func() error {
			text, err := n.Extractor.ExtractText(gctx, c.Resume)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				failures[i] = &ExtractionError{CandidateID: c.ID, Name: c.Name, Err: err}
				return nil
			}
			texts[i] = text
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, Report{}, err
	}

	report := Report{Initial: len(cands)}
	out := make([]ai.Candidate, 0, len(cands))
	for i, c := range cands {
		if failures[i] != nil {
			report.Failures = append(report.Failures, failures[i])
			logger.Warn("skipping candidate with unreadable resume",
				zap.String("candidate_id", c.ID),
				zap.Error(failures[i].Err),
			)
			continue
		}
		out = append(out, ai.Candidate{
			ID:            c.ID,
			Name:          c.Name,
			ResumeText:    texts[i],
			CharacterText: strings.TrimSpace(decodeText(c.Character)),
		})
	}
	report.Dropped = len(report.Failures)
	report.Left = len(out)

	return out, report, nil
}
