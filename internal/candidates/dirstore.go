package candidates

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/spigell/hirelytics/internal/analysis"
)

const (
	metaFile      = "candidate.yaml"
	characterFile = "character.txt"
	analysisFile  = "analysis.yaml"
	resumePrefix  = "resume"
)

type candidateMeta struct {
	Name       string    `yaml:"name"`
	UploadedAt time.Time `yaml:"uploaded-at"`
}

// DirStore keeps projects on disk:
//
//	<root>/<project>/<candidate>/candidate.yaml
//	<root>/<project>/<candidate>/resume.<ext>
//	<root>/<project>/<candidate>/character.txt
//	<root>/<project>/<candidate>/analysis.yaml
type DirStore struct {
	mu   sync.Mutex
	root string
	now  func() time.Time
}

func NewDirStore(root string) *DirStore {
	return &DirStore{root: root, now: time.Now}
}

func validSegment(s string) error {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("invalid identifier %q", s)
	}
	return nil
}

func (s *DirStore) projectDir(projectID string) (string, error) {
	if err := validSegment(projectID); err != nil {
		return "", err
	}
	return filepath.Join(s.root, projectID), nil
}

// GetCandidates returns the project's candidates ordered by upload time.
func (s *DirStore) GetCandidates(ctx context.Context, projectID string) ([]Candidate, error) {
	dir, err := s.projectDir(projectID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotFoundError{ProjectID: projectID}
		}
		return nil, fmt.Errorf("read project %s: %w", projectID, err)
	}

	var out []Candidate
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			continue
		}
		c, err := readCandidate(filepath.Join(dir, entry.Name()), entry.Name())
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", projectID, err)
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.Before(out[j].UploadedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func readCandidate(dir, id string) (Candidate, error) {
	c := Candidate{ID: id, Name: id}

	raw, err := os.ReadFile(filepath.Join(dir, metaFile))
	switch {
	case err == nil:
		var meta candidateMeta
		if err := yaml.Unmarshal(raw, &meta); err != nil {
			return c, fmt.Errorf("parse %s of candidate %s: %w", metaFile, id, err)
		}
		if meta.Name != "" {
			c.Name = meta.Name
		}
		c.UploadedAt = meta.UploadedAt
	case !errors.Is(err, os.ErrNotExist):
		return c, fmt.Errorf("read %s of candidate %s: %w", metaFile, id, err)
	}

	resumes, err := filepath.Glob(filepath.Join(dir, resumePrefix+".*"))
	if err != nil {
		return c, err
	}
	if len(resumes) > 0 {
		sort.Strings(resumes)
		if c.Resume, err = os.ReadFile(resumes[0]); err != nil {
			return c, fmt.Errorf("read resume of candidate %s: %w", id, err)
		}
	}

	if c.Character, err = os.ReadFile(filepath.Join(dir, characterFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return c, fmt.Errorf("read character of candidate %s: %w", id, err)
	}

	raw, err = os.ReadFile(filepath.Join(dir, analysisFile))
	switch {
	case err == nil:
		var a analysis.CandidateAnalysis
		if err := yaml.Unmarshal(raw, &a); err != nil {
			return c, fmt.Errorf("parse cached analysis of candidate %s: %w", id, err)
		}
		c.Analyzed = &a
	case !errors.Is(err, os.ErrNotExist):
		return c, fmt.Errorf("read cached analysis of candidate %s: %w", id, err)
	}

	return c, nil
}

// Put writes a candidate into a project, creating both when needed.
// An empty ID gets a generated one; resumeExt names the resume file extension.
func (s *DirStore) Put(ctx context.Context, projectID string, c Candidate, resumeExt string) (Candidate, error) {
	if err := ctx.Err(); err != nil {
		return c, err
	}
	dir, err := s.projectDir(projectID)
	if err != nil {
		return c, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := validSegment(c.ID); err != nil {
		return c, err
	}
	if c.UploadedAt.IsZero() {
		c.UploadedAt = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cdir := filepath.Join(dir, c.ID)
	if err := os.MkdirAll(cdir, 0o755); err != nil {
		return c, fmt.Errorf("create candidate directory: %w", err)
	}

	meta, err := yaml.Marshal(candidateMeta{Name: c.Name, UploadedAt: c.UploadedAt})
	if err != nil {
		return c, err
	}
	if err := os.WriteFile(filepath.Join(cdir, metaFile), meta, 0o644); err != nil {
		return c, fmt.Errorf("write candidate metadata: %w", err)
	}

	if len(c.Resume) > 0 {
		ext := strings.TrimPrefix(strings.ToLower(resumeExt), ".")
		if ext == "" {
			ext = "bin"
		}
		if err := os.WriteFile(filepath.Join(cdir, resumePrefix+"."+ext), c.Resume, 0o644); err != nil {
			return c, fmt.Errorf("write resume: %w", err)
		}
	}
	if len(c.Character) > 0 {
		if err := os.WriteFile(filepath.Join(cdir, characterFile), c.Character, 0o644); err != nil {
			return c, fmt.Errorf("write character: %w", err)
		}
	}

	return c, nil
}

// SaveAnalysis overwrites the cached analysis of a candidate.
func (s *DirStore) SaveAnalysis(ctx context.Context, projectID, candidateID string, a analysis.CandidateAnalysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir, err := s.projectDir(projectID)
	if err != nil {
		return err
	}
	if err := validSegment(candidateID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cdir := filepath.Join(dir, candidateID)
	if _, err := os.Stat(cdir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &NotFoundError{ProjectID: projectID, CandidateID: candidateID}
		}
		return err
	}

	data, err := yaml.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	return os.WriteFile(filepath.Join(cdir, analysisFile), data, 0o644)
}
