package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/policyvoice/corroborate/internal/model"
)

const maxStoryLine = 4 << 20

// Verifier verifies one story
type Verifier interface {
	Verify(ctx context.Context, story model.Story) model.AggregatedVerification
}

// StoryJob verifies one story
type StoryJob struct {
	Story    model.Story
	Verifier Verifier
}

// Execute runs the verification. A cancelled context is reported as an error
// since the verdict may rest on aborted fetches.
func (j *StoryJob) Execute(ctx context.Context) Result {
	verification := j.Verifier.Verify(ctx, j.Story)
	return &StoryResult{
		StoryID:      j.Story.ID,
		Verification: &verification,
		Error:        ctx.Err(),
	}
}

// StoryResult is the outcome of one story in a batch
type StoryResult struct {
	StoryID      string                        `json:"storyId"`
	Verification *model.AggregatedVerification `json:"verification,omitempty"`
	Error        error                         `json:"-"`
}

// GetError returns the error from the story result
func (r *StoryResult) GetError() error {
	return r.Error
}

// MarshalJSON adds the error message
func (r *StoryResult) MarshalJSON() ([]byte, error) {
	type alias StoryResult
	out := struct {
		*alias
		Error string `json:"error,omitempty"`
	}{alias: (*alias)(r)}
	if r.Error != nil {
		out.Error = r.Error.Error()
	}
	return json.Marshal(out)
}

// BatchProcessor verifies many stories concurrently
type BatchProcessor struct {
	verifier    Verifier
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(verifier Verifier, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		verifier:    verifier,
		concurrency: concurrency,
	}
}

// ProcessStories verifies the stories and returns one result per story in
// input order. Stories without an ID are assigned one.
func (b *BatchProcessor) ProcessStories(ctx context.Context, stories []model.Story) []*StoryResult {
	if len(stories) == 0 {
		return []*StoryResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start(ctx)

	for i := range stories {
		if stories[i].ID == "" {
			stories[i].ID = uuid.NewString()
		}
		pool.Submit(&StoryJob{Story: stories[i], Verifier: b.verifier})
	}

	results := pool.Wait()

	out := make([]*StoryResult, len(stories))
	for i := range stories {
		if i < len(results) && results[i] != nil {
			out[i] = results[i].(*StoryResult)
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		out[i] = &StoryResult{StoryID: stories[i].ID, Error: fmt.Errorf("not verified: %w", err)}
	}
	return out
}

// ProcessFile reads stories from a JSON lines file and verifies them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*StoryResult, error) {
	stories, err := ReadStoriesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read stories: %w", err)
	}
	return b.ProcessStories(ctx, stories), nil
}

// ReadStoriesFromFile reads stories from a JSON lines file
func ReadStoriesFromFile(filePath string) ([]model.Story, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ReadStories(file)
}

// ReadStories decodes one story per line. Blank lines and lines starting
// with "#" are skipped; a repeated non-empty story ID keeps the first story.
func ReadStories(r io.Reader) ([]model.Story, error) {
	var stories []model.Story
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxStoryLine)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var story model.Story
		if err := json.Unmarshal([]byte(line), &story); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if story.ID != "" {
			if seen[story.ID] {
				continue
			}
			seen[story.ID] = true
		}
		stories = append(stories, story)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return stories, nil
}

// Summary counts batch outcomes
type Summary struct {
	Total    int `json:"total"`
	Verified int `json:"verified"`
	Degraded int `json:"degraded"`
	Failed   int `json:"failed"`
}

// Summarize counts verified, degraded and failed stories
func Summarize(results []*StoryResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Error != nil:
			s.Failed++
		case r.Verification == nil:
			s.Failed++
		default:
			if r.Verification.Verified {
				s.Verified++
			}
			if r.Verification.Degraded {
				s.Degraded++
			}
		}
	}
	return s
}
