// internal/levelgen/levelgen.go
//
// Gemini-backed level provider.
// Responsibilities:
//   - Ask the model for a batch of "find the odd symbol" levels, constrained by a
//     JSON response schema.
//   - Turn the response into validated level.Descriptors (IDs continue after offset).
//   - Swallow every failure: a missing key, a transport error, a malformed
//     response or a timeout all yield an empty batch so the caller falls back.
//
// Environment:
//   API_KEY / GEMINI_API_KEY gate the provider (see internal/config).

package levelgen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/robalobadob/oddone/internal/level"
)

const (
	DefaultModel     = "gemini-2.5-flash"
	DefaultBatchSize = 5
	DefaultTimeout   = 20 * time.Second

	maxGridSize = 9
)

// Config selects the model and bounds each request.
type Config struct {
	APIKey    string
	Model     string
	BatchSize int
	Timeout   time.Duration
}

// generator is the slice of *genai.Models the provider calls.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Provider implements level.Source on top of the Gemini API.
type Provider struct {
	gen     generator
	model   string
	batch   int
	timeout time.Duration
}

// New returns a level.Source. Without an API key it returns level.Nop so the
// game silently plays the built-in levels.
func New(ctx context.Context, cfg Config) (level.Source, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		log.Info().Msg("no API key configured, generated levels disabled")
		return level.Nop{}, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("levelgen: new client: %w", err)
	}
	return newProvider(client.Models, cfg), nil
}

func newProvider(gen generator, cfg Config) *Provider {
	p := &Provider{gen: gen, model: cfg.Model, batch: cfg.BatchSize, timeout: cfg.Timeout}
	if p.model == "" {
		p.model = DefaultModel
	}
	if p.batch <= 0 {
		p.batch = DefaultBatchSize
	}
	if p.timeout <= 0 {
		p.timeout = DefaultTimeout
	}
	return p
}

// FetchLevels asks the model for the next batch. It never returns an error;
// failures are logged and produce nil.
func (p *Provider) FetchLevels(ctx context.Context, offset int) []level.Descriptor {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.gen.GenerateContent(ctx, p.model, genai.Text(prompt(p.batch, offset)), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema,
	})
	if err != nil {
		log.Warn().Err(err).Int("offset", offset).Msg("level generation failed")
		return nil
	}
	levels, err := parseLevels(resp.Text(), offset)
	if err != nil {
		log.Warn().Err(err).Int("offset", offset).Msg("level generation returned malformed data")
		return nil
	}
	log.Info().
		Int("offset", offset).
		Int("levels", len(levels)).
		Dur("took", time.Since(start)).
		Msg("levels generated")
	return levels
}

var responseSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"baseEmoji":   {Type: genai.TypeString},
			"targetEmoji": {Type: genai.TypeString},
			"difficulty":  {Type: genai.TypeString, Enum: []string{string(level.Easy), string(level.Medium), string(level.Hard)}},
			"gridSize":    {Type: genai.TypeInteger},
		},
		Required: []string{"baseEmoji", "targetEmoji", "difficulty", "gridSize"},
	},
}

func prompt(n, offset int) string {
	return fmt.Sprintf(`Create %d challenging levels for a "Find the Odd Emoji Out" game played by a very sharp 6-year-old.
She is good at patterns, so make the levels harder than usual.

For each level:
1. Pick a "baseEmoji".
2. Pick a "targetEmoji" that looks VERY similar to the base (a slightly different clock time, moon phase, cat vs tiger, similar flowers, similar cars).
3. Set "difficulty" to easy, medium or hard and "gridSize" to match:
   - easy: 5 or 6
   - medium: 7 or 8
   - hard: 9
4. Avoid repeating emojis from earlier levels where possible.

Use only standard unicode emoji.

Current level count offset: %d.`, n, offset)
}

// rawLevel is one item of the model's JSON array.
type rawLevel struct {
	BaseEmoji   string `json:"baseEmoji"`
	TargetEmoji string `json:"targetEmoji"`
	Difficulty  string `json:"difficulty"`
	GridSize    int    `json:"gridSize"`
}

// parseLevels decodes the response body. Items that cannot form a valid level
// are dropped; grid sizes outside their difficulty's range are snapped into it.
// IDs are numbered after filtering, so a batch continues offset without gaps.
func parseLevels(body string, offset int) ([]level.Descriptor, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, nil
	}
	var items []rawLevel
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		return nil, fmt.Errorf("decode levels: %w", err)
	}
	out := make([]level.Descriptor, 0, len(items))
	for i, it := range items {
		diff := level.Difficulty(strings.ToLower(strings.TrimSpace(it.Difficulty)))
		if it.GridSize < level.MinGridSize || it.GridSize > maxGridSize {
			log.Debug().Int("gridSize", it.GridSize).Msg("dropping generated level with bad grid size")
			continue
		}
		size := it.GridSize
		if diff.Valid() {
			lo, hi := diff.GridRange()
			size = min(max(size, lo), hi)
		}
		d, err := level.New(offset+len(out)+1, it.BaseEmoji, it.TargetEmoji, diff, size)
		if err != nil {
			log.Debug().Err(err).Int("item", i).Msg("dropping generated level")
			continue
		}
		out = append(out, d)
	}
	return out, nil
}
