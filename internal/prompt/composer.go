package prompt

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/nregsmp/nregsreport/internal/model"
)

//go:embed templates/frame.tmpl templates/sections/*.tmpl
var templateFS embed.FS

// ErrUnavailable is returned when a prompt is requested for a section without data.
var ErrUnavailable = errors.New("section has no data to compose a prompt from")

// Composer turns section data into LLM prompts.
// Compose is pure: the same data always yields the same prompt, byte for byte.
type Composer struct {
	templates    map[model.Section]*template.Template
	instructions map[model.Section]string
	// printer formats figures in Indian English, grouping digits in lakhs and crores.
	printer *message.Printer
}

// Option configures a Composer.
type Option func(*Composer)

// WithInstructions appends extra instructions to the prompt of a section.
func WithInstructions(section model.Section, text string) Option {
	return func(c *Composer) {
		if text = strings.TrimSpace(text); text != "" {
			c.instructions[section] = text
		}
	}
}

// NewComposer parses the embedded templates of every section.
func NewComposer(opts ...Option) (*Composer, error) {
	c := &Composer{
		templates:    make(map[model.Section]*template.Template, model.SectionCount),
		instructions: make(map[model.Section]string),
		printer:      message.NewPrinter(language.MustParse("en-IN")),
	}

	for _, section := range model.Sections() {
		tmpl, err := template.New("frame.tmpl").
			Option("missingkey=error").
			ParseFS(templateFS, "templates/frame.tmpl", "templates/sections/"+section.String()+".tmpl")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template of section %s: %w", section, err)
		}
		c.templates[section] = tmpl
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// figure is one labelled value of the key figures list.
type figure struct {
	Label string
	Value string
}

// view is the data a section template is executed with.
type view struct {
	Title        string
	Date         string
	District     string
	FocusMetric  string
	RankField    string
	Criteria     []string
	StateJSON    string
	DistrictJSON string
	Figures      []figure
	Instructions string
}

// Compose renders the prompt of one section.
// It returns ErrUnavailable for data that is not available.
func (c *Composer) Compose(data model.SectionData) (string, error) {
	if !data.Available() || data.State == nil {
		return "", fmt.Errorf("%s: %w", data.Section, ErrUnavailable)
	}
	tmpl, ok := c.templates[data.Section]
	if !ok {
		return "", fmt.Errorf("no template for section %s", data.Section)
	}

	stateJSON, err := encodeJSON(stateBlock(data))
	if err != nil {
		return "", fmt.Errorf("failed to encode state data: %w", err)
	}
	districtJSON, err := encodeJSON(districtBlock(data))
	if err != nil {
		return "", fmt.Errorf("failed to encode district data: %w", err)
	}

	info := data.Section.Info()
	v := view{
		Title:        info.Title,
		Date:         data.Date,
		District:     data.District,
		FocusMetric:  info.FocusMetric,
		RankField:    info.RankField,
		Criteria:     info.Criteria,
		StateJSON:    stateJSON,
		DistrictJSON: districtJSON,
		Figures:      c.figures(data),
		Instructions: c.instructions[data.Section],
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("failed to render prompt of section %s: %w", data.Section, err)
	}
	return buf.String(), nil
}

// stateBlock is the content of <state_data>.
func stateBlock(data model.SectionData) map[string]any {
	return map[string]any{
		"top_district":    data.State.TopDistrict,
		"bottom_district": data.State.BottomDistrict,
		"state_averages":  data.State.Averages,
		"total_districts": data.State.TotalDistricts,
	}
}

// districtBlock is the content of <district_data>.
func districtBlock(data model.SectionData) map[string]any {
	block := map[string]any{
		"district_name":   data.District,
		"state_rank":      data.Rank,
		"total_districts": data.TotalDistricts,
		"district_info":   data.RawValues,
	}
	if b := data.Blocks; b != nil {
		block["details"] = map[string]any{
			"blocks": b.Blocks,
			"district_summary": map[string]any{
				"total_blocks":             b.TotalBlocks,
				"averages":                 b.Averages,
				"highest_performing_block": b.HighestBlock,
				"lowest_performing_block":  b.LowestBlock,
			},
		}
	} else {
		block["details"] = map[string]any{
			"blocks": []model.Row{},
			"note":   "block-level data was not available for this date",
		}
	}
	return block
}

// encodeJSON renders v as indented JSON. Map keys are sorted by
// encoding/json, which keeps the output stable across runs.
func encodeJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// figures lists the headline numbers of a section in the composer's locale.
func (c *Composer) figures(data model.SectionData) []figure {
	info := data.Section.Info()
	field := info.RankField

	figs := []figure{
		{Label: "State rank", Value: c.printer.Sprintf("%d of %d districts", data.Rank, data.TotalDistricts)},
	}
	if v, ok := data.RawValues.Float(field); ok {
		figs = append(figs, figure{Label: fmt.Sprintf("District %s", field), Value: c.format(v)})
	}
	if v, ok := data.State.Averages[field]; ok {
		figs = append(figs, figure{Label: fmt.Sprintf("State average %s", field), Value: c.format(v)})
	}
	figs = append(figs,
		figure{Label: "Top district", Value: c.describe(data.State.TopDistrict, field)},
		figure{Label: "Bottom district", Value: c.describe(data.State.BottomDistrict, field)},
	)

	marks := data.RawValues.FloatOr(model.SectionMarksField, 0)
	if info.MaxMarks > 0 {
		figs = append(figs, figure{Label: "Marks", Value: c.format(marks) + " of " + c.format(info.MaxMarks)})
	} else {
		figs = append(figs, figure{Label: "Marks", Value: c.format(marks)})
	}

	if data.Blocks != nil {
		figs = append(figs, figure{
			Label: "Blocks",
			Value: fmt.Sprintf("%d (highest %s, lowest %s)", data.Blocks.TotalBlocks, data.Blocks.HighestBlock, data.Blocks.LowestBlock),
		})
	}
	return figs
}

func (c *Composer) describe(row model.Row, field string) string {
	if v, ok := row.Float(field); ok {
		return fmt.Sprintf("%s (%s)", row.Name(), c.format(v))
	}
	return row.Name()
}

// format prints v with at most 2 decimals and locale digit grouping.
func (c *Composer) format(v float64) string {
	return c.printer.Sprintf("%v", number.Decimal(v, number.MaxFractionDigits(2)))
}
